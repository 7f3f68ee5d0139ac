package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/chronoslab/timetabler/pkg/errors"
)

func TestBuildSlotGrid(t *testing.T) {
	grid, err := BuildSlotGrid(GridConfig{
		WorkingDays:     []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		StartTime:       9 * 60,
		EndTime:         17 * 60,
		SessionDuration: 60,
		LunchStart:      12 * 60,
		LunchEnd:        13 * 60,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, len(grid.Days()))
	// 9..17 in hourly steps minus the 12:00 start inside lunch.
	assert.Equal(t, 7, grid.SlotsPerDay())
	assert.Equal(t, 35, grid.Cells())
	assert.Equal(t, "09:00", grid.ClockOf(0))
	assert.Equal(t, "11:00", grid.ClockOf(2))
	assert.Equal(t, "13:00", grid.ClockOf(3))
	assert.Equal(t, "16:00", grid.ClockOf(6))
}

func TestBuildSlotGridLunchSpanningOddBoundary(t *testing.T) {
	grid, err := BuildSlotGrid(GridConfig{
		WorkingDays:     []string{"Monday"},
		StartTime:       9 * 60,
		EndTime:         15 * 60,
		SessionDuration: 90,
		LunchStart:      12 * 60,
		LunchEnd:        13 * 60,
	})
	require.NoError(t, err)

	// 9:00, 10:30 fit before lunch; 12:00 falls inside it; 13:30 is next.
	assert.Equal(t, 3, grid.SlotsPerDay())
	assert.Equal(t, "10:30", grid.ClockOf(1))
	assert.Equal(t, "13:30", grid.ClockOf(2))
}

func TestBuildSlotGridRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  GridConfig
	}{
		{
			name: "no working days",
			cfg:  GridConfig{StartTime: 9 * 60, EndTime: 17 * 60, SessionDuration: 60},
		},
		{
			name: "start after end",
			cfg:  GridConfig{WorkingDays: []string{"Monday"}, StartTime: 17 * 60, EndTime: 9 * 60, SessionDuration: 60},
		},
		{
			name: "zero duration",
			cfg:  GridConfig{WorkingDays: []string{"Monday"}, StartTime: 9 * 60, EndTime: 17 * 60},
		},
		{
			name: "lunch swallows the window",
			cfg: GridConfig{
				WorkingDays:     []string{"Monday"},
				StartTime:       12 * 60,
				EndTime:         13 * 60,
				SessionDuration: 60,
				LunchStart:      12 * 60,
				LunchEnd:        13 * 60,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildSlotGrid(tc.cfg)
			require.Error(t, err)

			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrConfiguration.Code, appErr.Code)
		})
	}
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, minutes)
	assert.Equal(t, "09:30", Clock(minutes))

	_, err = ParseClock("930")
	assert.Error(t, err)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}
