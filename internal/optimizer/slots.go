package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	appErrors "github.com/chronoslab/timetabler/pkg/errors"
)

// GridConfig describes the weekly scheduling window. All times are minutes
// since midnight; the lunch interval is carved out of every working day.
type GridConfig struct {
	WorkingDays     []string
	StartTime       int
	EndTime         int
	SessionDuration int
	LunchStart      int
	LunchEnd        int
}

// SlotGrid enumerates the schedulable (day, slot) cells. Slot start times are
// identical across days; day order follows the configured working-day order.
type SlotGrid struct {
	days   []string
	starts []int
}

// BuildSlotGrid derives the slot grid from the configured window, stepping in
// session-duration increments and skipping starts inside [LunchStart, LunchEnd).
func BuildSlotGrid(cfg GridConfig) (*SlotGrid, error) {
	if len(cfg.WorkingDays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "at least one working day is required")
	}
	if cfg.SessionDuration <= 0 {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "session duration must be positive")
	}
	if cfg.StartTime >= cfg.EndTime {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("start time %s must precede end time %s", Clock(cfg.StartTime), Clock(cfg.EndTime)))
	}
	if cfg.LunchStart > cfg.LunchEnd {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("lunch start %s must not follow lunch end %s", Clock(cfg.LunchStart), Clock(cfg.LunchEnd)))
	}

	var starts []int
	for current := cfg.StartTime; current+cfg.SessionDuration <= cfg.EndTime; current += cfg.SessionDuration {
		if current >= cfg.LunchStart && current < cfg.LunchEnd {
			continue
		}
		starts = append(starts, current)
	}
	if len(starts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "scheduling window yields no usable time slots")
	}

	days := make([]string, len(cfg.WorkingDays))
	copy(days, cfg.WorkingDays)

	return &SlotGrid{days: days, starts: starts}, nil
}

// Days returns the ordered working days.
func (g *SlotGrid) Days() []string {
	return g.days
}

// SlotsPerDay returns the number of schedulable slots on each day.
func (g *SlotGrid) SlotsPerDay() int {
	return len(g.starts)
}

// StartOf returns the start minute of the given slot index.
func (g *SlotGrid) StartOf(slot int) int {
	return g.starts[slot]
}

// ClockOf renders the slot start as HH:MM.
func (g *SlotGrid) ClockOf(slot int) string {
	return Clock(g.starts[slot])
}

// Cells returns the total number of schedulable cells in the grid.
func (g *SlotGrid) Cells() int {
	return len(g.days) * len(g.starts)
}

// Clock formats minutes since midnight as HH:MM.
func Clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock converts an HH:MM string into minutes since midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", raw)
	}
	if hours < 0 || hours > 23 || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return hours*60 + mins, nil
}
