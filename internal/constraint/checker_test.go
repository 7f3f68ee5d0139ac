package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoslab/timetabler/internal/optimizer"
)

func buildTimetable(t *testing.T) *optimizer.Timetable {
	t.Helper()
	grid, err := optimizer.BuildSlotGrid(optimizer.GridConfig{
		WorkingDays:     []string{"Monday", "Tuesday", "Wednesday"},
		StartTime:       9 * 60,
		EndTime:         15 * 60,
		SessionDuration: 60,
	})
	require.NoError(t, err)

	tt := optimizer.NewTimetable(grid)
	tt.Set(0, 0, &optimizer.Session{CourseCode: "CS101", CourseName: "Programming", Teacher: "Dr. Ada", Room: "Room 1", Kind: optimizer.KindLecture, Part: 1, TotalParts: 1})
	tt.Set(0, 2, &optimizer.Session{CourseCode: "CS101", CourseName: "Programming", Teacher: "Dr. Ada", Room: "Room 1", Kind: optimizer.KindLecture, Part: 1, TotalParts: 1})
	tt.Set(1, 3, &optimizer.Session{CourseCode: "MA201", CourseName: "Calculus", Teacher: "Dr. Bob", Room: "Room 2", Kind: optimizer.KindLecture, Part: 1, TotalParts: 1})
	return tt
}

func TestCheckTeacherAvailability(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	set := Set{Constraints: []Constraint{{
		ID:     "c1",
		Type:   TypeTeacherAvailability,
		Active: true,
		TeacherAvailability: &TeacherAvailabilityParams{
			Teacher:         "dr. ada",
			UnavailableDays: []string{"Monday"},
		},
	}}}

	violations := checker.Check(tt, set)
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0], "unavailable day Monday")
}

func TestCheckTeacherDailyHourCap(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeTeacherAvailability,
		Active: true,
		TeacherAvailability: &TeacherAvailabilityParams{
			Teacher:        "Dr. Ada",
			MaxHoursPerDay: 1,
		},
	}}})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "exceeds daily limit on Monday: 2 > 1")
}

func TestCheckRoomAvailability(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeRoomAvailability,
		Active: true,
		RoomAvailability: &RoomAvailabilityParams{
			Room:             "Room 2",
			UnavailableTimes: []string{"12:00"},
		},
	}}})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "Room 2")
	assert.Contains(t, violations[0], "12:00")
}

func TestCheckTimeRestriction(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeTimeRestriction,
		Active: true,
		TimeRestriction: &TimeRestrictionParams{
			CourseCode:     "CS101",
			RestrictedDays: []string{"Monday"},
		},
	}}})
	assert.Len(t, violations, 2)
}

func TestCheckConsecutiveClasses(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	// CS101 sits at slots 0 and 2 on Monday: one empty slot between them.
	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeConsecutiveClasses,
		Active: true,
		ConsecutiveClasses: &ConsecutiveClassesParams{
			CourseCode:        "CS101",
			MustBeConsecutive: true,
		},
	}}})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "not consecutive on Monday")

	violations = checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeConsecutiveClasses,
		Active: true,
		ConsecutiveClasses: &ConsecutiveClassesParams{
			CourseCode:  "CS101",
			MaxGapSlots: 1,
		},
	}}})
	assert.Empty(t, violations)
}

func TestCheckWorkloadLimit(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeWorkloadLimit,
		Active: true,
		WorkloadLimit: &WorkloadLimitParams{
			Teacher:           "Dr. Ada",
			MaxClassesPerDay:  1,
			MaxClassesPerWeek: 1,
		},
	}}})
	require.Len(t, violations, 2)
	assert.Contains(t, violations[1], "exceeds weekly limit: 2 > 1")
}

func TestCheckWorkloadLimitWildcard(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeWorkloadLimit,
		Active: true,
		WorkloadLimit: &WorkloadLimitParams{
			Teacher:           "*",
			MaxClassesPerDay:  1,
			MaxClassesPerWeek: 10,
		},
	}}})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "Monday")
}

func TestCheckLunchBreakWithExceptions(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	// MA201 starts at 12:00 on Tuesday.
	base := Constraint{
		Type:   TypeLunchBreak,
		Active: true,
		LunchBreak: &LunchBreakParams{
			Start: "12:00",
			End:   "13:00",
		},
	}
	violations := checker.Check(tt, Set{Constraints: []Constraint{base}})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "MA201")

	exempt := base
	exempt.LunchBreak = &LunchBreakParams{Start: "12:00", End: "13:00", Exceptions: []string{"Dr. Bob"}}
	assert.Empty(t, checker.Check(tt, Set{Constraints: []Constraint{exempt}}))
}

func TestCheckCustomClauses(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeCustom,
		Active: true,
		Custom: &CustomParams{NotAfter: "12:00"},
	}}})
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "MA201")

	violations = checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeCustom,
		Active: true,
		Custom: &CustomParams{Teacher: "Dr. Ada", UnavailableDay: "Monday"},
	}}})
	assert.Len(t, violations, 2)
}

func TestCheckSkipsInactiveConstraints(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	violations := checker.Check(tt, Set{Constraints: []Constraint{{
		Type:   TypeTeacherAvailability,
		Active: false,
		TeacherAvailability: &TeacherAvailabilityParams{
			Teacher:         "Dr. Ada",
			UnavailableDays: []string{"Monday"},
		},
	}}})
	assert.Empty(t, violations)
}

func TestCheckMalformedConstraintIsSkipped(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	set := Set{Constraints: []Constraint{
		{
			ID:          "bad-params",
			Type:        TypeLunchBreak,
			Active:      true,
			Description: "lunch break with broken times",
			LunchBreak:  &LunchBreakParams{Start: "noon", End: "13:00"},
		},
		{
			Type:   TypeWorkloadLimit,
			Active: true,
			WorkloadLimit: &WorkloadLimitParams{
				Teacher:           "Dr. Bob",
				MaxClassesPerDay:  5,
				MaxClassesPerWeek: 20,
			},
		},
	}}

	violations := checker.Check(tt, set)
	// The malformed rule reports a single checker error; the healthy rule
	// still runs and passes.
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "Error checking constraint")
}

func TestScoreWeightsViolations(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	set := Set{Constraints: []Constraint{
		{
			Type:   TypeTeacherAvailability, // weight 10, violated
			Active: true,
			TeacherAvailability: &TeacherAvailabilityParams{
				Teacher:         "Dr. Ada",
				UnavailableDays: []string{"Monday"},
			},
		},
		{
			Type:   TypeConsecutiveClasses, // weight 4, satisfied
			Active: true,
			ConsecutiveClasses: &ConsecutiveClassesParams{
				CourseCode:  "CS101",
				MaxGapSlots: 2,
			},
		},
	}}

	score := checker.Score(tt, set)
	assert.InDelta(t, 4.0/14.0*100, score, 0.001)

	assert.Equal(t, 100.0, checker.Score(tt, Set{}))
}

func TestBuildReport(t *testing.T) {
	tt := buildTimetable(t)
	checker := NewChecker(nil)

	set := Set{Constraints: []Constraint{
		{
			ID:          "ta-1",
			Type:        TypeTeacherAvailability,
			Priority:    PriorityHigh,
			Description: "Dr. Ada off Mondays",
			Active:      true,
			TeacherAvailability: &TeacherAvailabilityParams{
				Teacher:         "Dr. Ada",
				UnavailableDays: []string{"Monday"},
			},
		},
		{
			ID:     "wl-1",
			Type:   TypeWorkloadLimit,
			Active: true,
			WorkloadLimit: &WorkloadLimitParams{
				Teacher:           "Dr. Bob",
				MaxClassesPerDay:  5,
				MaxClassesPerWeek: 20,
			},
		},
	}}

	report := checker.BuildReport(tt, set)
	assert.Equal(t, 2, report.TotalConstraints)
	assert.Equal(t, 1, report.Satisfied)
	assert.Equal(t, 1, report.Violated)
	assert.Equal(t, 2, report.ViolationSummary[string(TypeTeacherAvailability)])
	assert.Contains(t, report.Recommendations[0], "teacher availability")
	assert.Less(t, report.OverallScore, 100.0)

	require.Len(t, report.Details, 2)
	assert.False(t, report.Details[0].Satisfied)
	assert.True(t, report.Details[1].Satisfied)
}
