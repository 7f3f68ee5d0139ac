// Package constraint validates finished timetables against institutional
// rules. Checking is independent of the optimization search: it produces
// violation reports and a satisfaction score for the caller, never a
// fitness signal.
package constraint

// Type identifies one constraint variant. The set is closed: the checker
// dispatches on the tag and reads only that variant's parameter struct.
type Type string

const (
	TypeTeacherAvailability Type = "teacher_availability"
	TypeRoomAvailability    Type = "room_availability"
	TypeTimeRestriction     Type = "time_restriction"
	TypeConsecutiveClasses  Type = "consecutive_classes"
	TypeWorkloadLimit       Type = "workload_limit"
	TypeLunchBreak          Type = "lunch_break"
	TypeCustom              Type = "custom"
)

// Priority orders constraints for reporting. It does not affect checking.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TeacherAvailabilityParams restricts when a teacher may be scheduled.
// Times are HH:MM slot starts.
type TeacherAvailabilityParams struct {
	Teacher          string   `json:"teacher" validate:"required"`
	UnavailableDays  []string `json:"unavailable_days,omitempty"`
	UnavailableTimes []string `json:"unavailable_times,omitempty"`
	MaxHoursPerDay   int      `json:"max_hours_per_day,omitempty"`
}

// RoomAvailabilityParams restricts when a room may be used.
type RoomAvailabilityParams struct {
	Room             string   `json:"room" validate:"required"`
	UnavailableDays  []string `json:"unavailable_days,omitempty"`
	UnavailableTimes []string `json:"unavailable_times,omitempty"`
}

// TimeRestrictionParams forbids scheduling a course on given days or slot
// start times.
type TimeRestrictionParams struct {
	CourseCode      string   `json:"course_code" validate:"required"`
	RestrictedDays  []string `json:"restricted_days,omitempty"`
	RestrictedTimes []string `json:"restricted_times,omitempty"`
}

// ConsecutiveClassesParams governs gaps between a course's sessions within
// one day. MaxGapSlots counts empty slots allowed between two sessions when
// MustBeConsecutive is false.
type ConsecutiveClassesParams struct {
	CourseCode        string `json:"course_code" validate:"required"`
	MustBeConsecutive bool   `json:"must_be_consecutive"`
	MaxGapSlots       int    `json:"max_gap_slots,omitempty"`
}

// WorkloadLimitParams caps a teacher's daily and weekly session counts.
// Teacher "*" applies the cap to the whole timetable.
type WorkloadLimitParams struct {
	Teacher           string `json:"teacher" validate:"required"`
	MaxClassesPerDay  int    `json:"max_classes_per_day" validate:"required,min=1"`
	MaxClassesPerWeek int    `json:"max_classes_per_week" validate:"required,min=1"`
}

// LunchBreakParams forbids sessions starting inside [Start, End). Teachers
// or rooms listed in Exceptions are exempt.
type LunchBreakParams struct {
	Start      string   `json:"start" validate:"required"`
	End        string   `json:"end" validate:"required"`
	Exceptions []string `json:"exceptions,omitempty"`
}

// CustomParams carries rules already parsed upstream into structured form.
// Any combination of the optional clauses may be set; each set clause is
// checked independently.
type CustomParams struct {
	// No sessions at or after this slot start on the listed days
	// (all days when empty).
	NotAfter     string   `json:"not_after,omitempty"`
	NotAfterDays []string `json:"not_after_days,omitempty"`

	// Cap on total sessions per day across the whole timetable.
	MaxClassesPerDay int `json:"max_classes_per_day,omitempty"`

	// Teacher barred from one specific day.
	Teacher        string `json:"teacher,omitempty"`
	UnavailableDay string `json:"unavailable_day,omitempty"`
}

// Constraint is one rule in a ConstraintSet. Exactly the parameter struct
// matching Type must be non-nil; the checker treats anything else as
// malformed and skips the rule.
type Constraint struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type" validate:"required"`
	Priority    Priority `json:"priority,omitempty"`
	Description string   `json:"description"`
	Active      bool     `json:"active"`

	TeacherAvailability *TeacherAvailabilityParams `json:"teacher_availability,omitempty"`
	RoomAvailability    *RoomAvailabilityParams    `json:"room_availability,omitempty"`
	TimeRestriction     *TimeRestrictionParams     `json:"time_restriction,omitempty"`
	ConsecutiveClasses  *ConsecutiveClassesParams  `json:"consecutive_classes,omitempty"`
	WorkloadLimit       *WorkloadLimitParams       `json:"workload_limit,omitempty"`
	LunchBreak          *LunchBreakParams          `json:"lunch_break,omitempty"`
	Custom              *CustomParams              `json:"custom,omitempty"`
}

// Set is an ordered list of constraints.
type Set struct {
	Constraints []Constraint `json:"constraints"`
}

// Weight returns the violation weight used for satisfaction scoring.
// Heavier types hurt the score more when violated.
func (t Type) Weight() int {
	switch t {
	case TypeTeacherAvailability:
		return 10
	case TypeRoomAvailability:
		return 8
	case TypeWorkloadLimit:
		return 7
	case TypeTimeRestriction:
		return 6
	case TypeLunchBreak:
		return 5
	case TypeConsecutiveClasses:
		return 4
	case TypeCustom:
		return 3
	default:
		return 1
	}
}
