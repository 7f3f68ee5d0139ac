package constraint

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/chronoslab/timetabler/internal/optimizer"
)

// Checker evaluates constraint sets against finished timetables. It never
// mutates the timetable.
type Checker struct {
	logger *zap.Logger
}

func NewChecker(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger}
}

// Check runs every active constraint and returns all violation messages.
func (c *Checker) Check(t *optimizer.Timetable, set Set) []string {
	var violations []string
	for _, con := range set.Constraints {
		if !con.Active {
			continue
		}
		violations = append(violations, c.checkOne(t, con)...)
	}
	return violations
}

// Score computes the weighted satisfaction percentage: the weights of all
// fully satisfied active constraints over the total active weight.
func (c *Checker) Score(t *optimizer.Timetable, set Set) float64 {
	totalWeight, satisfiedWeight := 0, 0
	for _, con := range set.Constraints {
		if !con.Active {
			continue
		}
		weight := con.Type.Weight()
		totalWeight += weight
		if len(c.checkOne(t, con)) == 0 {
			satisfiedWeight += weight
		}
	}
	if totalWeight == 0 {
		return 100.0
	}
	return float64(satisfiedWeight) / float64(totalWeight) * 100
}

// Detail is the per-constraint entry in a Report.
type Detail struct {
	ID          string   `json:"id"`
	Type        Type     `json:"type"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description"`
	Satisfied   bool     `json:"satisfied"`
	Violations  []string `json:"violations,omitempty"`
}

// Report is the full satisfaction breakdown for one timetable.
type Report struct {
	OverallScore     float64        `json:"overall_score"`
	TotalConstraints int            `json:"total_constraints"`
	Satisfied        int            `json:"satisfied_constraints"`
	Violated         int            `json:"violated_constraints"`
	Details          []Detail       `json:"constraint_details"`
	ViolationSummary map[string]int `json:"violation_summary"`
	Recommendations  []string       `json:"recommendations,omitempty"`
}

// BuildReport checks every active constraint and aggregates the outcome.
func (c *Checker) BuildReport(t *optimizer.Timetable, set Set) Report {
	report := Report{
		TotalConstraints: len(set.Constraints),
		ViolationSummary: make(map[string]int),
	}

	for _, con := range set.Constraints {
		if !con.Active {
			continue
		}
		violations := c.checkOne(t, con)
		detail := Detail{
			ID:          con.ID,
			Type:        con.Type,
			Priority:    con.Priority,
			Description: con.Description,
			Satisfied:   len(violations) == 0,
			Violations:  violations,
		}
		report.Details = append(report.Details, detail)

		if detail.Satisfied {
			report.Satisfied++
		} else {
			report.Violated++
			report.ViolationSummary[string(con.Type)] += len(violations)
		}
	}

	report.OverallScore = c.Score(t, set)
	if report.Violated > 0 {
		report.Recommendations = recommendations(report)
	}
	return report
}

func recommendations(report Report) []string {
	var recs []string
	if report.ViolationSummary[string(TypeTeacherAvailability)] > 0 {
		recs = append(recs, "Review teacher availability constraints - some may be too restrictive")
	}
	if report.ViolationSummary[string(TypeWorkloadLimit)] > 0 {
		recs = append(recs, "Consider adjusting workload limits or adding more teachers")
	}
	if report.ViolationSummary[string(TypeTimeRestriction)] > 0 {
		recs = append(recs, "Time restrictions may conflict with course requirements")
	}
	if report.ViolationSummary[string(TypeLunchBreak)] > 0 {
		recs = append(recs, "Lunch break timing may need adjustment")
	}
	if report.OverallScore < 50 {
		recs = append(recs, "Consider relaxing some constraints to improve feasibility")
	}
	return recs
}

// checkOne dispatches on the constraint tag. A missing or malformed
// parameter block skips the rule with a logged error entry instead of
// aborting the pass.
func (c *Checker) checkOne(t *optimizer.Timetable, con Constraint) []string {
	var (
		violations []string
		err        error
	)
	switch con.Type {
	case TypeTeacherAvailability:
		violations, err = checkTeacherAvailability(t, con.TeacherAvailability)
	case TypeRoomAvailability:
		violations, err = checkRoomAvailability(t, con.RoomAvailability)
	case TypeTimeRestriction:
		violations, err = checkTimeRestriction(t, con.TimeRestriction)
	case TypeConsecutiveClasses:
		violations, err = checkConsecutiveClasses(t, con.ConsecutiveClasses)
	case TypeWorkloadLimit:
		violations, err = checkWorkloadLimit(t, con.WorkloadLimit)
	case TypeLunchBreak:
		violations, err = checkLunchBreak(t, con.LunchBreak)
	case TypeCustom:
		violations, err = checkCustom(t, con.Custom)
	default:
		err = fmt.Errorf("unknown constraint type %q", con.Type)
	}
	if err != nil {
		c.logger.Error("skipping malformed constraint",
			zap.String("constraint_id", con.ID),
			zap.String("type", string(con.Type)),
			zap.Error(err),
		)
		return []string{fmt.Sprintf("Error checking constraint: %s", con.Description)}
	}
	return violations
}

func checkTeacherAvailability(t *optimizer.Timetable, p *TeacherAvailabilityParams) ([]string, error) {
	if p == nil || p.Teacher == "" {
		return nil, fmt.Errorf("teacher availability parameters missing")
	}

	var violations []string
	perDay := make(map[string]int)
	for _, pl := range t.Placements() {
		if !strings.EqualFold(pl.Session.Teacher, p.Teacher) {
			continue
		}
		perDay[pl.Day]++
		if containsFold(p.UnavailableDays, pl.Day) {
			violations = append(violations,
				fmt.Sprintf("Teacher %s scheduled on unavailable day %s at %s", p.Teacher, pl.Day, pl.Start))
		}
		if containsFold(p.UnavailableTimes, pl.Start) {
			violations = append(violations,
				fmt.Sprintf("Teacher %s scheduled at unavailable time %s %s", p.Teacher, pl.Day, pl.Start))
		}
	}
	if p.MaxHoursPerDay > 0 {
		for _, day := range t.Grid().Days() {
			if perDay[day] > p.MaxHoursPerDay {
				violations = append(violations,
					fmt.Sprintf("Teacher %s exceeds daily limit on %s: %d > %d", p.Teacher, day, perDay[day], p.MaxHoursPerDay))
			}
		}
	}
	return violations, nil
}

func checkRoomAvailability(t *optimizer.Timetable, p *RoomAvailabilityParams) ([]string, error) {
	if p == nil || p.Room == "" {
		return nil, fmt.Errorf("room availability parameters missing")
	}

	var violations []string
	for _, pl := range t.Placements() {
		if pl.Session.Room != p.Room {
			continue
		}
		if containsFold(p.UnavailableDays, pl.Day) {
			violations = append(violations,
				fmt.Sprintf("Room %s scheduled on unavailable day %s at %s", p.Room, pl.Day, pl.Start))
		}
		if containsFold(p.UnavailableTimes, pl.Start) {
			violations = append(violations,
				fmt.Sprintf("Room %s scheduled at unavailable time %s %s", p.Room, pl.Day, pl.Start))
		}
	}
	return violations, nil
}

func checkTimeRestriction(t *optimizer.Timetable, p *TimeRestrictionParams) ([]string, error) {
	if p == nil || p.CourseCode == "" {
		return nil, fmt.Errorf("time restriction parameters missing")
	}

	var violations []string
	for _, pl := range t.Placements() {
		if pl.Session.CourseCode != p.CourseCode {
			continue
		}
		if containsFold(p.RestrictedDays, pl.Day) {
			violations = append(violations,
				fmt.Sprintf("Course %s scheduled on restricted day %s at %s", p.CourseCode, pl.Day, pl.Start))
		}
		if containsFold(p.RestrictedTimes, pl.Start) {
			violations = append(violations,
				fmt.Sprintf("Course %s scheduled at restricted time %s %s", p.CourseCode, pl.Day, pl.Start))
		}
	}
	return violations, nil
}

func checkConsecutiveClasses(t *optimizer.Timetable, p *ConsecutiveClassesParams) ([]string, error) {
	if p == nil || p.CourseCode == "" {
		return nil, fmt.Errorf("consecutive classes parameters missing")
	}

	var violations []string
	slotsByDay := make(map[string][]int)
	for _, pl := range t.Placements() {
		if pl.Session.CourseCode == p.CourseCode {
			slotsByDay[pl.Day] = append(slotsByDay[pl.Day], pl.Slot)
		}
	}

	days := make([]string, 0, len(slotsByDay))
	for day := range slotsByDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		slots := slotsByDay[day]
		if len(slots) < 2 {
			continue
		}
		sort.Ints(slots)
		for i := 0; i < len(slots)-1; i++ {
			gap := slots[i+1] - slots[i] - 1
			if p.MustBeConsecutive && gap != 0 {
				violations = append(violations,
					fmt.Sprintf("Course %s classes not consecutive on %s: gap of %d slots", p.CourseCode, day, gap))
			} else if !p.MustBeConsecutive && gap > p.MaxGapSlots {
				violations = append(violations,
					fmt.Sprintf("Course %s classes have excessive gap on %s: %d > %d slots", p.CourseCode, day, gap, p.MaxGapSlots))
			}
		}
	}
	return violations, nil
}

func checkWorkloadLimit(t *optimizer.Timetable, p *WorkloadLimitParams) ([]string, error) {
	if p == nil || p.Teacher == "" {
		return nil, fmt.Errorf("workload limit parameters missing")
	}

	var violations []string
	weekly := 0
	perDay := make(map[string]int)
	for _, pl := range t.Placements() {
		if p.Teacher != "*" && !strings.EqualFold(pl.Session.Teacher, p.Teacher) {
			continue
		}
		perDay[pl.Day]++
		weekly++
	}
	for _, day := range t.Grid().Days() {
		if p.MaxClassesPerDay > 0 && perDay[day] > p.MaxClassesPerDay {
			violations = append(violations,
				fmt.Sprintf("Teacher %s exceeds daily limit on %s: %d > %d", p.Teacher, day, perDay[day], p.MaxClassesPerDay))
		}
	}
	if p.MaxClassesPerWeek > 0 && weekly > p.MaxClassesPerWeek {
		violations = append(violations,
			fmt.Sprintf("Teacher %s exceeds weekly limit: %d > %d", p.Teacher, weekly, p.MaxClassesPerWeek))
	}
	return violations, nil
}

func checkLunchBreak(t *optimizer.Timetable, p *LunchBreakParams) ([]string, error) {
	if p == nil {
		return nil, fmt.Errorf("lunch break parameters missing")
	}
	start, err := optimizer.ParseClock(p.Start)
	if err != nil {
		return nil, err
	}
	end, err := optimizer.ParseClock(p.End)
	if err != nil {
		return nil, err
	}

	var violations []string
	for _, pl := range t.Placements() {
		slotStart, err := optimizer.ParseClock(pl.Start)
		if err != nil {
			return nil, err
		}
		if slotStart < start || slotStart >= end {
			continue
		}
		if containsFold(p.Exceptions, pl.Session.Teacher) || containsFold(p.Exceptions, pl.Session.Room) {
			continue
		}
		violations = append(violations,
			fmt.Sprintf("Class scheduled during lunch break: %s %s - %s", pl.Day, pl.Start, pl.Session.CourseCode))
	}
	return violations, nil
}

func checkCustom(t *optimizer.Timetable, p *CustomParams) ([]string, error) {
	if p == nil {
		return nil, fmt.Errorf("custom parameters missing")
	}

	var violations []string
	if p.NotAfter != "" {
		limit, err := optimizer.ParseClock(p.NotAfter)
		if err != nil {
			return nil, err
		}
		for _, pl := range t.Placements() {
			if len(p.NotAfterDays) > 0 && !containsFold(p.NotAfterDays, pl.Day) {
				continue
			}
			slotStart, err := optimizer.ParseClock(pl.Start)
			if err != nil {
				return nil, err
			}
			if slotStart >= limit {
				violations = append(violations,
					fmt.Sprintf("Class scheduled after %s on %s: %s at %s", p.NotAfter, pl.Day, pl.Session.CourseCode, pl.Start))
			}
		}
	}

	if p.MaxClassesPerDay > 0 {
		perDay := make(map[string]int)
		for _, pl := range t.Placements() {
			perDay[pl.Day]++
		}
		for _, day := range t.Grid().Days() {
			if perDay[day] > p.MaxClassesPerDay {
				violations = append(violations,
					fmt.Sprintf("Too many classes on %s: %d > %d", day, perDay[day], p.MaxClassesPerDay))
			}
		}
	}

	if p.Teacher != "" && p.UnavailableDay != "" {
		for _, pl := range t.Placements() {
			if strings.EqualFold(pl.Day, p.UnavailableDay) && strings.EqualFold(pl.Session.Teacher, p.Teacher) {
				violations = append(violations,
					fmt.Sprintf("Teacher %s scheduled on unavailable day %s at %s", p.Teacher, pl.Day, pl.Start))
			}
		}
	}
	return violations, nil
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
