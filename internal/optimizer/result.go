package optimizer

import "time"

// CourseCompletion reports how much of one course's weekly requirement was
// actually placed on the grid.
type CourseCompletion struct {
	CourseName     string  `json:"course_name"`
	Scheduled      int     `json:"scheduled"`
	Required       int     `json:"required"`
	CompletionRate float64 `json:"completion_rate"`
}

// Summary aggregates schedule-level statistics for reporting.
type Summary struct {
	TotalSessions   int                         `json:"total_sessions"`
	Completion      map[string]CourseCompletion `json:"course_completion"`
	TeacherWorkload map[string]int              `json:"teacher_workload"`
	RoomUtilization map[string]int              `json:"room_utilization"`
}

// Result is the final product of an optimization run.
type Result struct {
	Timetable    *Timetable    `json:"-"`
	FitnessScore float64       `json:"fitness_score"`
	Generations  int           `json:"generations"`
	History      []float64     `json:"history"`
	Summary      Summary       `json:"summary"`
	CacheHits    uint64        `json:"-"`
	CacheMisses  uint64        `json:"-"`
	Elapsed      time.Duration `json:"-"`
}

// Summarize walks the timetable once and builds the reporting aggregates.
func Summarize(t *Timetable, courses []CourseSpec) Summary {
	s := Summary{
		Completion:      make(map[string]CourseCompletion, len(courses)),
		TeacherWorkload: make(map[string]int),
		RoomUtilization: make(map[string]int),
	}

	counts := make(map[string]int, len(courses))
	for _, p := range t.Placements() {
		s.TotalSessions++
		counts[p.Session.CourseCode]++
		s.TeacherWorkload[p.Session.Teacher]++
		s.RoomUtilization[p.Session.Room]++
	}

	for _, c := range courses {
		scheduled := counts[c.Code]
		rate := 0.0
		if c.SessionsPerWeek > 0 {
			rate = float64(scheduled) / float64(c.SessionsPerWeek) * 100
		}
		s.Completion[c.Code] = CourseCompletion{
			CourseName:     c.Name,
			Scheduled:      scheduled,
			Required:       c.SessionsPerWeek,
			CompletionRate: rate,
		}
	}
	return s
}
