package dto

import (
	"time"

	"github.com/chronoslab/timetabler/internal/constraint"
)

// CourseRequest is one course's weekly demand.
type CourseRequest struct {
	Code            string `json:"code" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Teacher         string `json:"teacher" validate:"required"`
	LecturesPerWeek int    `json:"lecturesPerWeek" validate:"required,min=1"`
	Kind            string `json:"kind" validate:"required,oneof=lecture lab"`
	LabSpan         int    `json:"labSpan" validate:"omitempty,min=1,max=8"`
}

// ScheduleConfigRequest describes the weekly scheduling window. Times are
// HH:MM clock strings.
type ScheduleConfigRequest struct {
	WorkingDays     []string `json:"workingDays" validate:"required,min=1"`
	StartTime       string   `json:"startTime" validate:"required"`
	EndTime         string   `json:"endTime" validate:"required"`
	SessionDuration int      `json:"sessionDuration" validate:"required,min=15,max=240"`
	LunchStart      string   `json:"lunchStart"`
	LunchEnd        string   `json:"lunchEnd"`
	Classrooms      int      `json:"classrooms" validate:"omitempty,min=1"`
	Labs            int      `json:"labs" validate:"omitempty,min=1"`
}

// GenerateTimetableRequest is the full optimization request.
type GenerateTimetableRequest struct {
	InstitutionID string                  `json:"institutionId" validate:"required"`
	Config        ScheduleConfigRequest   `json:"config" validate:"required"`
	Courses       []CourseRequest         `json:"courses" validate:"required,min=1,dive"`
	Constraints   []constraint.Constraint `json:"constraints"`
	Algorithm     string                  `json:"algorithm" validate:"omitempty,oneof=genetic annealing hybrid"`
	Seed          int64                   `json:"seed"`
}

// ScheduleEntry is one rendered cell of the result grid.
type ScheduleEntry struct {
	CourseCode  string `json:"courseCode"`
	CourseName  string `json:"courseName"`
	Teacher     string `json:"teacher"`
	Room        string `json:"room"`
	Kind        string `json:"kind"`
	Part        int    `json:"part"`
	TotalParts  int    `json:"totalParts"`
	Consecutive bool   `json:"consecutive"`
}

// CourseCompletionResponse mirrors the summary completion entry.
type CourseCompletionResponse struct {
	CourseName     string  `json:"courseName"`
	Scheduled      int     `json:"scheduled"`
	Required       int     `json:"required"`
	CompletionRate float64 `json:"completionRate"`
}

// SummaryResponse aggregates schedule statistics.
type SummaryResponse struct {
	TotalSessions   int                                 `json:"totalSessions"`
	Completion      map[string]CourseCompletionResponse `json:"courseCompletion"`
	TeacherWorkload map[string]int                      `json:"teacherWorkload"`
	RoomUtilization map[string]int                      `json:"roomUtilization"`
}

// TimetableDocument is the complete serialized outcome of one run. It is
// both the API payload and the persisted JSONB document.
type TimetableDocument struct {
	// Schedule maps day -> slot start (HH:MM) -> entry.
	Schedule        map[string]map[string]*ScheduleEntry `json:"schedule"`
	Days            []string                             `json:"days"`
	SlotTimes       []string                             `json:"slotTimes"`
	Algorithm       string                               `json:"algorithm"`
	FitnessScore    float64                              `json:"fitnessScore"`
	Generations     int                                  `json:"generations"`
	History         []float64                            `json:"history,omitempty"`
	Summary         SummaryResponse                      `json:"summary"`
	Violations      []string                             `json:"violations,omitempty"`
	ConstraintScore float64                              `json:"constraintScore"`
	Recommendations []string                             `json:"recommendations,omitempty"`
	ElapsedMS       int64                                `json:"elapsedMs"`
}

// GenerateTimetableResponse wraps the document with storage metadata.
type GenerateTimetableResponse struct {
	ResultID      string            `json:"resultId"`
	InstitutionID string            `json:"institutionId"`
	Document      TimetableDocument `json:"document"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// ValidateTimetableRequest performs a pre-flight feasibility check without
// running the search.
type ValidateTimetableRequest struct {
	Config  ScheduleConfigRequest `json:"config" validate:"required"`
	Courses []CourseRequest       `json:"courses" validate:"required,min=1,dive"`
}

// ValidationIssue is one pre-flight finding.
type ValidationIssue struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ValidateTimetableResponse reports feasibility findings.
type ValidateTimetableResponse struct {
	Valid         bool              `json:"valid"`
	TotalSessions int               `json:"totalSessions"`
	TotalCapacity int               `json:"totalCapacity"`
	Issues        []ValidationIssue `json:"issues,omitempty"`
}

// HistoryQuery filters stored result versions.
type HistoryQuery struct {
	Limit int `form:"limit" json:"limit"`
}

// CreateInstitutionRequest registers a new institution.
type CreateInstitutionRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

// UpdateInstitutionRequest renames an institution.
type UpdateInstitutionRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}
