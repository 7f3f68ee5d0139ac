package optimizer

import (
	"fmt"
	"hash/fnv"
)

// SessionKind distinguishes lecture sessions from multi-slot laboratory work.
type SessionKind string

const (
	KindLecture SessionKind = "lecture"
	KindLab     SessionKind = "lab"
)

// CourseSpec is the immutable weekly demand for one course.
type CourseSpec struct {
	Code            string
	Name            string
	Teacher         string
	SessionsPerWeek int
	Kind            SessionKind
	Duration        int
	LabSpan         int
}

// Resources bounds the room pool available to the initializer.
type Resources struct {
	Classrooms int
	Labs       int
}

// Session is one scheduled occurrence occupying a single grid cell. A lab
// spanning N slots is encoded as N sessions sharing GroupID, numbered
// Part 1..TotalParts.
type Session struct {
	CourseCode  string      `json:"course_code"`
	CourseName  string      `json:"course_name"`
	Teacher     string      `json:"teacher"`
	Room        string      `json:"room"`
	Kind        SessionKind `json:"kind"`
	Part        int         `json:"part"`
	TotalParts  int         `json:"total_parts"`
	Consecutive bool        `json:"consecutive"`
	GroupID     string      `json:"group_id,omitempty"`
}

// Timetable maps every (day, slot) cell to at most one session. It is the
// unit of selection, crossover, mutation and fitness evaluation; each
// individual owns its cells outright, so mutation never needs locking.
type Timetable struct {
	grid  *SlotGrid
	cells [][]*Session
}

// NewTimetable allocates an empty timetable over the grid.
func NewTimetable(grid *SlotGrid) *Timetable {
	cells := make([][]*Session, len(grid.days))
	for i := range cells {
		cells[i] = make([]*Session, len(grid.starts))
	}
	return &Timetable{grid: grid, cells: cells}
}

// Grid exposes the slot grid the timetable is laid out on.
func (t *Timetable) Grid() *SlotGrid {
	return t.grid
}

// At returns the session at (day, slot) or nil.
func (t *Timetable) At(day, slot int) *Session {
	return t.cells[day][slot]
}

// Set places a session at (day, slot), replacing any occupant.
func (t *Timetable) Set(day, slot int, s *Session) {
	t.cells[day][slot] = s
}

// Clear empties the cell at (day, slot).
func (t *Timetable) Clear(day, slot int) {
	t.cells[day][slot] = nil
}

// Swap exchanges the contents of two cells.
func (t *Timetable) Swap(day1, slot1, day2, slot2 int) {
	t.cells[day1][slot1], t.cells[day2][slot2] = t.cells[day2][slot2], t.cells[day1][slot1]
}

// Clone produces a deep copy; the clone shares the (read-only) grid but owns
// fresh session values, so population members never alias cells.
func (t *Timetable) Clone() *Timetable {
	clone := NewTimetable(t.grid)
	for d := range t.cells {
		for s, sess := range t.cells[d] {
			if sess == nil {
				continue
			}
			copied := *sess
			clone.cells[d][s] = &copied
		}
	}
	return clone
}

// Placement pairs a session with the cell it occupies.
type Placement struct {
	Day      string
	DayIndex int
	Slot     int
	Start    string
	Session  *Session
}

// Placements returns all occupied cells in (day, slot) order.
func (t *Timetable) Placements() []Placement {
	var out []Placement
	for d := range t.cells {
		for s, sess := range t.cells[d] {
			if sess == nil {
				continue
			}
			out = append(out, Placement{
				Day:      t.grid.days[d],
				DayIndex: d,
				Slot:     s,
				Start:    t.grid.ClockOf(s),
				Session:  sess,
			})
		}
	}
	return out
}

// Hash computes a canonical content hash over (day, slot, course, teacher,
// room, part) tuples. Cells are visited in fixed grid order, so two
// timetables with identical content always hash identically.
func (t *Timetable) Hash() uint64 {
	h := fnv.New64a()
	for d := range t.cells {
		for s, sess := range t.cells[d] {
			if sess == nil {
				continue
			}
			fmt.Fprintf(h, "%d|%d|%s|%s|%s|%d;", d, s, sess.CourseCode, sess.Teacher, sess.Room, sess.Part)
		}
	}
	return h.Sum64()
}
