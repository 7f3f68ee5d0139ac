package optimizer

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// roomPool hands out room identifiers bounded by the configured resources.
type roomPool struct {
	classrooms int
	labs       int
}

func newRoomPool(res Resources) roomPool {
	pool := roomPool{classrooms: res.Classrooms, labs: res.Labs}
	if pool.classrooms <= 0 {
		pool.classrooms = 5
	}
	if pool.labs <= 0 {
		pool.labs = 2
	}
	return pool
}

func (p roomPool) pick(rng *rand.Rand, kind SessionKind) string {
	if kind == KindLab {
		return fmt.Sprintf("Lab %d", rng.Intn(p.labs)+1)
	}
	return fmt.Sprintf("Room %d", rng.Intn(p.classrooms)+1)
}

// seeder builds starting timetables with a greedy, constraint-aware heuristic.
// Labs are placed first because they need contiguous runs of free slots.
type seeder struct {
	grid    *SlotGrid
	courses []CourseSpec
	rooms   roomPool
	rng     *rand.Rand
	tries   int
}

func newSeeder(grid *SlotGrid, courses []CourseSpec, res Resources, rng *rand.Rand, tries int) *seeder {
	if tries <= 0 {
		tries = 50
	}
	return &seeder{grid: grid, courses: courses, rooms: newRoomPool(res), rng: rng, tries: tries}
}

func (s *seeder) build() *Timetable {
	t := NewTimetable(s.grid)

	for _, course := range s.courses {
		if course.Kind == KindLab {
			for i := 0; i < course.SessionsPerWeek; i++ {
				s.placeLab(t, course)
			}
		}
	}
	for _, course := range s.courses {
		if course.Kind != KindLab {
			for i := 0; i < course.SessionsPerWeek; i++ {
				s.placeLecture(t, course)
			}
		}
	}
	return t
}

// placeLab looks for a run of LabSpan free slots on a random day where the
// teacher is also free at those slot indices on every other day. Failing
// that within the attempt budget, the lab degrades to a single unmarked
// session; the search later repairs it or keeps it as a low-fitness artifact.
func (s *seeder) placeLab(t *Timetable, course CourseSpec) {
	span := course.LabSpan
	if span < 1 {
		span = 1
	}
	days := len(s.grid.days)
	slots := s.grid.SlotsPerDay()
	room := s.rooms.pick(s.rng, KindLab)

	if span <= slots {
		for attempt := 0; attempt < s.tries; attempt++ {
			day := s.rng.Intn(days)
			start := s.rng.Intn(slots - span + 1)
			if !s.runFree(t, day, start, span) || s.teacherHolds(t, course.Teacher, start, span) {
				continue
			}
			group := uuid.NewString()
			for part := 0; part < span; part++ {
				t.Set(day, start+part, &Session{
					CourseCode:  course.Code,
					CourseName:  course.Name,
					Teacher:     course.Teacher,
					Room:        room,
					Kind:        KindLab,
					Part:        part + 1,
					TotalParts:  span,
					Consecutive: span > 1,
					GroupID:     group,
				})
			}
			return
		}
	}

	// Degraded fallback: one non-consecutive slot anywhere.
	s.placeSingle(t, course, KindLab, room)
}

func (s *seeder) placeLecture(t *Timetable, course CourseSpec) {
	s.placeSingle(t, course, KindLecture, s.rooms.pick(s.rng, KindLecture))
}

// placeSingle drops one session into a random empty cell. Every cell holds at
// most one session, so an empty cell is by construction free of
// same-teacher-same-time conflicts. An exhausted attempt budget leaves the
// request unplaced; under-scheduling is penalised by fitness, never fatal.
func (s *seeder) placeSingle(t *Timetable, course CourseSpec, kind SessionKind, room string) {
	days := len(s.grid.days)
	slots := s.grid.SlotsPerDay()

	for attempt := 0; attempt < s.tries; attempt++ {
		day := s.rng.Intn(days)
		slot := s.rng.Intn(slots)
		if t.At(day, slot) != nil {
			continue
		}
		t.Set(day, slot, &Session{
			CourseCode: course.Code,
			CourseName: course.Name,
			Teacher:    course.Teacher,
			Room:       room,
			Kind:       kind,
			Part:       1,
			TotalParts: 1,
		})
		return
	}
}

func (s *seeder) runFree(t *Timetable, day, start, span int) bool {
	for i := 0; i < span; i++ {
		if t.At(day, start+i) != nil {
			return false
		}
	}
	return true
}

// teacherHolds reports whether the teacher already occupies any of the slot
// indices start..start+span-1 on any day.
func (s *seeder) teacherHolds(t *Timetable, teacher string, start, span int) bool {
	for day := range s.grid.days {
		for i := 0; i < span; i++ {
			if sess := t.At(day, start+i); sess != nil && sess.Teacher == teacher {
				return true
			}
		}
	}
	return false
}
