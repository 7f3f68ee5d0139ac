package optimizer

import (
	"sort"
	"sync"
	"sync/atomic"
)

const baseFitness = 1000.0

// Sub-score weights. Conflicts and lab integrity dominate; workload and room
// balance act as tie-breakers.
const (
	weightConflicts  = 500.0
	weightLabGroups  = 800.0
	weightCompletion = 600.0
	weightWorkload   = 300.0
	weightRooms      = 200.0
)

// Evaluator scores timetables against the weekly course demand. Evaluation is
// pure: identical content always yields the identical score, which makes the
// content-hash cache sound. The cache tolerates concurrent readers and
// writers; values are immutable once computed, so a racing duplicate store is
// idempotent.
type Evaluator struct {
	courses []CourseSpec
	byCode  map[string]CourseSpec
	cache   sync.Map
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewEvaluator builds an evaluator for the given course demand.
func NewEvaluator(courses []CourseSpec) *Evaluator {
	byCode := make(map[string]CourseSpec, len(courses))
	for _, c := range courses {
		byCode[c.Code] = c
	}
	return &Evaluator{courses: courses, byCode: byCode}
}

// Evaluate returns the fitness score for the timetable, serving repeated
// evaluations of identical content from the cache.
func (e *Evaluator) Evaluate(t *Timetable) float64 {
	key := t.Hash()
	if cached, ok := e.cache.Load(key); ok {
		e.hits.Add(1)
		return cached.(float64)
	}
	e.misses.Add(1)

	score := baseFitness
	score += e.scoreConflicts(t) * weightConflicts
	score += e.scoreLabGroups(t) * weightLabGroups
	score += e.scoreCompletion(t) * weightCompletion
	score += e.scoreWorkload(t) * weightWorkload
	score += e.scoreRooms(t) * weightRooms
	if score < 0 {
		score = 0
	}

	e.cache.Store(key, score)
	return score
}

// CacheStats reports cache hits and misses since construction.
func (e *Evaluator) CacheStats() (hits, misses uint64) {
	return e.hits.Load(), e.misses.Load()
}

// scoreConflicts rewards conflict-free placements and penalises teacher and
// room double-bookings at a (day, slot). Occupants of one slot sharing a room
// are tolerated only when they belong to the same consecutive lab group.
func (e *Evaluator) scoreConflicts(t *Timetable) float64 {
	score := 0.0
	days := len(t.grid.days)
	slots := t.grid.SlotsPerDay()

	for d := 0; d < days; d++ {
		teacherAt := make(map[int]map[string]bool)
		roomAt := make(map[int]map[string]string) // room -> group id of first occupant
		for s := 0; s < slots; s++ {
			sess := t.At(d, s)
			if sess == nil {
				continue
			}
			if teacherAt[s] == nil {
				teacherAt[s] = make(map[string]bool)
			}
			if teacherAt[s][sess.Teacher] {
				score -= 200
			} else {
				teacherAt[s][sess.Teacher] = true
				score += 10
			}

			if roomAt[s] == nil {
				roomAt[s] = make(map[string]string)
			}
			if group, taken := roomAt[s][sess.Room]; taken {
				if sess.Consecutive && group != "" && group == sess.GroupID {
					score += 5
				} else {
					score -= 150
				}
			} else {
				roomAt[s][sess.Room] = sess.GroupID
				score += 5
			}
		}
	}
	return score
}

// scoreLabGroups verifies the structural integrity of every lab group.
// Intact groups earn the reward only up to the course's weekly demand;
// surplus intact groups are penalised at the same magnitude.
func (e *Evaluator) scoreLabGroups(t *Timetable) float64 {
	groups := make(map[string][]groupMember)
	score := 0.0

	for d := range t.cells {
		for s, sess := range t.cells[d] {
			if sess == nil || sess.Kind != KindLab {
				continue
			}
			if sess.GroupID != "" && sess.TotalParts > 1 {
				groups[sess.GroupID] = append(groups[sess.GroupID], groupMember{day: d, slot: s, session: sess})
				continue
			}
			spec, known := e.byCode[sess.CourseCode]
			if known && spec.LabSpan > 1 {
				// A multi-span lab reduced to a lone non-consecutive session.
				score -= 150
			} else {
				// Correctly single-slot lab.
				score += 10
			}
		}
	}

	intactByCourse := make(map[string]int)
	for _, members := range groups {
		if e.groupIntact(members) {
			intactByCourse[members[0].session.CourseCode]++
		} else {
			score -= 100
		}
	}
	for code, intact := range intactByCourse {
		required := intact
		if spec, known := e.byCode[code]; known {
			required = spec.SessionsPerWeek
		}
		if intact > required {
			score += float64(required)*200 - float64(intact-required)*200
		} else {
			score += float64(intact) * 200
		}
	}
	return score
}

type groupMember struct {
	day, slot int
	session   *Session
}

func (e *Evaluator) groupIntact(members []groupMember) bool {
	if len(members) == 0 {
		return false
	}
	first := members[0].session
	if len(members) != first.TotalParts {
		return false
	}
	sort.Slice(members, func(i, j int) bool { return members[i].slot < members[j].slot })
	for i, m := range members {
		s := m.session
		if m.day != members[0].day {
			return false
		}
		if i > 0 && m.slot != members[i-1].slot+1 {
			return false
		}
		if s.CourseCode != first.CourseCode || s.Teacher != first.Teacher || s.Room != first.Room || s.Kind != first.Kind {
			return false
		}
	}
	return true
}

// scoreCompletion scores per-course session counts against weekly demand.
// Over- and under-scheduling are penalised asymmetrically.
func (e *Evaluator) scoreCompletion(t *Timetable) float64 {
	counts := sessionCounts(t)
	score := 0.0
	for _, course := range e.courses {
		scheduled := counts[course.Code]
		required := course.SessionsPerWeek
		switch {
		case scheduled == required:
			score += 100
		case scheduled > required:
			score += 50 - float64(scheduled-required)*10
		default:
			score += float64(scheduled) / float64(required) * 80
		}
	}
	return score
}

// scoreWorkload compares each teacher's weekly load to the mean.
func (e *Evaluator) scoreWorkload(t *Timetable) float64 {
	loads := make(map[string]int)
	for d := range t.cells {
		for _, sess := range t.cells[d] {
			if sess != nil {
				loads[sess.Teacher]++
			}
		}
	}
	if len(loads) == 0 {
		return 0
	}
	total := 0
	for _, n := range loads {
		total += n
	}
	mean := float64(total) / float64(len(loads))

	score := 0.0
	for _, n := range loads {
		if float64(n) <= mean*1.2 {
			score += 20
		} else {
			score -= 10
		}
	}
	return score
}

// scoreRooms rewards rooms carrying between 10% and 40% of all sessions.
func (e *Evaluator) scoreRooms(t *Timetable) float64 {
	usage := make(map[string]int)
	total := 0
	for d := range t.cells {
		for _, sess := range t.cells[d] {
			if sess != nil {
				usage[sess.Room]++
				total++
			}
		}
	}
	if total == 0 {
		return 0
	}
	score := 0.0
	for _, n := range usage {
		share := float64(n) / float64(total)
		if share >= 0.1 && share <= 0.4 {
			score += 15
		}
	}
	return score
}

func sessionCounts(t *Timetable) map[string]int {
	counts := make(map[string]int)
	for d := range t.cells {
		for _, sess := range t.cells[d] {
			if sess != nil {
				counts[sess.CourseCode]++
			}
		}
	}
	return counts
}
