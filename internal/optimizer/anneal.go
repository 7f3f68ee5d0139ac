package optimizer

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// AnnealParams tunes the simulated-annealing refinement pass.
type AnnealParams struct {
	InitialTemp  float64
	FinalTemp    float64
	CoolingRate  float64
	MovesPerTemp int
}

func (p AnnealParams) withDefaults() AnnealParams {
	if p.InitialTemp <= 0 {
		p.InitialTemp = 100.0
	}
	if p.FinalTemp <= 0 {
		p.FinalTemp = 1.0
	}
	if p.CoolingRate <= 0 || p.CoolingRate >= 1 {
		p.CoolingRate = 0.9
	}
	if p.MovesPerTemp <= 0 {
		p.MovesPerTemp = 50
	}
	return p
}

// Annealer refines a finished timetable with local moves under a geometric
// cooling schedule. Worse candidates are accepted with probability
// exp(delta/T), so early high temperatures allow escapes from local optima
// while late low temperatures lock the solution in.
type Annealer struct {
	eval   *Evaluator
	params AnnealParams
	rng    *rand.Rand
	logger *zap.Logger
}

func NewAnnealer(eval *Evaluator, params AnnealParams, rng *rand.Rand, logger *zap.Logger) *Annealer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Annealer{eval: eval, params: params.withDefaults(), rng: rng, logger: logger}
}

// Refine walks the neighborhood of seed and returns the best timetable seen,
// which is never worse than the seed itself.
func (a *Annealer) Refine(ctx context.Context, seed *Timetable) (*Timetable, float64) {
	current := seed.Clone()
	currentScore := a.eval.Evaluate(current)
	best := current.Clone()
	bestScore := currentScore

	temp := a.params.InitialTemp
	for temp > a.params.FinalTemp {
		if ctx.Err() != nil {
			break
		}
		for move := 0; move < a.params.MovesPerTemp; move++ {
			candidate := a.neighbor(current)
			if candidate == nil {
				continue
			}
			candidateScore := a.eval.Evaluate(candidate)
			delta := candidateScore - currentScore

			if delta > 0 || a.rng.Float64() < math.Exp(delta/temp) {
				current = candidate
				currentScore = candidateScore
				if currentScore > bestScore {
					best = current.Clone()
					bestScore = currentScore
				}
			}
		}
		temp *= a.params.CoolingRate
	}

	a.logger.Debug("annealing finished", zap.Float64("best_score", bestScore))
	return best, bestScore
}

// neighbor produces one perturbed clone. Three move kinds carry equal
// weight: swap two sessions within a day, relocate a session to an empty
// cell, and swap two sessions anywhere in the week. Cells holding part of a
// consecutive lab run are never touched.
func (a *Annealer) neighbor(t *Timetable) *Timetable {
	switch a.rng.Intn(3) {
	case 0:
		return a.swapWithinDay(t)
	case 1:
		return a.moveToEmpty(t)
	default:
		return a.swapAnywhere(t)
	}
}

func (a *Annealer) swapWithinDay(t *Timetable) *Timetable {
	grid := t.Grid()
	days, slots := len(grid.Days()), grid.SlotsPerDay()
	for attempt := 0; attempt < 10; attempt++ {
		d := a.rng.Intn(days)
		s1, s2 := a.rng.Intn(slots), a.rng.Intn(slots)
		if s1 == s2 {
			continue
		}
		if !movable(t.At(d, s1)) || !movable(t.At(d, s2)) {
			continue
		}
		clone := t.Clone()
		clone.Swap(d, s1, d, s2)
		return clone
	}
	return nil
}

func (a *Annealer) moveToEmpty(t *Timetable) *Timetable {
	grid := t.Grid()
	days, slots := len(grid.Days()), grid.SlotsPerDay()
	for attempt := 0; attempt < 10; attempt++ {
		d1, s1 := a.rng.Intn(days), a.rng.Intn(slots)
		d2, s2 := a.rng.Intn(days), a.rng.Intn(slots)
		if !movable(t.At(d1, s1)) || t.At(d2, s2) != nil {
			continue
		}
		clone := t.Clone()
		clone.Swap(d1, s1, d2, s2)
		return clone
	}
	return nil
}

func (a *Annealer) swapAnywhere(t *Timetable) *Timetable {
	grid := t.Grid()
	days, slots := len(grid.Days()), grid.SlotsPerDay()
	for attempt := 0; attempt < 10; attempt++ {
		d1, s1 := a.rng.Intn(days), a.rng.Intn(slots)
		d2, s2 := a.rng.Intn(days), a.rng.Intn(slots)
		if d1 == d2 && s1 == s2 {
			continue
		}
		if !movable(t.At(d1, s1)) || !movable(t.At(d2, s2)) {
			continue
		}
		clone := t.Clone()
		clone.Swap(d1, s1, d2, s2)
		return clone
	}
	return nil
}

func movable(s *Session) bool {
	return s != nil && !s.Consecutive
}
