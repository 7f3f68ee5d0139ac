// Package optimizer builds weekly teaching timetables with a genetic search
// and an optional simulated-annealing refinement pass.
package optimizer

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/chronoslab/timetabler/pkg/errors"
)

// Algorithm selects the search strategy for a run.
type Algorithm string

const (
	AlgorithmGenetic   Algorithm = "genetic"
	AlgorithmAnnealing Algorithm = "annealing"
	AlgorithmHybrid    Algorithm = "hybrid"
)

// Options configures one optimization run. Zero values fall back to
// problem-size defaults.
type Options struct {
	Algorithm Algorithm
	Seed      int64
	Params    Params
	Anneal    AnnealParams
}

// Optimizer is the package facade. It wires the slot grid, the seeder, the
// evaluator and the search engines together for a single problem instance.
type Optimizer struct {
	grid      *SlotGrid
	courses   []CourseSpec
	resources Resources
	logger    *zap.Logger
}

func New(grid *SlotGrid, courses []CourseSpec, res Resources, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{grid: grid, courses: courses, resources: res, logger: logger}
}

// Run executes the configured search and returns the best timetable found.
func (o *Optimizer) Run(ctx context.Context, opts Options) (*Result, error) {
	if len(o.courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one course is required")
	}
	switch opts.Algorithm {
	case "", AlgorithmGenetic, AlgorithmAnnealing, AlgorithmHybrid:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown algorithm: "+string(opts.Algorithm))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	params := o.scaleParams(opts.Params)
	eval := NewEvaluator(o.courses)

	started := time.Now()
	var (
		best    *Timetable
		score   float64
		outcome SearchOutcome
	)

	switch opts.Algorithm {
	case AlgorithmAnnealing:
		seeder := newSeeder(o.grid, o.courses, o.resources, rng, params.PlacementTries)
		annealer := NewAnnealer(eval, opts.Anneal, rng, o.logger)
		best, score = annealer.Refine(ctx, seeder.build())
		outcome.History = []float64{score}
	default:
		engine := NewEngine(o.grid, o.courses, o.resources, eval, params, rng, o.logger)
		outcome = engine.Run(ctx)
		best, score = outcome.Best, outcome.BestScore

		if opts.Algorithm == AlgorithmHybrid {
			annealer := NewAnnealer(eval, opts.Anneal, rng, o.logger)
			best, score = annealer.Refine(ctx, best)
			outcome.History = append(outcome.History, score)
		}
	}

	hits, misses := eval.CacheStats()
	o.logger.Info("optimization finished",
		zap.String("algorithm", string(opts.Algorithm)),
		zap.Float64("fitness", score),
		zap.Int("generations", outcome.Generations),
		zap.Uint64("cache_hits", hits),
		zap.Uint64("cache_misses", misses),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &Result{
		Timetable:    best,
		FitnessScore: score,
		Generations:  outcome.Generations,
		History:      outcome.History,
		Summary:      Summarize(best, o.courses),
		CacheHits:    hits,
		CacheMisses:  misses,
		Elapsed:      time.Since(started),
	}, nil
}

// scaleParams fills in population and generation counts from the problem
// size when the caller left them unset. Bigger instances get a bigger
// search budget.
func (o *Optimizer) scaleParams(p Params) Params {
	total := 0
	for _, c := range o.courses {
		total += c.SessionsPerWeek
	}
	if p.PopulationSize <= 0 || p.Generations <= 0 {
		var pop, gens int
		switch {
		case total < 50:
			pop, gens = 50, 200
		case total < 100:
			pop, gens = 80, 300
		default:
			pop, gens = 120, 500
		}
		if p.PopulationSize <= 0 {
			p.PopulationSize = pop
		}
		if p.Generations <= 0 {
			p.Generations = gens
		}
	}
	return p.withDefaults()
}
