package optimizer

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Params tunes the evolutionary search.
type Params struct {
	PopulationSize  int
	Generations     int
	MutationRate    float64
	CrossoverRate   float64
	EliteFraction   float64
	TournamentSize  int
	TargetScore     float64
	StagnationLimit int
	Workers         int
	PlacementTries  int
}

func (p Params) withDefaults() Params {
	if p.PopulationSize <= 0 {
		p.PopulationSize = 50
	}
	if p.Generations <= 0 {
		p.Generations = 200
	}
	if p.MutationRate <= 0 {
		p.MutationRate = 0.15
	}
	if p.CrossoverRate <= 0 {
		p.CrossoverRate = 0.8
	}
	if p.EliteFraction <= 0 {
		p.EliteFraction = 0.1
	}
	if p.TournamentSize <= 0 {
		p.TournamentSize = 5
	}
	if p.StagnationLimit <= 0 {
		p.StagnationLimit = p.Generations
	}
	if p.Workers <= 0 {
		p.Workers = runtime.NumCPU()
	}
	if p.PlacementTries <= 0 {
		p.PlacementTries = 50
	}
	return p
}

// SearchOutcome is the raw product of one evolutionary run.
type SearchOutcome struct {
	Best        *Timetable
	BestScore   float64
	Generations int
	History     []float64
}

// Engine runs the generational loop over a population of timetables.
// Generations are strictly sequential; only fitness evaluation inside a
// generation fans out across workers.
type Engine struct {
	grid      *SlotGrid
	courses   []CourseSpec
	resources Resources
	eval      *Evaluator
	params    Params
	rng       *rand.Rand
	logger    *zap.Logger
}

// NewEngine assembles an engine. The rand source drives every stochastic
// decision in sequence, so a fixed seed reproduces the run exactly.
func NewEngine(grid *SlotGrid, courses []CourseSpec, res Resources, eval *Evaluator, params Params, rng *rand.Rand, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		grid:      grid,
		courses:   courses,
		resources: res,
		eval:      eval,
		params:    params.withDefaults(),
		rng:       rng,
		logger:    logger,
	}
}

// Run executes the search until the generation budget, the target score, the
// stagnation limit or the context deadline is reached. The best individual
// found so far is always returned; cancellation never yields a partial one.
func (e *Engine) Run(ctx context.Context) SearchOutcome {
	p := e.params
	seeder := newSeeder(e.grid, e.courses, e.resources, e.rng, p.PlacementTries)

	population := make([]*Timetable, p.PopulationSize)
	for i := range population {
		population[i] = seeder.build()
	}

	var (
		bestEver      *Timetable
		bestScore     = -1.0
		history       = make([]float64, 0, p.Generations)
		stagnation    int
		generationRun int
	)

	scores := make([]float64, p.PopulationSize)
	for gen := 0; gen < p.Generations; gen++ {
		if ctx.Err() != nil {
			break
		}
		generationRun = gen + 1

		e.evaluateAll(population, scores, p.Workers)

		improved := false
		for i, score := range scores {
			if score > bestScore {
				bestScore = score
				bestEver = population[i].Clone()
				improved = true
			}
		}
		history = append(history, bestScore)

		if improved {
			stagnation = 0
		} else {
			stagnation++
		}
		if p.TargetScore > 0 && bestScore >= p.TargetScore {
			e.logger.Debug("target score reached", zap.Int("generation", gen), zap.Float64("score", bestScore))
			break
		}
		if stagnation >= p.StagnationLimit {
			e.logger.Debug("search stagnated", zap.Int("generation", gen), zap.Int("stagnation", stagnation))
			break
		}

		population = e.nextGeneration(population, scores)
	}

	if bestEver == nil {
		// Context cancelled before the first evaluation completed.
		bestEver = population[0]
		bestScore = e.eval.Evaluate(bestEver)
		history = append(history, bestScore)
	}

	return SearchOutcome{
		Best:        bestEver,
		BestScore:   bestScore,
		Generations: generationRun,
		History:     history,
	}
}

// evaluateAll scores the population in parallel chunks. Individuals share no
// mutable state; the evaluator cache is the only shared structure and is
// safe for concurrent use.
func (e *Engine) evaluateAll(population []*Timetable, scores []float64, workers int) {
	n := len(population)
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start, end := w*chunk, (w+1)*chunk
		if start >= n {
			break
		}
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e2 int) {
			defer wg.Done()
			for i := s; i < e2; i++ {
				scores[i] = e.eval.Evaluate(population[i])
			}
		}(start, end)
	}
	wg.Wait()
}

func (e *Engine) nextGeneration(population []*Timetable, scores []float64) []*Timetable {
	p := e.params
	next := make([]*Timetable, 0, p.PopulationSize)

	eliteCount := int(p.EliteFraction * float64(p.PopulationSize))
	if eliteCount < 1 {
		eliteCount = 1
	}
	order := make([]int, len(population))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	for i := 0; i < eliteCount && i < len(order); i++ {
		next = append(next, population[order[i]].Clone())
	}

	for len(next) < p.PopulationSize {
		parent1 := e.tournament(population, scores)
		parent2 := e.tournament(population, scores)

		var child *Timetable
		if e.rng.Float64() < p.CrossoverRate {
			child = e.crossover(parent1, parent2)
		} else {
			child = parent1.Clone()
		}
		if e.rng.Float64() < p.MutationRate {
			e.mutate(child)
		}
		next = append(next, child)
	}
	return next
}

// tournament samples TournamentSize individuals and keeps the fittest.
func (e *Engine) tournament(population []*Timetable, scores []float64) *Timetable {
	size := e.params.TournamentSize
	if size > len(population) {
		size = len(population)
	}
	best := e.rng.Intn(len(population))
	for i := 1; i < size; i++ {
		candidate := e.rng.Intn(len(population))
		if scores[candidate] > scores[best] {
			best = candidate
		}
	}
	return population[best]
}

// crossover splits the week at a random day boundary: the child inherits
// whole days from either parent, so intra-day lab runs survive intact.
func (e *Engine) crossover(parent1, parent2 *Timetable) *Timetable {
	days := len(e.grid.days)
	child := NewTimetable(e.grid)
	split := 1
	if days > 1 {
		split = 1 + e.rng.Intn(days-1)
	}
	for d := 0; d < days; d++ {
		source := parent1
		if d >= split {
			source = parent2
		}
		for s := 0; s < e.grid.SlotsPerDay(); s++ {
			if sess := source.At(d, s); sess != nil {
				copied := *sess
				child.Set(d, s, &copied)
			}
		}
	}
	return child
}

// mutate swaps two occupied cells, skipping any cell holding part of a
// consecutive lab group so mutation can never split a lab across slots.
func (e *Engine) mutate(t *Timetable) {
	days := len(e.grid.days)
	slots := e.grid.SlotsPerDay()

	for attempt := 0; attempt < 10; attempt++ {
		d1, s1 := e.rng.Intn(days), e.rng.Intn(slots)
		d2, s2 := e.rng.Intn(days), e.rng.Intn(slots)
		first, second := t.At(d1, s1), t.At(d2, s2)
		if first == nil || second == nil {
			continue
		}
		if first.Consecutive || second.Consecutive {
			continue
		}
		t.Swap(d1, s1, d2, s2)
		return
	}
}
