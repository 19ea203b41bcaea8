package evolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/pthm-cable/salvo/board"
	"github.com/pthm-cable/salvo/game"
	"github.com/pthm-cable/salvo/neural"
	"github.com/pthm-cable/salvo/telemetry"
)

// ErrEmptyPopulation is returned by Step when there is nothing to evaluate.
var ErrEmptyPopulation = errors.New("empty population")

// Result describes one completed generation.
type Result struct {
	// Scores of the evaluated networks, ascending (best first).
	Scores    []float64
	Stats     telemetry.GenerationStats
	Survivors int
	Timer     *telemetry.PhaseTimer
}

// Trainer owns a population and advances it one generation at a time.
// It is not safe for concurrent use; evaluation fans out internally.
type Trainer struct {
	rules   board.RuleSet
	placer  *board.Placer
	pop     *Population
	rng     *rand.Rand
	workers int
	logger  *slog.Logger
}

// NewTrainer creates a trainer for pop. Networks whose input or output width
// does not match rules are dropped; Fill replaces them.
func NewTrainer(rules board.RuleSet, pop *Population, rng *rand.Rand, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	if pop == nil {
		pop = &Population{}
	}
	t := &Trainer{
		rules:   rules,
		placer:  board.NewPlacer(),
		pop:     pop,
		rng:     rng,
		workers: runtime.GOMAXPROCS(0),
		logger:  logger,
	}
	t.dropMismatched()
	return t
}

func (t *Trainer) dropMismatched() {
	cells := t.rules.Cells()
	kept := t.pop.Networks[:0]
	dropped := 0
	for _, n := range t.pop.Networks {
		if n == nil || n.NumInputs() != cells*game.NumStates || n.NumOutputs() != cells {
			dropped++
			continue
		}
		kept = append(kept, n)
	}
	for i := len(kept); i < len(t.pop.Networks); i++ {
		t.pop.Networks[i] = nil
	}
	t.pop.Networks = kept
	if dropped > 0 {
		t.logger.Warn("discarded networks with mismatched topology",
			"dropped", dropped, "kept", len(kept), "cells", cells)
	}
}

// SetWorkers sets the evaluation parallelism. n < 1 means GOMAXPROCS.
func (t *Trainer) SetWorkers(n int) {
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	t.workers = n
}

// Population returns the trained population.
func (t *Trainer) Population() *Population { return t.pop }

// Rules returns the rule set games are played under.
func (t *Trainer) Rules() board.RuleSet { return t.rules }

// Fill adds freshly initialized networks until the pool reaches the target
// size. hidden gives the hidden layer sizes as fractions between the input
// and output widths.
func (t *Trainer) Fill(params Params, hidden []float64) error {
	need := params.TargetPoolSize - len(t.pop.Networks)
	if need <= 0 {
		return nil
	}
	sizes := neural.Topology(t.rules.Cells(), hidden)
	for i := 0; i < need; i++ {
		n, err := neural.New(t.rng, sizes)
		if err != nil {
			return fmt.Errorf("seeding network: %w", err)
		}
		t.pop.Networks = append(t.pop.Networks, n)
	}
	t.logger.Debug("seeded networks", "count", need, "sizes", sizes)
	return nil
}

type evalJob struct {
	idx  int
	seed int64
}

// Evaluate plays params.Attempts games with every network and returns the
// mean shots to win, indexed like Population().Networks. Lower is better.
//
// Every network gets its own generator seeded from the trainer's generator
// before any work starts, so scores depend only on the seed and not on how
// jobs are scheduled.
func (t *Trainer) Evaluate(ctx context.Context, params Params) ([]float64, error) {
	nets := t.pop.Networks
	scores := make([]float64, len(nets))
	if len(nets) == 0 {
		return scores, nil
	}

	jobs := make([]evalJob, len(nets))
	for i := range jobs {
		jobs[i] = evalJob{idx: i, seed: t.rng.Int63()}
	}

	workers := t.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	jobChan := make(chan evalJob)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) { errOnce.Do(func() { firstErr = err }) }

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				if ctx.Err() != nil {
					continue
				}
				score, err := t.fitness(nets[job.idx], params.Attempts, rand.New(rand.NewSource(job.seed)))
				if err != nil {
					fail(fmt.Errorf("network %d: %w", job.idx, err))
					continue
				}
				scores[job.idx] = score
			}
		}()
	}

dispatch:
	for _, job := range jobs {
		select {
		case jobChan <- job:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobChan)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}

// fitness is the mean number of shots net needs to win over attempts games.
func (t *Trainer) fitness(net *neural.Network, attempts int, rng *rand.Rand) (float64, error) {
	total := 0
	for i := 0; i < attempts; i++ {
		shots, err := game.Play(t.rules, t.placer, rng, net)
		if err != nil {
			return 0, err
		}
		total += shots
	}
	return float64(total) / float64(attempts), nil
}

// Step runs one generation: evaluate every network, keep the best
// ceil(SurvivalRate*TargetPoolSize), then refill to the target size with
// mutated clones of survivors picked uniformly at random.
func (t *Trainer) Step(ctx context.Context, params Params) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	if len(t.pop.Networks) == 0 {
		return Result{}, ErrEmptyPopulation
	}
	timer := telemetry.NewPhaseTimer()

	timer.StartPhase(telemetry.PhaseEvaluate)
	scores, err := t.Evaluate(ctx, params)
	if err != nil {
		timer.Stop()
		return Result{}, fmt.Errorf("evaluating generation %d: %w", t.pop.Generation+1, err)
	}

	timer.StartPhase(telemetry.PhaseSelect)
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })
	ranked := make([]float64, len(order))
	for i, idx := range order {
		ranked[i] = scores[idx]
	}
	k := params.Survivors(len(order))
	survivors := make([]*neural.Network, k, params.TargetPoolSize)
	for i := 0; i < k; i++ {
		survivors[i] = t.pop.Networks[order[i]]
	}

	timer.StartPhase(telemetry.PhaseRefill)
	next := survivors
	for len(next) < params.TargetPoolSize {
		child := survivors[t.rng.Intn(k)].Clone()
		child.Mutate(t.rng, params.MutationEpsilon, params.MutationRate)
		next = append(next, child)
	}
	t.pop.Networks = next
	t.pop.Generation++
	timer.Stop()

	return Result{
		Scores:    ranked,
		Stats:     telemetry.Summarize(t.pop.Generation, ranked),
		Survivors: k,
		Timer:     timer,
	}, nil
}
