package affectation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options tunes a run.
type Options struct {
	Executions                int
	Seed                      int64
	Workers                   int
	ErrorOrganizationRef      string
	EditOrganizationRef       string
	ErasmusReferenceThreshold int
	FullDistancePenalty       float64
}

// DefaultOptions mirrors the historical constants of the affectation process.
func DefaultOptions() Options {
	return Options{
		Executions:                1,
		Seed:                      1,
		Workers:                   1,
		ErrorOrganizationRef:      "999",
		EditOrganizationRef:       "888",
		ErasmusReferenceThreshold: 500,
		FullDistancePenalty:       3000,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.Executions <= 0 {
		o.Executions = defaults.Executions
	}
	if o.Workers <= 0 {
		o.Workers = defaults.Workers
	}
	if o.ErrorOrganizationRef == "" {
		o.ErrorOrganizationRef = defaults.ErrorOrganizationRef
	}
	if o.EditOrganizationRef == "" {
		o.EditOrganizationRef = defaults.EditOrganizationRef
	}
	if o.ErasmusReferenceThreshold <= 0 {
		o.ErasmusReferenceThreshold = defaults.ErasmusReferenceThreshold
	}
	if o.FullDistancePenalty <= 0 {
		o.FullDistancePenalty = defaults.FullDistancePenalty
	}
	return o
}

// Persister stores the best solution found so far.
type Persister interface {
	Persist(ctx context.Context, solution *Solution) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, solution *Solution) error

// Persist implements Persister.
func (f PersisterFunc) Persist(ctx context.Context, solution *Solution) error {
	return f(ctx, solution)
}

// Result describes a finished run.
type Result struct {
	Executions int       `json:"executions"`
	Seed       int64     `json:"seed"`
	BestCost   int       `json:"best_cost"`
	BestTrial  int       `json:"best_trial"`
	Costs      []int     `json:"costs"`
	History    []int     `json:"history"`
	Persisted  int       `json:"persisted"`
	Solution   *Solution `json:"solution"`
	Report     Report    `json:"report"`
	Duration   string    `json:"duration"`
}

// Engine repeats the build and keeps the cheapest solution.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// NewEngine constructs an engine.
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

type trialOutcome struct {
	solution *Solution
	report   Report
}

// Run executes the configured number of trials against the dataset. Sequential runs persist
// every strict improvement; parallel runs persist the winner once every trial has finished.
// Both modes select the same winner: the lowest cost, earliest trial first.
func (e *Engine) Run(ctx context.Context, ds *Dataset, persister Persister) (*Result, error) {
	return e.RunWith(ctx, ds, persister, e.opts)
}

// RunWith executes a run with per-call overrides of executions, seed and workers.
func (e *Engine) RunWith(ctx context.Context, ds *Dataset, persister Persister, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	idx, err := buildIndex(ds, opts)
	if err != nil {
		return nil, fmt.Errorf("index dataset: %w", err)
	}

	master := rand.New(rand.NewSource(opts.Seed))
	seeds := make([]int64, opts.Executions)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	result := &Result{
		Executions: opts.Executions,
		Seed:       opts.Seed,
		BestCost:   math.MaxInt,
		BestTrial:  -1,
		Costs:      make([]int, 0, opts.Executions),
		History:    make([]int, 0, opts.Executions),
	}

	if opts.Workers > 1 && opts.Executions > 1 {
		err = e.runParallel(ctx, idx, opts, seeds, persister, result)
	} else {
		err = e.runSequential(ctx, idx, opts, seeds, persister, result)
	}
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start).String()
	e.logger.Info("affectation run completed",
		zap.Int("executions", opts.Executions),
		zap.Int("best_cost", result.BestCost),
		zap.Int("best_trial", result.BestTrial),
		zap.Int("error_placements", result.Report.ErrorPlacements),
		zap.Int("failures", len(result.Report.Failures)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (e *Engine) runTrial(idx *index, opts Options, number int, seed int64) trialOutcome {
	logger := e.logger.With(zap.Int("trial", number))
	t := newTrial(idx, opts, seed, logger)
	solution := t.build()
	logger.Info("affectation trial completed", zap.Int("cost", solution.Cost))
	return trialOutcome{solution: solution, report: t.report}
}

// accept records a trial outcome and reports whether it is a strict improvement.
func (r *Result) accept(number int, outcome trialOutcome) bool {
	cost := outcome.solution.Cost
	r.Costs = append(r.Costs, cost)
	improved := cost < r.BestCost
	if improved {
		r.BestCost = cost
		r.BestTrial = number
		r.Solution = outcome.solution
		r.Report = outcome.report
	}
	r.History = append(r.History, r.BestCost)
	return improved
}

func (e *Engine) runSequential(ctx context.Context, idx *index, opts Options, seeds []int64, persister Persister, result *Result) error {
	for i, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !result.accept(i, e.runTrial(idx, opts, i, seed)) {
			continue
		}
		if persister == nil {
			continue
		}
		if err := persister.Persist(ctx, result.Solution); err != nil {
			return fmt.Errorf("persist trial %d: %w", i, err)
		}
		result.Persisted++
	}
	return nil
}

func (e *Engine) runParallel(ctx context.Context, idx *index, opts Options, seeds []int64, persister Persister, result *Result) error {
	outcomes := make([]trialOutcome, len(seeds))
	trials := make(chan int)
	var wg sync.WaitGroup

	workers := opts.Workers
	if workers > len(seeds) {
		workers = len(seeds)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range trials {
				outcomes[i] = e.runTrial(idx, opts, i, seeds[i])
			}
		}()
	}

	var cancelled error
	for i := range seeds {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		trials <- i
	}
	close(trials)
	wg.Wait()
	if cancelled != nil {
		return cancelled
	}

	for i, outcome := range outcomes {
		result.accept(i, outcome)
	}
	if persister != nil && result.Solution != nil {
		if err := persister.Persist(ctx, result.Solution); err != nil {
			return fmt.Errorf("persist trial %d: %w", result.BestTrial, err)
		}
		result.Persisted++
	}
	return nil
}
