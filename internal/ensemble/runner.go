// Package ensemble runs the detector across multiple symbol scripts and
// seeds in parallel and aggregates per-run flag counts into a summary.
package ensemble

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/foundups/pqn-detector/internal/detector"
	"github.com/foundups/pqn-detector/internal/symbols"
)

// defaultWorkers bounds parallelism when the caller does not choose one.
const defaultWorkers = 4

// Spec describes one ensemble sweep: every script is run with every seed.
type Spec struct {
	Base    detector.Config `json:"base"`
	Scripts []string        `json:"scripts"`
	Seeds   []int64         `json:"seeds"`
}

// Validate checks the sweep description.
func (s *Spec) Validate() error {
	if err := s.Base.Validate(); err != nil {
		return fmt.Errorf("base config: %w", err)
	}
	if len(s.Scripts) == 0 {
		return fmt.Errorf("at least one script is required")
	}
	if len(s.Seeds) == 0 {
		return fmt.Errorf("at least one seed is required")
	}
	for _, script := range s.Scripts {
		if _, err := symbols.NewScriptSource(script); err != nil {
			return err
		}
	}
	return nil
}

// RunSummary is the per-run aggregate kept by the ensemble. Events
// themselves are discarded; only counts survive.
type RunSummary struct {
	Script     string         `json:"script"`
	Seed       int64          `json:"seed"`
	Steps      int            `json:"steps"`
	Events     int            `json:"events"`
	FlagCounts map[string]int `json:"flag_counts"`
	Err        string         `json:"error,omitempty"`
}

// Summary aggregates a whole sweep.
type Summary struct {
	Runs       []RunSummary   `json:"runs"`
	FlagTotals map[string]int `json:"flag_totals"`
}

// Runner executes ensemble sweeps on a bounded worker pool.
type Runner struct {
	workers int
	log     zerolog.Logger
}

// NewRunner creates a runner with the given parallelism; non-positive
// values fall back to the default.
func NewRunner(workers int, log zerolog.Logger) *Runner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Runner{
		workers: workers,
		log:     log.With().Str("component", "ensemble").Logger(),
	}
}

type job struct {
	index  int
	script string
	seed   int64
}

// Run executes the sweep. Individual run failures are recorded in their
// summary rather than aborting the sweep; the only hard errors are an
// invalid spec and context cancellation.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Summary, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	jobs := make([]job, 0, len(spec.Scripts)*len(spec.Seeds))
	for _, script := range spec.Scripts {
		for _, seed := range spec.Seeds {
			jobs = append(jobs, job{index: len(jobs), script: script, seed: seed})
		}
	}

	r.log.Info().
		Int("runs", len(jobs)).
		Int("workers", r.workers).
		Msg("Starting ensemble sweep")

	jobCh := make(chan job, len(jobs))
	summaries := make([]RunSummary, len(jobs))

	workers := r.workers
	if len(jobs) < workers {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				summaries[j.index] = r.runOne(ctx, spec.Base, j)
			}
		}()
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Runs:       summaries,
		FlagTotals: make(map[string]int),
	}
	for _, run := range summaries {
		for flag, n := range run.FlagCounts {
			summary.FlagTotals[flag] += n
		}
	}
	return summary, nil
}

// runOne executes a single (script, seed) cell of the sweep.
func (r *Runner) runOne(ctx context.Context, base detector.Config, j job) RunSummary {
	summary := RunSummary{Script: j.script, Seed: j.seed}

	cfg := base
	cfg.Seed = j.seed

	src, err := symbols.NewScriptSource(j.script)
	if err != nil {
		summary.Err = err.Error()
		return summary
	}

	d, err := detector.New(cfg, r.log)
	if err != nil {
		summary.Err = err.Error()
		return summary
	}

	result, err := d.Run(ctx, src)
	if result != nil {
		summary.Steps = result.Steps
		summary.Events = len(result.Events)
		summary.FlagCounts = result.FlagCounts
	}
	if err != nil {
		summary.Err = err.Error()
	}
	return summary
}
