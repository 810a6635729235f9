package experiment

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a batch of episodes, ordered by episode index.
type Result struct {
	Config   Config
	Episodes []*Episode
	Summary  Summary
	Elapsed  time.Duration
}

// Runner runs the episodes of an experiment one after another.
type Runner struct {
	cfg   Config
	build Builder
	reg   *Registry
	log   logrus.FieldLogger
}

func NewRunner(cfg Config, build Builder, reg *Registry, log logrus.FieldLogger) *Runner {
	return &Runner{cfg: cfg, build: build, reg: reg, log: log}
}

func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	eps := make([]*Episode, 0, r.cfg.Episodes)
	for i := 0; i < r.cfg.Episodes; i++ {
		ep, err := runOne(ctx, r.cfg, r.build, r.reg, i, r.log)
		if err != nil {
			return nil, err
		}
		eps = append(eps, ep)
	}
	return finish(r.cfg, eps, start, r.log), nil
}

// Ensemble runs the episodes of an experiment in parallel. Each episode
// gets its own task and policy from the builder, so no state is shared
// between workers.
type Ensemble struct {
	cfg   Config
	build Builder
	reg   *Registry
	log   logrus.FieldLogger
}

func NewEnsemble(cfg Config, build Builder, reg *Registry, log logrus.FieldLogger) *Ensemble {
	return &Ensemble{cfg: cfg, build: build, reg: reg, log: log}
}

func (e *Ensemble) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	eps := make([]*Episode, e.cfg.Episodes)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < e.cfg.Episodes; i++ {
		g.Go(func() error {
			ep, err := runOne(ctx, e.cfg, e.build, e.reg, i, e.log)
			if err != nil {
				return err
			}
			eps[i] = ep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return finish(e.cfg, eps, start, e.log), nil
}

func runOne(ctx context.Context, cfg Config, build Builder, reg *Registry, i int, log logrus.FieldLogger) (*Episode, error) {
	t, p, err := build(i)
	if err != nil {
		return nil, fmt.Errorf("episode %d: %w", i, err)
	}
	ep, err := RunEpisode(ctx, t, p, cfg.MaxSteps, reg.DefaultMetrics(t.Target())...)
	if err != nil {
		return nil, fmt.Errorf("episode %d: %w", i, err)
	}
	ep.Index = i

	log.WithFields(logrus.Fields{
		"episode": i,
		"return":  ep.Return,
		"steps":   ep.Steps,
		"done":    ep.Done,
	}).Debug("episode finished")
	return ep, nil
}

func finish(cfg Config, eps []*Episode, start time.Time, log logrus.FieldLogger) *Result {
	res := &Result{
		Config:   cfg,
		Episodes: eps,
		Summary:  Summarize(eps),
		Elapsed:  time.Since(start),
	}
	log.WithFields(logrus.Fields{
		"episodes":    res.Summary.Episodes,
		"mean_return": res.Summary.MeanReturn,
		"std_return":  res.Summary.StdReturn,
		"best":        res.Summary.Best,
		"elapsed":     res.Elapsed,
	}).Info("experiment finished")
	return res
}
