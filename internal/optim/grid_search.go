package optim

import (
	"context"
	"errors"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/quadtask/internal/experiment"
)

// ErrNoCandidate is returned when no grid point could be evaluated.
var ErrNoCandidate = errors.New("optim: no grid point evaluated")

// Evaluator runs an experiment with the given policy parameters.
type Evaluator func(ctx context.Context, params map[string]float64) (*experiment.Result, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	log        logrus.FieldLogger
}

func NewGridSearch(params []string, ranges [][]float64, log logrus.FieldLogger) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, log: log}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Search evaluates every grid point and returns the parameters with the
// highest mean episode return. Points whose experiment fails are logged and
// skipped; cancellation of ctx stops the search.
func (g *GridSearch) Search(ctx context.Context, evaluate Evaluator) (map[string]float64, float64, error) {
	best := math.Inf(-1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), evaluate, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	evaluate Evaluator,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		result, err := evaluate(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.log.WithError(err).WithField("params", current).Warn("grid point failed")
			return nil
		}

		val := result.Summary.MeanReturn
		g.log.WithFields(logrus.Fields{
			"params":      current,
			"mean_return": val,
		}).Debug("grid point evaluated")

		if val > *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, evaluate, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// ExperimentEvaluator returns an Evaluator that overlays the grid
// parameters on cfg.Params and runs the experiment as an ensemble.
func ExperimentEvaluator(reg *experiment.Registry, cfg experiment.Config, log logrus.FieldLogger) Evaluator {
	return func(ctx context.Context, params map[string]float64) (*experiment.Result, error) {
		c := cfg
		c.Params = make(map[string]float64, len(cfg.Params)+len(params))
		for k, v := range cfg.Params {
			c.Params[k] = v
		}
		for k, v := range params {
			c.Params[k] = v
		}

		build, err := reg.Builder(c)
		if err != nil {
			return nil, err
		}
		return experiment.NewEnsemble(c, build, reg, log).Run(ctx)
	}
}
