package experiment

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the returns of a batch of episodes.
type Summary struct {
	Episodes   int
	MeanReturn float64
	StdReturn  float64
	BestReturn float64
	Best       int
	MeanSteps  float64
	DoneRate   float64
}

func Summarize(eps []*Episode) Summary {
	s := Summary{Episodes: len(eps)}
	if len(eps) == 0 {
		return s
	}

	returns := make([]float64, len(eps))
	steps := make([]float64, len(eps))
	done := 0
	for i, ep := range eps {
		returns[i] = ep.Return
		steps[i] = float64(ep.Steps)
		if ep.Done {
			done++
		}
	}

	s.MeanReturn = stat.Mean(returns, nil)
	if len(eps) > 1 {
		s.StdReturn = stat.StdDev(returns, nil)
	}
	s.Best = eps[floats.MaxIdx(returns)].Index
	s.BestReturn = floats.Max(returns)
	s.MeanSteps = stat.Mean(steps, nil)
	s.DoneRate = float64(done) / float64(len(eps))
	return s
}
