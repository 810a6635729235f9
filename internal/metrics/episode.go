package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/quadtask/internal/dynamo"
)

// Return sums the step rewards of an episode.
type Return struct {
	sum float64
}

func NewReturn() *Return { return &Return{} }

func (r *Return) Name() string { return "return" }

func (r *Return) Observe(x dynamo.State, u dynamo.Control, reward float64) {
	r.sum += reward
}

func (r *Return) Value() float64 { return r.sum }

func (r *Return) Reset() { r.sum = 0 }

// FinalDistance is the distance from the last observed position to target.
type FinalDistance struct {
	target []float64
	last   float64
	seen   bool
}

func NewFinalDistance(target [3]float64) *FinalDistance {
	return &FinalDistance{target: target[:]}
}

func (f *FinalDistance) Name() string { return "final_distance" }

func (f *FinalDistance) Observe(x dynamo.State, u dynamo.Control, reward float64) {
	if len(x) < 3 {
		return
	}
	f.last = floats.Distance(x[:3], f.target, 2)
	f.seen = true
}

func (f *FinalDistance) Value() float64 {
	if !f.seen {
		return 0
	}
	return f.last
}

func (f *FinalDistance) Reset() {
	f.last = 0
	f.seen = false
}

// Defaults returns the metrics recorded for every stored episode.
func Defaults(target [3]float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewReturn(),
		NewMaxTilt(),
		NewStability(0.03),
		NewFinalDistance(target),
		NewControlEffort(),
	}
}
