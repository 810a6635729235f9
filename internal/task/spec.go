package task

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// SpecType determines what a Spec describes.
type SpecType int

const (
	ActionSpecType SpecType = iota
	ObservationSpecType
)

func (s SpecType) String() string {
	if s == ActionSpecType {
		return "action"
	}
	return "observation"
}

// Spec describes the shape and per-dimension bounds of actions or
// observations. Bounds are advertised to callers; Task does not enforce them.
type Spec struct {
	Type   SpecType
	Bounds []r1.Interval
}

// Len returns the number of dimensions described by the spec.
func (s Spec) Len() int {
	return len(s.Bounds)
}

// Contains reports whether every element of v lies within its bounds.
func (s Spec) Contains(v []float64) bool {
	if len(v) != len(s.Bounds) {
		return false
	}
	for i, b := range s.Bounds {
		if v[i] < b.Min || v[i] > b.Max {
			return false
		}
	}
	return true
}

func uniformSpec(t SpecType, n int, bounds r1.Interval) Spec {
	b := make([]r1.Interval, n)
	for i := range b {
		b[i] = bounds
	}
	return Spec{Type: t, Bounds: b}
}

// ActionSpec returns the rotor speed range for each of the four rotors.
func (t *Task) ActionSpec() Spec {
	return uniformSpec(ActionSpecType, ActionSize, r1.Interval{Min: ActionLow, Max: ActionHigh})
}

// ObservationSpec returns the unbounded observation layout.
func (t *Task) ObservationSpec() Spec {
	return uniformSpec(ObservationSpecType, StateSize, r1.Interval{Min: math.Inf(-1), Max: math.Inf(1)})
}
