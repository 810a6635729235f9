package policy

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/san-kum/quadtask/internal/task"
)

// Uniform draws every rotor speed independently from [Low, High].
type Uniform struct {
	Low, High float64
	seed      uint64
	dist      *distmv.Uniform
	buf       []float64
}

func NewUniform(low, high float64, seed uint64) *Uniform {
	u := &Uniform{Low: low, High: high, seed: seed, buf: make([]float64, task.ActionSize)}
	u.Reset()
	return u
}

func (u *Uniform) Act(obs task.Observation) task.RotorSpeeds {
	u.dist.Rand(u.buf)
	var a task.RotorSpeeds
	copy(a[:], u.buf)
	return a
}

// Reset reseeds the sampler so every episode replays the same draws.
func (u *Uniform) Reset() {
	bounds := make([]r1.Interval, task.ActionSize)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: u.Low, Max: u.High}
	}
	u.dist = distmv.NewUniform(bounds, rand.NewSource(u.seed))
}
