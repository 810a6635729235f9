package policy

import (
	"github.com/san-kum/quadtask/internal/physics"
	"github.com/san-kum/quadtask/internal/task"
)

type Policy interface {
	Act(obs task.Observation) task.RotorSpeeds
}

// Resetter is implemented by policies that carry state across steps.
type Resetter interface {
	Reset()
}

// Reset clears p's episode state if it has any.
func Reset(p Policy) {
	if r, ok := p.(Resetter); ok {
		r.Reset()
	}
}

type Constant struct {
	Speeds task.RotorSpeeds
}

func NewConstant(speed float64) *Constant {
	return &Constant{Speeds: task.RotorSpeeds{speed, speed, speed, speed}}
}

// NewHover returns a constant policy at the default quadcopter's hover speed.
func NewHover() *Constant {
	return NewConstant(physics.NewQuadcopter().HoverSpeed())
}

func (c *Constant) Act(obs task.Observation) task.RotorSpeeds {
	return c.Speeds
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
