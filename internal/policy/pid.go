package policy

import (
	"fmt"

	"github.com/san-kum/quadtask/internal/dynamo"
	"github.com/san-kum/quadtask/internal/task"
)

// DefaultStepDt is the time between two task steps with the default
// simulator timestep.
const DefaultStepDt = task.ActionRepeat * 0.02

// AltitudePID drives all four rotors together to hold TargetZ. The output is
// Hover plus the PID correction, clipped to the action range.
type AltitudePID struct {
	Kp      float64
	Ki      float64
	Kd      float64
	TargetZ float64
	Hover   float64
	Dt      float64

	integral float64
	prevErr  float64
	first    bool
}

func NewAltitudePID(kp, ki, kd, targetZ, hover float64) *AltitudePID {
	return &AltitudePID{
		Kp:      kp,
		Ki:      ki,
		Kd:      kd,
		TargetZ: targetZ,
		Hover:   hover,
		Dt:      DefaultStepDt,
		first:   true,
	}
}

func (p *AltitudePID) Act(obs task.Observation) task.RotorSpeeds {
	err := p.TargetZ - obs.Latest()[2]

	u := p.Kp * err
	if p.first {
		p.first = false
	} else if p.Dt > 0 {
		p.integral += err * p.Dt
		u += p.Ki*p.integral + p.Kd*(err-p.prevErr)/p.Dt
	}
	p.prevErr = err

	n := clip(p.Hover+u, task.ActionLow, task.ActionHigh)
	return task.RotorSpeeds{n, n, n, n}
}

// Reset clears integral and derivative state
func (p *AltitudePID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters
func (p *AltitudePID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp":       p.Kp,
		"ki":       p.Ki,
		"kd":       p.Kd,
		"target_z": p.TargetZ,
		"hover":    p.Hover,
	}
}

func (p *AltitudePID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "target_z":
		p.TargetZ = value
	case "hover":
		if value < task.ActionLow || value > task.ActionHigh {
			return fmt.Errorf("hover %v: %w", value, dynamo.ErrParameterBounds)
		}
		p.Hover = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

var _ dynamo.Configurable = (*AltitudePID)(nil)
