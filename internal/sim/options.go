package sim

import (
	"fmt"

	"github.com/san-kum/quadtask/internal/dynamo"
	"github.com/san-kum/quadtask/internal/integrators"
	"github.com/san-kum/quadtask/internal/physics"
	"github.com/san-kum/quadtask/internal/task"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	DefaultDt      = 1.0 / 50
	DefaultRuntime = 5.0
)

// DefaultInitPose hovers ten meters above the origin.
var DefaultInitPose = task.Pose{0, 0, 10, 0, 0, 0}

// DefaultBounds is the flight volume: 300 m wide, 300 m tall, floor at zero.
var DefaultBounds = [3]r1.Interval{
	{Min: -150, Max: 150},
	{Min: -150, Max: 150},
	{Min: 0, Max: 300},
}

// Options configures a PhysicsSim. Zero and nil fields take their defaults.
// An Integrator keeps scratch state and must not be shared between
// simulators.
type Options struct {
	InitPose            *task.Pose
	InitVelocities      *[3]float64
	InitAngleVelocities *[3]float64
	Runtime             float64
	Dt                  float64
	Integrator          dynamo.Integrator
	Model               *physics.Quadcopter
	Bounds              [3]r1.Interval
}

func (o Options) withDefaults() Options {
	if o.InitPose == nil {
		p := DefaultInitPose
		o.InitPose = &p
	}
	if o.InitVelocities == nil {
		o.InitVelocities = &[3]float64{}
	}
	if o.InitAngleVelocities == nil {
		o.InitAngleVelocities = &[3]float64{}
	}
	if o.Runtime == 0 {
		o.Runtime = DefaultRuntime
	}
	if o.Dt == 0 {
		o.Dt = DefaultDt
	}
	if o.Integrator == nil {
		o.Integrator = integrators.NewRK4()
	}
	if o.Model == nil {
		o.Model = physics.NewQuadcopter()
	}
	if o.Bounds == ([3]r1.Interval{}) {
		o.Bounds = DefaultBounds
	}
	return o
}

func validateConfig(o Options) error {
	if o.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", o.Dt, ErrInvalidConfig)
	}
	if o.Runtime <= 0 {
		return fmt.Errorf("runtime must be positive, got %f: %w", o.Runtime, ErrInvalidConfig)
	}
	for i, b := range o.Bounds {
		if b.Min >= b.Max {
			return fmt.Errorf("bounds on axis %d are empty [%f, %f]: %w", i, b.Min, b.Max, ErrInvalidConfig)
		}
	}
	return nil
}
