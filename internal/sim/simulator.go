package sim

import (
	"fmt"

	"github.com/san-kum/quadtask/internal/dynamo"
	"github.com/san-kum/quadtask/internal/physics"
	"github.com/san-kum/quadtask/internal/task"
)

// PhysicsSim integrates the quadcopter one fixed timestep at a time. It
// implements task.Simulator.
type PhysicsSim struct {
	opts  Options
	model *physics.Quadcopter
	integ dynamo.Integrator

	x       dynamo.State
	u       dynamo.Control
	time    float64
	steps   int
	done    bool
	lastErr error
}

var _ task.Simulator = (*PhysicsSim)(nil)

func New(opts Options) (*PhysicsSim, error) {
	opts = opts.withDefaults()
	if err := validateConfig(opts); err != nil {
		return nil, err
	}
	s := &PhysicsSim{
		opts:  opts,
		model: opts.Model,
		integ: opts.Integrator,
		x:     make(dynamo.State, physics.StateDim),
		u:     make(dynamo.Control, physics.Rotors),
	}
	s.Reset()
	return s, nil
}

// Factory returns a task.SimulatorFactory building a PhysicsSim from opts,
// with any initial conditions the task supplies taking precedence. The
// factory builds a fresh integrator per call unless opts.Integrator is set.
func Factory(opts Options) task.SimulatorFactory {
	return func(init task.SimInit) (task.Simulator, error) {
		o := opts
		if init.InitPose != nil {
			o.InitPose = init.InitPose
		}
		if init.InitVelocities != nil {
			o.InitVelocities = init.InitVelocities
		}
		if init.InitAngleVelocities != nil {
			o.InitAngleVelocities = init.InitAngleVelocities
		}
		if init.Runtime != 0 {
			o.Runtime = init.Runtime
		}
		s, err := New(o)
		if err != nil {
			return nil, fmt.Errorf("physics sim: %w", err)
		}
		return s, nil
	}
}

// Reset restores time zero and the initial pose and velocities.
func (s *PhysicsSim) Reset() {
	p := *s.opts.InitPose
	v := *s.opts.InitVelocities
	w := *s.opts.InitAngleVelocities
	copy(s.x[physics.IdxX:], p[:])
	copy(s.x[physics.IdxVX:], v[:])
	copy(s.x[physics.IdxP:], w[:])
	s.time = 0
	s.steps = 0
	s.done = false
	s.lastErr = nil
}

// NextTimestep advances one dt under the given rotor speeds. The returned
// flag stays set once the quadcopter leaves the flight volume, the runtime
// elapses or the state becomes invalid, until Reset.
func (s *PhysicsSim) NextTimestep(action task.RotorSpeeds) bool {
	copy(s.u, action[:])

	next := s.integ.Step(s.model, s.x, s.u, s.time, s.opts.Dt)
	switch {
	case len(next) != s.model.StateDim():
		return s.fail(next, fmt.Errorf("step %d at t=%.4f: got %d values, want %d: %w",
			s.steps, s.time, len(next), s.model.StateDim(), dynamo.ErrDimensionMismatch))
	case !next.IsValid():
		return s.fail(next, fmt.Errorf("step %d at t=%.4f: %w", s.steps, s.time, dynamo.ErrInvalidState))
	}

	for i := physics.IdxPhi; i <= physics.IdxPsi; i++ {
		next[i] = physics.WrapAngle(next[i])
	}
	for i, b := range s.opts.Bounds {
		switch {
		case next[i] <= b.Min:
			next[i] = b.Min
			s.done = true
		case next[i] > b.Max:
			next[i] = b.Max
			s.done = true
		}
	}

	s.x = next
	s.time += s.opts.Dt
	s.steps++
	if s.time > s.opts.Runtime {
		s.done = true
	}
	return s.done
}

func (s *PhysicsSim) Pose() task.Pose {
	var p task.Pose
	copy(p[:], s.x[physics.IdxX:physics.IdxPsi+1])
	return p
}

func (s *PhysicsSim) Velocity() [3]float64 {
	return [3]float64{s.x[physics.IdxVX], s.x[physics.IdxVY], s.x[physics.IdxVZ]}
}

func (s *PhysicsSim) AngularVelocity() [3]float64 {
	return [3]float64{s.x[physics.IdxP], s.x[physics.IdxQ], s.x[physics.IdxR]}
}

// fail ends the episode without advancing, keeping the last good state.
func (s *PhysicsSim) fail(next dynamo.State, err error) bool {
	s.lastErr = &dynamo.SimulationError{
		Step:    s.steps,
		Time:    s.time,
		State:   next,
		Wrapped: err,
	}
	s.done = true
	return s.done
}

// State returns a copy of the full twelve-dimensional state.
func (s *PhysicsSim) State() dynamo.State { return s.x.Clone() }

func (s *PhysicsSim) Time() float64    { return s.time }
func (s *PhysicsSim) Steps() int       { return s.steps }
func (s *PhysicsSim) Done() bool       { return s.done }
func (s *PhysicsSim) Dt() float64      { return s.opts.Dt }
func (s *PhysicsSim) Runtime() float64 { return s.opts.Runtime }

// LastError returns the error that ended the episode, if integration
// produced an invalid state.
func (s *PhysicsSim) LastError() error { return s.lastErr }

// Energy returns the model's total mechanical energy in the current state.
func (s *PhysicsSim) Energy() float64 { return s.model.Energy(s.x) }
