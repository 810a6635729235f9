package task

import (
	"fmt"
)

const (
	// ActionRepeat is the number of simulator timesteps every action is
	// held for.
	ActionRepeat = 3

	// PoseSize is the length of a Pose.
	PoseSize = 6

	// StateSize is the length of an Observation.
	StateSize = PoseSize * ActionRepeat

	// ActionSize is the number of rotor speeds in an action.
	ActionSize = 4

	// ActionLow and ActionHigh bound every rotor speed, in revolutions per
	// second.
	ActionLow  = 0.0
	ActionHigh = 900.0

	// DefaultRuntime is the episode length in seconds when none is set.
	DefaultRuntime = 5.0
)

// DefaultTarget is the goal position used when none is configured.
var DefaultTarget = [3]float64{0, 0, 10}

// Simulator advances the quadcopter's continuous state. The Task only reads
// the pose; integration, bounds and time limits are the simulator's concern.
type Simulator interface {
	// Pose returns the current position and Euler angles.
	Pose() Pose

	// NextTimestep advances one timestep under the given rotor speeds and
	// reports whether the episode has ended.
	NextTimestep(action RotorSpeeds) bool

	// Reset restores the configured initial conditions.
	Reset()
}

// SimInit carries the initial conditions handed to a SimulatorFactory. Nil
// fields were not configured and the simulator applies its own defaults.
type SimInit struct {
	InitPose            *Pose
	InitVelocities      *[3]float64
	InitAngleVelocities *[3]float64
	Runtime             float64
}

// SimulatorFactory builds the simulator a Task drives.
type SimulatorFactory func(init SimInit) (Simulator, error)

// Config configures a Task. Nil fields take their defaults.
type Config struct {
	InitPose            *Pose
	InitVelocities      *[3]float64
	InitAngleVelocities *[3]float64
	Runtime             float64
	TargetPos           *[3]float64
}

// Task is the quadcopter reinforcement-learning task.
type Task struct {
	sim      Simulator
	initPose Pose
	target   [3]float64
	runtime  float64
}

// New builds the simulator through factory and returns a Task reaching for
// cfg.TargetPos. It returns an error wrapping ErrDegenerateTarget when the
// resolved initial position equals the target, since no reward could be
// normalized against a zero distance.
func New(cfg Config, factory SimulatorFactory) (*Task, error) {
	runtime := cfg.Runtime
	if runtime == 0 {
		runtime = DefaultRuntime
	}

	var initPose Pose
	if cfg.InitPose != nil {
		initPose = *cfg.InitPose
	}

	target := DefaultTarget
	if cfg.TargetPos != nil {
		target = *cfg.TargetPos
	}

	if Distance(initPose.Position(), target) == 0 {
		return nil, fmt.Errorf("new task: target %v: %w", target, ErrDegenerateTarget)
	}

	sim, err := factory(SimInit{
		InitPose:            cfg.InitPose,
		InitVelocities:      cfg.InitVelocities,
		InitAngleVelocities: cfg.InitAngleVelocities,
		Runtime:             runtime,
	})
	if err != nil {
		return nil, fmt.Errorf("new task: %w", err)
	}

	return &Task{
		sim:      sim,
		initPose: initPose,
		target:   target,
		runtime:  runtime,
	}, nil
}

// StateSize returns the length of every Observation, 18.
func (t *Task) StateSize() int { return StateSize }

// ActionSize returns the number of rotor speeds per action, 4.
func (t *Task) ActionSize() int { return ActionSize }

// ActionLow returns the smallest valid rotor speed.
func (t *Task) ActionLow() float64 { return ActionLow }

// ActionHigh returns the largest valid rotor speed.
func (t *Task) ActionHigh() float64 { return ActionHigh }

// ActionRepeat returns how many simulator timesteps one Step covers.
func (t *Task) ActionRepeat() int { return ActionRepeat }

// InitPose returns the pose the reward measures progress from. It is the
// zero pose when none was configured.
func (t *Task) InitPose() Pose { return t.initPose }

// Target returns the goal position.
func (t *Task) Target() [3]float64 { return t.target }

// Runtime returns the episode length in simulated seconds.
func (t *Task) Runtime() float64 { return t.runtime }

func (t *Task) Simulator() Simulator { return t.sim }

// Reset starts a new episode and returns the post-reset pose repeated
// ActionRepeat times.
func (t *Task) Reset() Observation {
	t.sim.Reset()
	poses := make([]Pose, ActionRepeat)
	for i := range poses {
		poses[i] = t.sim.Pose()
	}
	return concat(poses)
}

// Step holds action for ActionRepeat simulator timesteps. It returns the
// poses of those timesteps, the sum of their rewards and the done flag of
// the final timestep. A done reported by an earlier timestep is not carried
// into the result; its reward still is.
func (t *Task) Step(action RotorSpeeds) (Observation, float64, bool) {
	acc := stepAcc{poses: make([]Pose, 0, ActionRepeat)}
	for i := 0; i < ActionRepeat; i++ {
		done := t.sim.NextTimestep(action)
		pose := t.sim.Pose()
		acc = acc.add(pose, t.reward(pose), done)
	}
	return concat(acc.poses), acc.reward, acc.done
}

// StepDetailed is Step that also returns the reward terms and done flag of
// every substep.
func (t *Task) StepDetailed(action RotorSpeeds) (Observation, float64, bool, []Substep) {
	subs := make([]Substep, 0, ActionRepeat)
	acc := stepAcc{poses: make([]Pose, 0, ActionRepeat)}
	for i := 0; i < ActionRepeat; i++ {
		done := t.sim.NextTimestep(action)
		pose := t.sim.Pose()
		b := t.breakdown(pose)
		subs = append(subs, Substep{Pose: pose, Done: done, RewardBreakdown: b})
		acc = acc.add(pose, b.Reward, done)
	}
	return concat(acc.poses), acc.reward, acc.done, subs
}

// Substep records a single simulator timestep taken inside Step.
type Substep struct {
	Pose Pose
	Done bool
	RewardBreakdown
}

// Breakdown returns the reward terms the task would assign to pose.
func (t *Task) Breakdown(pose Pose) RewardBreakdown {
	return t.breakdown(pose)
}

// breakdown cannot fail: New rejects the degenerate target.
func (t *Task) breakdown(pose Pose) RewardBreakdown {
	b, _ := Breakdown(pose, t.initPose, t.target, ActionRepeat)
	return b
}

func (t *Task) reward(pose Pose) float64 {
	return t.breakdown(pose).Reward
}

// stepAcc is the running reduction over the substeps of one Step.
type stepAcc struct {
	reward float64
	poses  []Pose
	done   bool
}

func (a stepAcc) add(pose Pose, reward float64, done bool) stepAcc {
	return stepAcc{
		reward: a.reward + reward,
		poses:  append(a.poses, pose),
		done:   done,
	}
}
