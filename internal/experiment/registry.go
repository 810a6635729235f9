package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/quadtask/internal/dynamo"
	"github.com/san-kum/quadtask/internal/integrators"
	"github.com/san-kum/quadtask/internal/metrics"
	"github.com/san-kum/quadtask/internal/physics"
	"github.com/san-kum/quadtask/internal/policy"
	"github.com/san-kum/quadtask/internal/sim"
	"github.com/san-kum/quadtask/internal/task"
)

// PolicyEnv describes the task a policy is built for.
type PolicyEnv struct {
	Target [3]float64
	// StepDt is the simulated time covered by one task step.
	StepDt float64
	Seed   uint64
}

// PolicyFunc builds a policy from named parameters.
type PolicyFunc func(params map[string]float64, env PolicyEnv) policy.Policy

type Registry struct {
	policies    map[string]PolicyFunc
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		policies:    make(map[string]PolicyFunc),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	hover := physics.NewQuadcopter().HoverSpeed()

	r.policies["hover"] = func(params map[string]float64, _ PolicyEnv) policy.Policy {
		return policy.NewConstant(param(params, "speed", hover))
	}
	r.policies["constant"] = func(params map[string]float64, _ PolicyEnv) policy.Policy {
		return policy.NewConstant(params["speed"])
	}
	r.policies["random"] = func(params map[string]float64, env PolicyEnv) policy.Policy {
		low := param(params, "low", task.ActionLow)
		high := param(params, "high", task.ActionHigh)
		return policy.NewUniform(low, high, env.Seed)
	}
	r.policies["pid"] = func(params map[string]float64, env PolicyEnv) policy.Policy {
		p := policy.NewAltitudePID(
			param(params, "kp", 30),
			param(params, "ki", 0.5),
			param(params, "kd", 40),
			param(params, "target_z", env.Target[2]),
			param(params, "hover", hover),
		)
		p.Dt = param(params, "dt", env.StepDt)
		return p
	}

	return r
}

func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}

// RegisterPolicy adds or replaces a named policy.
func (r *Registry) RegisterPolicy(name string, fn PolicyFunc) {
	r.policies[name] = fn
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = "rk4"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIntegrator, name)
	}
	return fn(), nil
}

func (r *Registry) GetPolicy(name string, params map[string]float64, env PolicyEnv) (policy.Policy, error) {
	fn, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
	if env.StepDt <= 0 {
		env.StepDt = policy.DefaultStepDt
	}
	return fn(params, env), nil
}

func (r *Registry) ListPolicies() []string {
	return sortedKeys(r.policies)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder constructs the task and policy for one episode. Every call returns
// values owned by the caller alone.
type Builder func(episode int) (*task.Task, policy.Policy, error)

// Builder resolves cfg's policy and integrator names and returns a Builder
// seeding episode i with cfg.Seed+i.
func (r *Registry) Builder(cfg Config) (Builder, error) {
	if _, ok := r.policies[cfg.Policy]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, cfg.Policy)
	}
	if _, err := r.GetIntegrator(cfg.Integrator); err != nil {
		return nil, err
	}

	target := task.DefaultTarget
	if cfg.Task.TargetPos != nil {
		target = *cfg.Task.TargetPos
	}
	dt := cfg.Dt
	if dt <= 0 {
		dt = sim.DefaultDt
	}
	stepDt := float64(task.ActionRepeat) * dt

	return func(episode int) (*task.Task, policy.Policy, error) {
		integ, err := r.GetIntegrator(cfg.Integrator)
		if err != nil {
			return nil, nil, err
		}
		t, err := task.New(cfg.Task, sim.Factory(sim.Options{Dt: cfg.Dt, Integrator: integ}))
		if err != nil {
			return nil, nil, err
		}
		p, err := r.GetPolicy(cfg.Policy, cfg.Params, PolicyEnv{
			Target: target,
			StepDt: stepDt,
			Seed:   cfg.Seed + uint64(episode),
		})
		if err != nil {
			return nil, nil, err
		}
		return t, p, nil
	}, nil
}

// DefaultMetrics returns fresh episode metrics for a task reaching target.
func (r *Registry) DefaultMetrics(target [3]float64) []dynamo.Metric {
	return metrics.Defaults(target)
}
