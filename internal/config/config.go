package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/quadtask/internal/experiment"
	"github.com/san-kum/quadtask/internal/task"
)

const (
	DefaultDt         = 0.02
	DefaultIntegrator = "rk4"
	DefaultPolicy     = "hover"
	DefaultEpisodes   = 1
)

var (
	ErrUnknownPreset = errors.New("config: unknown preset")
	ErrInvalidConfig = errors.New("config: invalid config")
)

type Config struct {
	Task       TaskConfig       `yaml:"task"`
	Sim        SimConfig        `yaml:"sim"`
	Policy     PolicyConfig     `yaml:"policy"`
	Experiment ExperimentConfig `yaml:"experiment"`
}

// TaskConfig holds the task's optional initial conditions. Empty vectors
// leave the task and simulator defaults in place.
type TaskConfig struct {
	Runtime             float64   `yaml:"runtime"`
	InitPose            []float64 `yaml:"init_pose,omitempty"`
	InitVelocities      []float64 `yaml:"init_velocities,omitempty"`
	InitAngleVelocities []float64 `yaml:"init_angle_velocities,omitempty"`
	TargetPos           []float64 `yaml:"target_pos,omitempty"`
}

type SimConfig struct {
	Dt         float64 `yaml:"dt"`
	Integrator string  `yaml:"integrator"`
}

// PolicyConfig names a registered policy. Every other key is a numeric
// policy parameter.
type PolicyConfig struct {
	Name   string             `yaml:"name"`
	Seed   uint64             `yaml:"seed"`
	Params map[string]float64 `yaml:",inline"`
}

type ExperimentConfig struct {
	Episodes int `yaml:"episodes"`
	MaxSteps int `yaml:"max_steps"`
	Workers  int `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Task: TaskConfig{
			Runtime: task.DefaultRuntime,
		},
		Sim: SimConfig{
			Dt:         DefaultDt,
			Integrator: DefaultIntegrator,
		},
		Policy: PolicyConfig{
			Name:   DefaultPolicy,
			Params: map[string]float64{},
		},
		Experiment: ExperimentConfig{
			Episodes: DefaultEpisodes,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto decodes the file at path over cfg. Keys absent from the file
// keep cfg's values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func vec3(name string, v []float64) (*[3]float64, error) {
	if len(v) == 0 {
		return nil, nil
	}
	if len(v) != 3 {
		return nil, fmt.Errorf("%s needs 3 values, got %d: %w", name, len(v), ErrInvalidConfig)
	}
	return &[3]float64{v[0], v[1], v[2]}, nil
}

// ToTask converts the task section into a task.Config.
func (c *Config) ToTask() (task.Config, error) {
	tc := task.Config{Runtime: c.Task.Runtime}

	if n := len(c.Task.InitPose); n != 0 {
		if n != task.PoseSize {
			return tc, fmt.Errorf("init_pose needs %d values, got %d: %w", task.PoseSize, n, ErrInvalidConfig)
		}
		var p task.Pose
		copy(p[:], c.Task.InitPose)
		tc.InitPose = &p
	}

	var err error
	if tc.InitVelocities, err = vec3("init_velocities", c.Task.InitVelocities); err != nil {
		return tc, err
	}
	if tc.InitAngleVelocities, err = vec3("init_angle_velocities", c.Task.InitAngleVelocities); err != nil {
		return tc, err
	}
	if tc.TargetPos, err = vec3("target_pos", c.Task.TargetPos); err != nil {
		return tc, err
	}
	return tc, nil
}

// ToExperiment converts the whole file into an experiment.Config.
func (c *Config) ToExperiment() (experiment.Config, error) {
	tc, err := c.ToTask()
	if err != nil {
		return experiment.Config{}, err
	}
	params := make(map[string]float64, len(c.Policy.Params))
	for k, v := range c.Policy.Params {
		params[k] = v
	}
	return experiment.Config{
		Task:       tc,
		Dt:         c.Sim.Dt,
		Integrator: c.Sim.Integrator,
		Policy:     c.Policy.Name,
		Params:     params,
		Episodes:   c.Experiment.Episodes,
		MaxSteps:   c.Experiment.MaxSteps,
		Workers:    c.Experiment.Workers,
		Seed:       c.Policy.Seed,
	}, nil
}

func (c *Config) clone() *Config {
	out := *c
	out.Task.InitPose = append([]float64(nil), c.Task.InitPose...)
	out.Task.InitVelocities = append([]float64(nil), c.Task.InitVelocities...)
	out.Task.InitAngleVelocities = append([]float64(nil), c.Task.InitAngleVelocities...)
	out.Task.TargetPos = append([]float64(nil), c.Task.TargetPos...)
	out.Policy.Params = make(map[string]float64, len(c.Policy.Params))
	for k, v := range c.Policy.Params {
		out.Policy.Params[k] = v
	}
	return &out
}
