package config

import (
	"fmt"
	"sort"
)

var Presets = map[string]*Config{
	"hover": {
		Task:       TaskConfig{Runtime: 5},
		Sim:        SimConfig{Dt: DefaultDt, Integrator: "rk4"},
		Policy:     PolicyConfig{Name: "hover", Params: map[string]float64{}},
		Experiment: ExperimentConfig{Episodes: 1},
	},
	"takeoff": {
		Task: TaskConfig{
			Runtime:   5,
			InitPose:  []float64{0, 0, 0.1, 0, 0, 0},
			TargetPos: []float64{0, 0, 20},
		},
		Sim:        SimConfig{Dt: DefaultDt, Integrator: "rk4"},
		Policy:     PolicyConfig{Name: "pid", Params: map[string]float64{"kp": 30, "ki": 0.5, "kd": 40}},
		Experiment: ExperimentConfig{Episodes: 1},
	},
	"tilt": {
		Task: TaskConfig{
			Runtime:             5,
			InitPose:            []float64{0, 0, 10, 0.1, 0, 0},
			InitAngleVelocities: []float64{0.2, 0, 0},
			TargetPos:           []float64{0, 0, 20},
		},
		Sim:        SimConfig{Dt: DefaultDt, Integrator: "rk45"},
		Policy:     PolicyConfig{Name: "pid", Params: map[string]float64{"kp": 30, "ki": 0.5, "kd": 40}},
		Experiment: ExperimentConfig{Episodes: 1},
	},
	"random": {
		Task:       TaskConfig{Runtime: 5},
		Sim:        SimConfig{Dt: DefaultDt, Integrator: "rk4"},
		Policy:     PolicyConfig{Name: "random", Seed: 1, Params: map[string]float64{"low": 350, "high": 450}},
		Experiment: ExperimentConfig{Episodes: 20, Workers: 4},
	},
}

// GetPreset returns a copy of the named preset.
func GetPreset(name string) (*Config, error) {
	cfg, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return cfg.clone(), nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
