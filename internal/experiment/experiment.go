package experiment

import (
	"context"

	"github.com/san-kum/quadtask/internal/dynamo"
	"github.com/san-kum/quadtask/internal/policy"
	"github.com/san-kum/quadtask/internal/task"
)

// Config describes a batch of episodes.
type Config struct {
	Task       task.Config
	Dt         float64
	Integrator string
	Policy     string
	Params     map[string]float64
	Episodes   int
	MaxSteps   int
	Workers    int
	Seed       uint64
}

// Episode is the record of one rollout. Poses, Actions and Rewards are
// aligned per step; Poses holds the latest pose of each step's observation.
type Episode struct {
	Index   int
	Start   task.Pose
	Return  float64
	Steps   int
	Done    bool
	Poses   []task.Pose
	Actions []task.RotorSpeeds
	Rewards []float64
	Metrics map[string]float64
}

// RunEpisode resets t and p and steps until the task reports done or
// maxSteps steps have been taken. maxSteps of zero means no limit.
// Cancelling ctx stops the episode between steps and returns what was
// recorded so far along with ctx.Err().
func RunEpisode(ctx context.Context, t *task.Task, p policy.Policy, maxSteps int, ms ...dynamo.Metric) (*Episode, error) {
	policy.Reset(p)
	for _, m := range ms {
		m.Reset()
	}

	obs := t.Reset()
	ep := &Episode{
		Start:   obs.Latest(),
		Metrics: make(map[string]float64, len(ms)),
	}

	for maxSteps == 0 || ep.Steps < maxSteps {
		select {
		case <-ctx.Done():
			return ep, ctx.Err()
		default:
		}

		action := p.Act(obs)
		var reward float64
		var done bool
		obs, reward, done = t.Step(action)

		pose := obs.Latest()
		for _, m := range ms {
			m.Observe(dynamo.State(pose[:]), dynamo.Control(action[:]), reward)
		}

		ep.Poses = append(ep.Poses, pose)
		ep.Actions = append(ep.Actions, action)
		ep.Rewards = append(ep.Rewards, reward)
		ep.Return += reward
		ep.Steps++

		if done {
			ep.Done = true
			break
		}
	}

	for _, m := range ms {
		ep.Metrics[m.Name()] = m.Value()
	}
	return ep, nil
}
