// Package task turns quadcopter physics state into a reinforcement-learning
// task: observations, a shaped reward and the reset/step episode lifecycle.
//
// A [Task] owns no dynamics of its own. It drives a [Simulator], holding
// every agent action for [ActionRepeat] simulator timesteps, and reports
// the concatenated poses of those timesteps as the observation.
//
//	t, err := task.New(task.Config{TargetPos: &target}, sim.Factory(sim.Options{}))
//	obs := t.Reset()
//	obs, reward, done := t.Step(task.RotorSpeeds{404, 404, 404, 404})
//
// # Thread Safety
//
// A Task and its Simulator belong to a single control loop. Use one Task per
// worker for parallel rollouts.
package task
