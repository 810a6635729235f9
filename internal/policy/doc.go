// Package policy provides fixed, non-learning policies that map task
// observations to rotor speeds.
//
//   - [Constant]: the same speeds every step
//   - [Uniform]: independent uniform draws over a speed range
//   - [AltitudePID]: PID on the latest observed altitude around a hover speed
//
// # Usage
//
//	pid := policy.NewAltitudePID(30, 0.5, 40, 10, 404)
//	obs := t.Reset()
//	for {
//		var done bool
//		obs, _, done = t.Step(pid.Act(obs))
//		if done {
//			break
//		}
//	}
//
// Policies with internal state implement [Resetter]; call [Reset] between
// episodes. Policies implementing [dynamo.Configurable] support tuning.
package policy
