// Package dynamo provides core simulation primitives for the quadcopter.
//
// The package defines the fundamental interfaces and types shared by the
// physics model, the numerical integrators and the physics simulator:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Metric]: per-step observation accumulator
//
// # Example
//
//	dyn := physics.NewQuadcopter()
//	integ := integrators.NewRK4()
//	next := integ.Step(dyn, x, u, t, dt)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe. Build one
// integrator per simulator; experiment.Ensemble does this for every worker.
package dynamo
