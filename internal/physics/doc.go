// Package physics provides the quadcopter rigid-body model.
//
// [Quadcopter] implements the [dynamo.System] interface, defining the
// differential equations governing the vehicle's evolution under four rotor
// speed commands. It also implements [dynamo.Configurable] for runtime
// parameter adjustment.
//
//	q := physics.NewQuadcopter()
//	u := dynamo.Control{q.HoverSpeed(), q.HoverSpeed(), q.HoverSpeed(), q.HoverSpeed()}
//	dx := q.Derive(x, u, 0)
package physics
