package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/quadtask/internal/dynamo"
)

// Euler is the first-order explicit stepper, registered as "euler" for
// comparison runs against RK4.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	floats.AddScaledTo(result, x, dt, dx)
	return result
}
