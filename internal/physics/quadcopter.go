package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/quadtask/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultGravity = -9.81
	DefaultMass    = 0.958
	DefaultRho     = 1.2
)

// State layout of the quadcopter.
const (
	IdxX = iota
	IdxY
	IdxZ
	IdxPhi
	IdxTheta
	IdxPsi
	IdxVX
	IdxVY
	IdxVZ
	IdxP
	IdxQ
	IdxR

	StateDim = 12
	Rotors   = 4
)

// Quadcopter is a rigid body lifted by four propellers. The state is
// [x y z φ θ ψ vx vy vz φ̇ θ̇ ψ̇] and the controls are the four rotor
// speeds in revolutions per second. Euler angle rates are integrated
// directly from the body rates.
type Quadcopter struct {
	Mass          float64
	Gravity       float64
	Rho           float64
	DragCoeff     float64
	ArmLength     float64
	PropellerSize float64
	Dims          [3]float64
}

func NewQuadcopter() *Quadcopter {
	return &Quadcopter{
		Mass:          DefaultMass,
		Gravity:       DefaultGravity,
		Rho:           DefaultRho,
		DragCoeff:     0.3,
		ArmLength:     0.4,
		PropellerSize: 0.1,
		Dims:          [3]float64{0.51, 0.51, 0.235},
	}
}

func (q *Quadcopter) StateDim() int   { return StateDim }
func (q *Quadcopter) ControlDim() int { return Rotors }

// Areas returns the body cross sections facing the x, y and z axes.
func (q *Quadcopter) Areas() [3]float64 {
	w, l, h := q.Dims[0], q.Dims[1], q.Dims[2]
	return [3]float64{l * h, w * h, w * l}
}

// Inertia returns the principal moments of inertia of a solid box with
// the quadcopter's dimensions.
func (q *Quadcopter) Inertia() [3]float64 {
	w, l, h := q.Dims[0], q.Dims[1], q.Dims[2]
	return [3]float64{
		q.Mass * (h*h + w*w) / 12,
		q.Mass * (h*h + l*l) / 12,
		q.Mass * (w*w + l*l) / 12,
	}
}

func (q *Quadcopter) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	phi, theta, psi := x[IdxPhi], x[IdxTheta], x[IdxPsi]
	v := mat.NewVecDense(3, []float64{x[IdxVX], x[IdxVY], x[IdxVZ]})
	omega := [3]float64{x[IdxP], x[IdxQ], x[IdxR]}

	toBody := EarthToBody(phi, theta, psi)
	var bodyVel mat.VecDense
	bodyVel.MulVec(toBody, v)

	thrusts := q.thrusts(u, bodyVel.AtVec(2), omega)
	total := thrusts[0] + thrusts[1] + thrusts[2] + thrusts[3]

	areas := q.Areas()
	body := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		bv := bodyVel.AtVec(i)
		body.SetVec(i, -0.5*q.Rho*bv*math.Abs(bv)*areas[i]*q.DragCoeff)
	}
	body.SetVec(2, body.AtVec(2)+total)

	var earth mat.VecDense
	earth.MulVec(toBody.T(), body)

	inertia := q.Inertia()
	moments := [3]float64{
		(thrusts[3] - thrusts[2]) * q.ArmLength,
		(thrusts[1] - thrusts[0]) * q.ArmLength,
		0,
	}

	dx := make(dynamo.State, StateDim)
	dx[IdxX], dx[IdxY], dx[IdxZ] = x[IdxVX], x[IdxVY], x[IdxVZ]
	dx[IdxPhi], dx[IdxTheta], dx[IdxPsi] = omega[0], omega[1], omega[2]
	dx[IdxVX] = earth.AtVec(0) / q.Mass
	dx[IdxVY] = earth.AtVec(1) / q.Mass
	dx[IdxVZ] = earth.AtVec(2)/q.Mass + q.Gravity
	for i := 0; i < 3; i++ {
		drag := q.DragCoeff * 0.5 * q.Rho * omega[i] * math.Abs(omega[i]) * areas[i] * q.Dims[i] * q.Dims[i]
		dx[IdxP+i] = (moments[i] - drag) / inertia[i]
	}
	return dx
}

// thrusts returns the net thrust of every propeller given the rotor speeds,
// the body-frame vertical velocity and the body rates.
func (q *Quadcopter) thrusts(u dynamo.Control, bodyVZ float64, omega [3]float64) [Rotors]float64 {
	tip := [Rotors]float64{
		omega[1] * q.ArmLength,
		-omega[1] * q.ArmLength,
		omega[0] * q.ArmLength,
		-omega[0] * q.ArmLength,
	}

	var out [Rotors]float64
	d := q.PropellerSize
	for i := 0; i < Rotors && i < len(u); i++ {
		n := u[i]
		if n <= 0 {
			continue
		}
		j := math.Max(0, (tip[i]+bodyVZ)/n*d)
		ct := math.Max(0.12-0.07*j-0.1*j*j, 0)
		out[i] = ct * q.Rho * n * n * math.Pow(d, 4)
	}
	return out
}

// HoverSpeed returns the rotor speed at which four stationary propellers
// exactly balance gravity.
func (q *Quadcopter) HoverSpeed() float64 {
	d4 := math.Pow(q.PropellerSize, 4)
	return math.Sqrt(q.Mass * math.Abs(q.Gravity) / (Rotors * 0.12 * q.Rho * d4))
}

func (q *Quadcopter) Energy(x dynamo.State) float64 {
	vx, vy, vz := x[IdxVX], x[IdxVY], x[IdxVZ]
	inertia := q.Inertia()
	ke := 0.5 * q.Mass * (vx*vx + vy*vy + vz*vz)
	keRot := 0.0
	for i := 0; i < 3; i++ {
		keRot += 0.5 * inertia[i] * x[IdxP+i] * x[IdxP+i]
	}
	pe := -q.Mass * q.Gravity * x[IdxZ]
	return ke + keRot + pe
}

func (q *Quadcopter) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":           q.Mass,
		"gravity":        q.Gravity,
		"rho":            q.Rho,
		"drag":           q.DragCoeff,
		"arm_length":     q.ArmLength,
		"propeller_size": q.PropellerSize,
	}
}

func (q *Quadcopter) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("mass %v: %w", value, dynamo.ErrParameterBounds)
		}
		q.Mass = value
	case "gravity":
		q.Gravity = value
	case "rho":
		q.Rho = value
	case "drag":
		q.DragCoeff = value
	case "arm_length":
		q.ArmLength = value
	case "propeller_size":
		if value <= 0 {
			return fmt.Errorf("propeller size %v: %w", value, dynamo.ErrParameterBounds)
		}
		q.PropellerSize = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
