package physics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// EarthToBody returns the rotation taking earth-frame vectors into the body
// frame for roll phi, pitch theta and yaw psi. Its transpose maps body-frame
// vectors back to the earth frame.
func EarthToBody(phi, theta, psi float64) *mat.Dense {
	sp, cp := math.Sincos(phi)
	st, ct := math.Sincos(theta)
	ss, cs := math.Sincos(psi)

	return mat.NewDense(3, 3, []float64{
		cs * ct, cs*st*sp - ss*cp, cs*st*cp + ss*sp,
		ss * ct, ss*st*sp + cs*cp, ss*st*cp - cs*sp,
		-st, ct * sp, ct * cp,
	})
}

// WrapAngle maps an angle into [0, 2π).
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
