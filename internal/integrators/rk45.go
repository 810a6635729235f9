package integrators

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/quadtask/internal/dynamo"
)

// Dormand-Prince tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// fifth order minus embedded fourth order weights
	dpE = [7]float64{
		71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920,
		-17253.0 / 339200, 22.0 / 525, -1.0 / 40,
	}
)

// RK45 covers each requested dt with as many Dormand-Prince substeps as the
// local error estimate needs. The caller still sees a fixed timestep.
type RK45 struct {
	Tol         float64
	MaxSubsteps int

	safety   float64
	minScale float64
	maxScale float64

	k     [7]dynamo.State
	stage dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:         1e-6,
		MaxSubsteps: 64,
		safety:      0.9,
		minScale:    0.2,
		maxScale:    5.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

// Step integrates from t to t+dt. If the substep budget runs out the last
// substep is taken at whatever size remains.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	cur := x.Clone()
	end := t + dt
	h := dt
	for i := 0; ; i++ {
		last := false
		if h >= end-t || i >= r.MaxSubsteps-1 {
			h = end - t
			last = true
		}
		next, errRatio := r.Attempt(dyn, cur, u, t, h)
		if errRatio <= 1 || i >= r.MaxSubsteps-1 {
			cur = next
			if last {
				return cur
			}
			t += h
		}
		h *= r.scale(errRatio)
	}
}

// Attempt takes a single Dormand-Prince step of size h and returns the new
// state with its error relative to Tol.
func (r *RK45) Attempt(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) (dynamo.State, float64) {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k[0], dyn.Derive(x, u, t))
	next := make(dynamo.State, n)
	for s := 1; s < 7; s++ {
		dst := r.stage
		if s == 6 {
			dst = next
		}
		copy(dst, x)
		for j := 0; j < s; j++ {
			if dpA[s][j] != 0 {
				floats.AddScaled(dst, h*dpA[s][j], r.k[j])
			}
		}
		copy(r.k[s], dyn.Derive(dst, u, t+dpC[s]*h))
	}

	errMax := 0.0
	for i := 0; i < n; i++ {
		var e float64
		for s := range dpE {
			e += dpE[s] * r.k[s][i]
		}
		sc := math.Abs(x[i]) + math.Abs(h*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(h*e)/sc)
	}
	return next, errMax / r.Tol
}

func (r *RK45) scale(errRatio float64) float64 {
	switch {
	case math.IsNaN(errRatio):
		return r.minScale
	case errRatio > 1:
		return math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		return math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		return r.maxScale
	}
}
