package metrics

import (
	"math"

	"github.com/san-kum/quadtask/internal/dynamo"
)

// Tilt returns how far a wrapped Euler angle is from level.
func Tilt(a float64) float64 {
	a = math.Mod(math.Abs(a), 2*math.Pi)
	return math.Min(a, 2*math.Pi-a)
}

// Stability is the fraction of steps on which every Euler angle of the pose
// stays within threshold of level.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, reward float64) {
	if len(x) < 6 {
		return
	}
	s.samples++
	for _, a := range x[3:6] {
		if Tilt(a) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// MaxTilt is the largest roll or pitch excursion seen in an episode.
type MaxTilt struct {
	max float64
}

func NewMaxTilt() *MaxTilt { return &MaxTilt{} }

func (m *MaxTilt) Name() string { return "max_tilt" }

func (m *MaxTilt) Observe(x dynamo.State, u dynamo.Control, reward float64) {
	if len(x) < 5 {
		return
	}
	m.max = math.Max(m.max, math.Max(Tilt(x[3]), Tilt(x[4])))
}

func (m *MaxTilt) Value() float64 { return m.max }

func (m *MaxTilt) Reset() { m.max = 0 }
