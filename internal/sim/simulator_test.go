package sim_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/san-kum/quadtask/internal/dynamo"
	"github.com/san-kum/quadtask/internal/integrators"
	"github.com/san-kum/quadtask/internal/physics"
	"github.com/san-kum/quadtask/internal/sim"
	"github.com/san-kum/quadtask/internal/task"
)

type nanIntegrator struct{}

func (nanIntegrator) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	out := x.Clone()
	out[physics.IdxZ] = math.NaN()
	return out
}

type shortIntegrator struct{}

func (shortIntegrator) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return x[:physics.IdxVX].Clone()
}

func hover() task.RotorSpeeds {
	n := physics.NewQuadcopter().HoverSpeed()
	return task.RotorSpeeds{n, n, n, n}
}

func poseAt(vals ...float64) *task.Pose {
	var p task.Pose
	copy(p[:], vals)
	return &p
}

var _ = Describe("PhysicsSim", func() {
	Describe("New", func() {
		It("starts from the default pose", func() {
			s, err := sim.New(sim.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Pose()).To(Equal(sim.DefaultInitPose))
			Expect(s.Velocity()).To(Equal([3]float64{}))
			Expect(s.AngularVelocity()).To(Equal([3]float64{}))
			Expect(s.Time()).To(Equal(0.0))
			Expect(s.Dt()).To(Equal(sim.DefaultDt))
			Expect(s.Runtime()).To(Equal(sim.DefaultRuntime))
			Expect(s.State()).To(HaveLen(physics.StateDim))
		})

		DescribeTable("rejects unusable options",
			func(opts sim.Options) {
				_, err := sim.New(opts)
				Expect(err).To(MatchError(sim.ErrInvalidConfig))
			},
			Entry("negative dt", sim.Options{Dt: -0.01}),
			Entry("negative runtime", sim.Options{Runtime: -1}),
			Entry("empty bounds", sim.Options{Bounds: [3]r1.Interval{
				{Min: -1, Max: 1},
				{Min: 2, Max: 2},
				{Min: 0, Max: 10},
			}}),
		)
	})

	Describe("NextTimestep", func() {
		It("holds altitude at hover speed", func() {
			s, err := sim.New(sim.Options{})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 50; i++ {
				Expect(s.NextTimestep(hover())).To(BeFalse())
			}
			Expect(s.Pose()[2]).To(BeNumerically("~", 10, 1e-6))
			Expect(s.Time()).To(BeNumerically("~", 1, 1e-9))
			Expect(s.Steps()).To(Equal(50))
		})

		It("falls without thrust", func() {
			s, err := sim.New(sim.Options{})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 50; i++ {
				s.NextTimestep(task.RotorSpeeds{})
			}
			z := s.Pose()[2]
			Expect(z).To(BeNumerically("<", 10))
			Expect(z).To(BeNumerically(">", 10+0.5*physics.DefaultGravity))
			Expect(s.Velocity()[2]).To(BeNumerically("<", 0))
		})

		It("integrates with the configured integrator", func() {
			s, err := sim.New(sim.Options{Integrator: integrators.NewEuler()})
			Expect(err).NotTo(HaveOccurred())

			s.NextTimestep(task.RotorSpeeds{})
			Expect(s.Pose()[2]).To(Equal(10.0))
			Expect(s.Velocity()[2]).To(BeNumerically("~", physics.DefaultGravity*sim.DefaultDt, 1e-12))
		})

		It("ends the episode once the runtime elapses", func() {
			s, err := sim.New(sim.Options{Runtime: 0.1})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 4; i++ {
				Expect(s.NextTimestep(hover())).To(BeFalse())
			}
			s.NextTimestep(hover())
			Expect(s.NextTimestep(hover())).To(BeTrue())
		})

		It("clamps to the floor and stays done until reset", func() {
			s, err := sim.New(sim.Options{InitPose: poseAt(0, 0, 0.001)})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.NextTimestep(task.RotorSpeeds{})).To(BeTrue())
			Expect(s.Pose()[2]).To(Equal(0.0))

			Expect(s.NextTimestep(hover())).To(BeTrue())
			Expect(s.Done()).To(BeTrue())

			s.Reset()
			Expect(s.Done()).To(BeFalse())
			Expect(s.Pose()[2]).To(Equal(0.001))
			Expect(s.Time()).To(Equal(0.0))
		})

		It("clamps to the upper bound", func() {
			s, err := sim.New(sim.Options{
				InitPose:       poseAt(149.99, 0, 10),
				InitVelocities: &[3]float64{10, 0, 0},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.NextTimestep(hover())).To(BeTrue())
			Expect(s.Pose()[0]).To(Equal(150.0))
		})

		It("wraps the Euler angles", func() {
			s, err := sim.New(sim.Options{InitAngleVelocities: &[3]float64{-1, 0, 0}})
			Expect(err).NotTo(HaveOccurred())

			s.NextTimestep(hover())
			roll := s.Pose()[3]
			Expect(roll).To(BeNumerically(">=", 0))
			Expect(roll).To(BeNumerically("<", 2*math.Pi))
			Expect(roll).To(BeNumerically("~", 2*math.Pi-0.02, 1e-3))
		})

		It("stops on an invalid state", func() {
			s, err := sim.New(sim.Options{Integrator: nanIntegrator{}})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.NextTimestep(hover())).To(BeTrue())
			Expect(s.LastError()).To(MatchError(dynamo.ErrInvalidState))
			Expect(s.Pose()).To(Equal(sim.DefaultInitPose))

			var simErr *dynamo.SimulationError
			Expect(s.LastError()).To(BeAssignableToTypeOf(simErr))

			s.Reset()
			Expect(s.LastError()).NotTo(HaveOccurred())
		})

		It("stops on a state of the wrong length", func() {
			s, err := sim.New(sim.Options{Integrator: shortIntegrator{}})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.NextTimestep(hover())).To(BeTrue())
			Expect(s.LastError()).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(s.State()).To(HaveLen(physics.StateDim))
			Expect(s.Pose()).To(Equal(sim.DefaultInitPose))
			Expect(s.Steps()).To(Equal(0))
		})
	})

	Describe("Factory", func() {
		It("lets the task's initial conditions win", func() {
			f := sim.Factory(sim.Options{InitPose: poseAt(0, 0, 50), Runtime: 9})
			got, err := f(task.SimInit{InitPose: poseAt(1, 2, 3), Runtime: 2})
			Expect(err).NotTo(HaveOccurred())

			s := got.(*sim.PhysicsSim)
			Expect(s.Pose()).To(Equal(*poseAt(1, 2, 3)))
			Expect(s.Runtime()).To(Equal(2.0))
		})

		It("keeps its own defaults for unset fields", func() {
			got, err := sim.Factory(sim.Options{InitPose: poseAt(0, 0, 50)})(task.SimInit{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Pose()).To(Equal(*poseAt(0, 0, 50)))
		})

		It("wraps option errors", func() {
			_, err := sim.Factory(sim.Options{Dt: -1})(task.SimInit{})
			Expect(err).To(MatchError(sim.ErrInvalidConfig))
		})
	})

	Describe("driving a task", func() {
		It("rewards hovering on the default target", func() {
			t, err := task.New(task.Config{}, sim.Factory(sim.Options{}))
			Expect(err).NotTo(HaveOccurred())

			obs := t.Reset()
			Expect(obs.Latest()).To(Equal(sim.DefaultInitPose))

			obs, reward, done := t.Step(hover())
			Expect(obs).To(HaveLen(task.StateSize))
			Expect(reward).To(BeNumerically("~", 10, 1e-4))
			Expect(done).To(BeFalse())
		})

		It("reports done when the runtime runs out", func() {
			t, err := task.New(task.Config{Runtime: 0.05}, sim.Factory(sim.Options{}))
			Expect(err).NotTo(HaveOccurred())
			t.Reset()

			_, _, done := t.Step(hover())
			Expect(done).To(BeTrue())
		})
	})
})
