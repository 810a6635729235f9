package task_test

import (
	"errors"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/quadtask/internal/task"
)

// scriptedSim replays a fixed sequence of poses and done flags, one per
// NextTimestep call.
type scriptedSim struct {
	resetPose task.Pose
	poses     []task.Pose
	dones     []bool

	pose    task.Pose
	cursor  int
	resets  int
	actions []task.RotorSpeeds
}

func (s *scriptedSim) Pose() task.Pose { return s.pose }

func (s *scriptedSim) NextTimestep(action task.RotorSpeeds) bool {
	s.actions = append(s.actions, action)
	i := s.cursor
	s.cursor++
	if i < len(s.poses) {
		s.pose = s.poses[i]
	}
	return i < len(s.dones) && s.dones[i]
}

func (s *scriptedSim) Reset() {
	s.resets++
	s.cursor = 0
	s.pose = s.resetPose
}

func factoryFor(s *scriptedSim, captured *task.SimInit) task.SimulatorFactory {
	return func(init task.SimInit) (task.Simulator, error) {
		if captured != nil {
			*captured = init
		}
		return s, nil
	}
}

var _ = Describe("Task", func() {
	var sim *scriptedSim

	BeforeEach(func() {
		sim = &scriptedSim{}
	})

	Describe("New", func() {
		It("applies the defaults", func() {
			var init task.SimInit
			t, err := task.New(task.Config{}, factoryFor(sim, &init))
			Expect(err).NotTo(HaveOccurred())

			Expect(t.Target()).To(Equal(task.DefaultTarget))
			Expect(t.InitPose()).To(Equal(task.Pose{}))
			Expect(t.Runtime()).To(Equal(task.DefaultRuntime))
			Expect(t.Simulator()).To(BeIdenticalTo(sim))

			Expect(init.Runtime).To(Equal(5.0))
			Expect(init.InitPose).To(BeNil())
			Expect(init.InitVelocities).To(BeNil())
			Expect(init.InitAngleVelocities).To(BeNil())
		})

		It("exposes the fixed sizes and action range", func() {
			t, err := task.New(task.Config{}, factoryFor(sim, nil))
			Expect(err).NotTo(HaveOccurred())

			Expect(t.StateSize()).To(Equal(18))
			Expect(t.ActionSize()).To(Equal(4))
			Expect(t.ActionLow()).To(Equal(0.0))
			Expect(t.ActionHigh()).To(Equal(900.0))
			Expect(t.ActionRepeat()).To(Equal(3))
		})

		It("forwards the configured initial conditions", func() {
			pose := task.Pose{1, 2, 3, 0, 0, 0}
			vel := [3]float64{0.1, 0.2, 0.3}
			ang := [3]float64{0, 0, 0.5}
			target := [3]float64{1, 2, 13}

			var init task.SimInit
			t, err := task.New(task.Config{
				InitPose:            &pose,
				InitVelocities:      &vel,
				InitAngleVelocities: &ang,
				Runtime:             2,
				TargetPos:           &target,
			}, factoryFor(sim, &init))
			Expect(err).NotTo(HaveOccurred())

			Expect(t.InitPose()).To(Equal(pose))
			Expect(t.Target()).To(Equal(target))
			Expect(*init.InitPose).To(Equal(pose))
			Expect(*init.InitVelocities).To(Equal(vel))
			Expect(*init.InitAngleVelocities).To(Equal(ang))
			Expect(init.Runtime).To(Equal(2.0))
		})

		It("rejects a target equal to the initial position", func() {
			pose := task.Pose{0, 0, 10, 0.2, 0, 0}
			called := false
			_, err := task.New(task.Config{InitPose: &pose}, func(task.SimInit) (task.Simulator, error) {
				called = true
				return sim, nil
			})
			Expect(err).To(MatchError(task.ErrDegenerateTarget))
			Expect(called).To(BeFalse())
		})

		It("wraps factory errors", func() {
			boom := errors.New("boom")
			_, err := task.New(task.Config{}, func(task.SimInit) (task.Simulator, error) {
				return nil, boom
			})
			Expect(errors.Is(err, boom)).To(BeTrue())
		})
	})

	Describe("Reset", func() {
		It("returns eighteen zeros for the default task over a zero pose", func() {
			t, err := task.New(task.Config{}, factoryFor(sim, nil))
			Expect(err).NotTo(HaveOccurred())

			obs := t.Reset()
			Expect(obs).To(HaveLen(task.StateSize))
			Expect(cmp.Diff(task.Observation(make([]float64, 18)), obs)).To(BeEmpty())
		})

		It("repeats the post-reset pose", func() {
			sim.resetPose = task.Pose{1, 2, 10, 0.1, 0.2, 0.3}
			t, err := task.New(task.Config{}, factoryFor(sim, nil))
			Expect(err).NotTo(HaveOccurred())

			obs := t.Reset()
			Expect(sim.resets).To(Equal(1))
			for i := 0; i < task.ActionRepeat; i++ {
				Expect(obs.Pose(i)).To(Equal(sim.resetPose))
			}
			Expect(obs.Latest()).To(Equal(sim.resetPose))
		})

		It("returns a fresh slice each call", func() {
			t, err := task.New(task.Config{}, factoryFor(sim, nil))
			Expect(err).NotTo(HaveOccurred())

			a := t.Reset()
			a[0] = 42
			b := t.Reset()
			Expect(b[0]).To(Equal(0.0))
		})
	})

	Describe("Step", func() {
		var t *task.Task

		atTarget := task.Pose{0, 0, 10, 0, 0, 0}

		JustBeforeEach(func() {
			var err error
			t, err = task.New(task.Config{}, factoryFor(sim, nil))
			Expect(err).NotTo(HaveOccurred())
			t.Reset()
		})

		Context("when every substep sits on the target", func() {
			BeforeEach(func() {
				sim.poses = []task.Pose{atTarget, atTarget, atTarget}
			})

			It("sums to the full proximity reward", func() {
				obs, reward, done := t.Step(task.RotorSpeeds{400, 400, 400, 400})
				Expect(obs).To(HaveLen(18))
				Expect(reward).To(BeNumerically("~", 10, 1e-12))
				Expect(done).To(BeFalse())
			})
		})

		It("holds the action for every substep", func() {
			action := task.RotorSpeeds{1, 2, 3, 4}
			t.Step(action)
			Expect(sim.actions).To(Equal([]task.RotorSpeeds{action, action, action}))
		})

		It("concatenates the substep poses in order", func() {
			sim.poses = []task.Pose{
				{0, 0, 1, 0, 0, 0},
				{0, 0, 2, 0, 0, 0},
				{0, 0, 3, 0, 0, 0},
			}
			obs, _, _ := t.Step(task.RotorSpeeds{})

			want := task.Observation{
				0, 0, 1, 0, 0, 0,
				0, 0, 2, 0, 0, 0,
				0, 0, 3, 0, 0, 0,
			}
			Expect(cmp.Diff(want, obs)).To(BeEmpty())
		})

		It("rewards each substep against its own pose", func() {
			sim.poses = []task.Pose{
				{0, 0, 5, 0, 0, 0},
				{0, 0, 10, 0, 0, 0},
				{2, 0, 10, 0.5, 0, 0},
			}
			_, reward, _ := t.Step(task.RotorSpeeds{})

			// 10*0.5/3 + 10/3 + (10*(1-2/10) - 1 - 1)/3
			Expect(reward).To(BeNumerically("~", (5.0+10.0+6.0)/3, 1e-9))
		})

		DescribeTable("reports only the final substep's done flag",
			func(dones []bool, want bool) {
				sim.dones = dones
				_, _, done := t.Step(task.RotorSpeeds{})
				Expect(done).To(Equal(want))
			},
			Entry("none", []bool{false, false, false}, false),
			Entry("final only", []bool{false, false, true}, true),
			Entry("first only", []bool{true, false, false}, false),
			Entry("middle only", []bool{false, true, false}, false),
			Entry("all", []bool{true, true, true}, true),
		)

		It("matches StepDetailed", func() {
			sim.poses = []task.Pose{
				{0, 0, 4, 0, 0, 0},
				{1.5, 0, 6, 0, 0.04, 0},
				{0, -3, 8, 0, 0, 0},
			}
			sim.dones = []bool{false, true, false}
			obs, reward, done := t.Step(task.RotorSpeeds{})

			t.Reset()
			dObs, dReward, dDone, subs := t.StepDetailed(task.RotorSpeeds{})
			Expect(cmp.Diff(obs, dObs)).To(BeEmpty())
			Expect(dReward).To(Equal(reward))
			Expect(dDone).To(Equal(done))

			Expect(subs).To(HaveLen(3))
			Expect(subs[1].Done).To(BeTrue())
			Expect(subs[1].RotationPunish).To(Equal(1))
			Expect(subs[1].ShiftPunish).To(Equal(1))
			Expect(subs[2].Pose).To(Equal(sim.poses[2]))
		})
	})

	Describe("Specs", func() {
		It("describes the action and observation spaces", func() {
			t, err := task.New(task.Config{}, factoryFor(sim, nil))
			Expect(err).NotTo(HaveOccurred())

			as := t.ActionSpec()
			Expect(as.Type).To(Equal(task.ActionSpecType))
			Expect(as.Len()).To(Equal(4))
			Expect(as.Contains([]float64{0, 450, 900, 1})).To(BeTrue())
			Expect(as.Contains([]float64{0, 450, 901, 1})).To(BeFalse())
			Expect(as.Contains([]float64{0, 450})).To(BeFalse())

			os := t.ObservationSpec()
			Expect(os.Type.String()).To(Equal("observation"))
			Expect(os.Len()).To(Equal(18))
			Expect(os.Contains(make([]float64, 18))).To(BeTrue())
		})
	})
})
