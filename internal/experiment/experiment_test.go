package experiment_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/san-kum/quadtask/internal/experiment"
	"github.com/san-kum/quadtask/internal/metrics"
	"github.com/san-kum/quadtask/internal/policy"
	"github.com/san-kum/quadtask/internal/sim"
	"github.com/san-kum/quadtask/internal/task"
)

func defaultTask() *task.Task {
	t, err := task.New(task.Config{}, sim.Factory(sim.Options{}))
	Expect(err).NotTo(HaveOccurred())
	return t
}

var _ = Describe("RunEpisode", func() {
	It("hovers on target until the runtime runs out", func() {
		ep, err := experiment.RunEpisode(context.Background(), defaultTask(), policy.NewHover(), 0, metrics.NewReturn())
		Expect(err).NotTo(HaveOccurred())

		Expect(ep.Done).To(BeTrue())
		Expect(ep.Steps).To(Equal(84))
		Expect(ep.Poses).To(HaveLen(84))
		Expect(ep.Actions).To(HaveLen(84))
		Expect(ep.Rewards).To(HaveLen(84))
		Expect(ep.Return).To(BeNumerically("~", 840, 0.1))
		Expect(ep.Metrics["return"]).To(Equal(ep.Return))
		Expect(ep.Start).To(Equal(sim.DefaultInitPose))
	})

	It("stops at the step limit", func() {
		ep, err := experiment.RunEpisode(context.Background(), defaultTask(), policy.NewHover(), 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Steps).To(Equal(5))
		Expect(ep.Done).To(BeFalse())
	})

	It("honours cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ep, err := experiment.RunEpisode(ctx, defaultTask(), policy.NewHover(), 0)
		Expect(err).To(MatchError(context.Canceled))
		Expect(ep.Steps).To(Equal(0))
	})

	It("resets the policy and metrics between episodes", func() {
		t := defaultTask()
		p := policy.NewUniform(0, 900, 3)
		ret := metrics.NewReturn()

		a, err := experiment.RunEpisode(context.Background(), t, p, 10, ret)
		Expect(err).NotTo(HaveOccurred())
		b, err := experiment.RunEpisode(context.Background(), t, p, 10, ret)
		Expect(err).NotTo(HaveOccurred())

		Expect(b.Actions).To(Equal(a.Actions))
		Expect(b.Metrics["return"]).To(Equal(a.Metrics["return"]))
	})
})

var _ = Describe("Registry", func() {
	var reg *experiment.Registry

	BeforeEach(func() {
		reg = experiment.NewRegistry()
	})

	It("lists what it knows", func() {
		Expect(reg.ListPolicies()).To(Equal([]string{"constant", "hover", "pid", "random"}))
		Expect(reg.ListIntegrators()).To(Equal([]string{"euler", "rk4", "rk45"}))
	})

	It("rejects unknown names", func() {
		_, err := reg.Builder(experiment.Config{Policy: "nope"})
		Expect(err).To(MatchError(experiment.ErrUnknownPolicy))

		_, err = reg.Builder(experiment.Config{Policy: "hover", Integrator: "leapfrog"})
		Expect(err).To(MatchError(experiment.ErrUnknownIntegrator))
	})

	It("aims the PID at the task's target by default", func() {
		p, err := reg.GetPolicy("pid", nil, experiment.PolicyEnv{Target: [3]float64{0, 0, 42}})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.(*policy.AltitudePID).TargetZ).To(Equal(42.0))
		Expect(p.(*policy.AltitudePID).Dt).To(BeNumerically("~", policy.DefaultStepDt, 1e-12))
	})

	DescribeTable("times the PID by the simulator step",
		func(dt, want float64) {
			build, err := reg.Builder(experiment.Config{Policy: "pid", Dt: dt})
			Expect(err).NotTo(HaveOccurred())
			_, p, err := build(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.(*policy.AltitudePID).Dt).To(BeNumerically("~", want, 1e-12))
		},
		Entry("default dt", 0.0, 0.06),
		Entry("dt 0.01", 0.01, 0.03),
		Entry("dt 0.05", 0.05, 0.15),
	)

	It("lets a dt param override the step duration", func() {
		build, err := reg.Builder(experiment.Config{
			Policy: "pid",
			Dt:     0.01,
			Params: map[string]float64{"dt": 0.5},
		})
		Expect(err).NotTo(HaveOccurred())
		_, p, err := build(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.(*policy.AltitudePID).Dt).To(Equal(0.5))
	})

	It("builds independent tasks", func() {
		build, err := reg.Builder(experiment.Config{Policy: "hover"})
		Expect(err).NotTo(HaveOccurred())

		t1, _, err := build(0)
		Expect(err).NotTo(HaveOccurred())
		t2, _, err := build(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(t1.Simulator()).NotTo(BeIdenticalTo(t2.Simulator()))
	})

	It("reports a degenerate target when building", func() {
		build, err := reg.Builder(experiment.Config{
			Policy: "hover",
			Task:   task.Config{TargetPos: &[3]float64{0, 0, 0}},
		})
		Expect(err).NotTo(HaveOccurred())

		_, _, err = build(0)
		Expect(err).To(MatchError(task.ErrDegenerateTarget))
	})
})

var _ = Describe("Runner and Ensemble", func() {
	var (
		reg  *experiment.Registry
		cfg  experiment.Config
		log  *logrus.Logger
		hook *test.Hook
	)

	BeforeEach(func() {
		reg = experiment.NewRegistry()
		cfg = experiment.Config{
			Policy:   "random",
			Params:   map[string]float64{"low": 380, "high": 430},
			Episodes: 6,
			MaxSteps: 10,
			Workers:  3,
			Seed:     11,
		}
		log, hook = test.NewNullLogger()
		log.SetLevel(logrus.DebugLevel)
	})

	It("produce the same episodes", func() {
		build, err := reg.Builder(cfg)
		Expect(err).NotTo(HaveOccurred())

		seq, err := experiment.NewRunner(cfg, build, reg, log).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		par, err := experiment.NewEnsemble(cfg, build, reg, log).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(par.Episodes).To(HaveLen(6))
		for i := range seq.Episodes {
			Expect(par.Episodes[i].Index).To(Equal(i))
			Expect(par.Episodes[i].Return).To(Equal(seq.Episodes[i].Return))
			Expect(par.Episodes[i].Actions).To(Equal(seq.Episodes[i].Actions))
		}
		Expect(par.Summary).To(Equal(seq.Summary))
		Expect(seq.Episodes[0].Actions).NotTo(Equal(seq.Episodes[1].Actions))
	})

	It("logs every episode and the summary", func() {
		build, err := reg.Builder(cfg)
		Expect(err).NotTo(HaveOccurred())

		_, err = experiment.NewRunner(cfg, build, reg, log).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(hook.Entries).To(HaveLen(7))
		Expect(hook.Entries[0].Data).To(HaveKeyWithValue("episode", 0))
		last := hook.LastEntry()
		Expect(last.Message).To(Equal("experiment finished"))
		Expect(last.Data).To(HaveKeyWithValue("episodes", 6))
	})

	It("fails when any episode fails", func() {
		boom := errors.New("boom")
		build := func(i int) (*task.Task, policy.Policy, error) {
			if i == 4 {
				return nil, nil, boom
			}
			t, err := task.New(task.Config{}, sim.Factory(sim.Options{}))
			return t, policy.NewHover(), err
		}

		_, err := experiment.NewEnsemble(cfg, build, reg, log).Run(context.Background())
		Expect(err).To(MatchError(boom))
	})
})

var _ = Describe("Summarize", func() {
	It("aggregates returns", func() {
		s := experiment.Summarize([]*experiment.Episode{
			{Index: 0, Return: 1, Steps: 10, Done: true},
			{Index: 1, Return: 3, Steps: 20},
		})
		Expect(s.Episodes).To(Equal(2))
		Expect(s.MeanReturn).To(Equal(2.0))
		Expect(s.StdReturn).To(BeNumerically("~", math.Sqrt2, 1e-12))
		Expect(s.Best).To(Equal(1))
		Expect(s.BestReturn).To(Equal(3.0))
		Expect(s.MeanSteps).To(Equal(15.0))
		Expect(s.DoneRate).To(Equal(0.5))
	})

	It("handles a single episode", func() {
		s := experiment.Summarize([]*experiment.Episode{{Return: 5}})
		Expect(s.StdReturn).To(Equal(0.0))
	})

	It("handles no episodes", func() {
		Expect(experiment.Summarize(nil)).To(Equal(experiment.Summary{}))
	})
})
