package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/quadtask/internal/config"
	"github.com/san-kum/quadtask/internal/experiment"
	"github.com/san-kum/quadtask/internal/export"
	"github.com/san-kum/quadtask/internal/optim"
	"github.com/san-kum/quadtask/internal/storage"
	"github.com/san-kum/quadtask/internal/task"
	"github.com/san-kum/quadtask/internal/viz"
)

var (
	dataDir  string
	logLevel string
	log      = logrus.New()

	configFile string
	preset     string
	policyName string
	integrator string
	dt         float64
	runtime    float64
	episodes   int
	maxSteps   int
	workers    int
	seed       uint64
	targetPos  []float64
	initPose   []float64
	params     map[string]string
	noSave     bool

	plotEpisode int
	grid        []string

	exportFormat string
	exportOut    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quadtask",
		Short: "quadcopter reinforcement-learning task lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		SilenceUsage: true,
	}
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".quadtask", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run episodes and store them",
		Args:  cobra.NoArgs,
		RunE:  runEpisodes,
	}
	experimentFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot altitude and reward of a stored episode",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotEpisode, "episode", -1, "episode to plot (default: best)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored episode as json or svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().IntVar(&plotEpisode, "episode", -1, "episode to export (default: best)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "json, svg-altitude or svg-reward")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default: stdout)")

	rewardCmd := &cobra.Command{
		Use:   "reward x y z roll pitch yaw",
		Short: "evaluate the reward of a single pose",
		Args:  cobra.ExactArgs(6),
		RunE:  evalReward,
	}
	rewardCmd.Flags().Float64SliceVar(&targetPos, "target", nil, "target position x,y,z")
	rewardCmd.Flags().Float64SliceVar(&initPose, "init-pose", nil, "initial pose x,y,z,roll,pitch,yaw")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPOLICY\tEPISODES\tTARGET")
			for _, name := range config.ListPresets() {
				cfg, _ := config.GetPreset(name)
				target := cfg.Task.TargetPos
				if len(target) == 0 {
					target = task.DefaultTarget[:]
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", name, cfg.Policy.Name, cfg.Experiment.Episodes, target)
			}
			return w.Flush()
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "fly one episode with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	experimentFlags(liveCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search policy parameters for the best mean return",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	experimentFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "parameter range name=lo:hi:n (repeatable)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, rewardCmd, presetsCmd, liveCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func experimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&policyName, "policy", config.DefaultPolicy, "policy")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "simulator timestep")
	cmd.Flags().Float64Var(&runtime, "runtime", task.DefaultRuntime, "episode runtime in seconds")
	cmd.Flags().IntVar(&episodes, "episodes", config.DefaultEpisodes, "number of episodes")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step limit per episode (0 = runtime only)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 = sequential)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().Float64SliceVar(&targetPos, "target", nil, "target position x,y,z")
	cmd.Flags().Float64SliceVar(&initPose, "init-pose", nil, "initial pose x,y,z,roll,pitch,yaw")
	cmd.Flags().StringToStringVar(&params, "param", nil, "policy parameter name=value (repeatable)")
}

// resolveConfig layers the preset, the config file and explicitly set flags,
// later layers winning.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := config.GetPreset(preset)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
		cfg = p
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Policy.Name = policyName
	}
	if flags.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Changed("runtime") {
		cfg.Task.Runtime = runtime
	}
	if flags.Changed("episodes") {
		cfg.Experiment.Episodes = episodes
	}
	if flags.Changed("max-steps") {
		cfg.Experiment.MaxSteps = maxSteps
	}
	if flags.Changed("workers") {
		cfg.Experiment.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Policy.Seed = seed
	}
	if flags.Changed("target") {
		cfg.Task.TargetPos = targetPos
	}
	if flags.Changed("init-pose") {
		cfg.Task.InitPose = initPose
	}
	if len(params) > 0 && cfg.Policy.Params == nil {
		cfg.Policy.Params = map[string]float64{}
	}
	for k, v := range params {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", k, err)
		}
		cfg.Policy.Params[k] = f
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runExperiment(ctx context.Context, reg *experiment.Registry, ec experiment.Config) (*experiment.Result, error) {
	build, err := reg.Builder(ec)
	if err != nil {
		return nil, err
	}
	if ec.Workers > 1 {
		return experiment.NewEnsemble(ec, build, reg, log).Run(ctx)
	}
	return experiment.NewRunner(ec, build, reg, log).Run(ctx)
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ec, err := cfg.ToExperiment()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.WithFields(logrus.Fields{
		"policy":   ec.Policy,
		"episodes": ec.Episodes,
		"workers":  ec.Workers,
	}).Info("starting run")

	res, err := runExperiment(ctx, experiment.NewRegistry(), ec)
	if err != nil {
		return err
	}

	printSummary(res.Summary)

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(res)
	if err != nil {
		return err
	}
	fmt.Printf("saved: %s\n", runID)
	return nil
}

func printSummary(s experiment.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "episodes\t%d\n", s.Episodes)
	fmt.Fprintf(w, "mean return\t%.3f\n", s.MeanReturn)
	fmt.Fprintf(w, "std return\t%.3f\n", s.StdReturn)
	fmt.Fprintf(w, "best\t#%d (%.3f)\n", s.Best, s.BestReturn)
	fmt.Fprintf(w, "mean steps\t%.1f\n", s.MeanSteps)
	fmt.Fprintf(w, "done rate\t%.2f\n", s.DoneRate)
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOLICY\tTIME\tEPISODES\tMEAN RETURN\tRUNTIME\tDT\tINTEG")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.3f\t%.2fs\t%.4fs\t%s\n",
			run.ID,
			run.Policy,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Summary.Episodes,
			run.Summary.MeanReturn,
			run.Runtime,
			run.Dt,
			run.Integrator,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, ep, poses, err := loadEpisode(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("policy: %s\n", meta.Policy)
	fmt.Printf("episode: %d (%d steps)\n\n", ep, len(poses))

	z := make([]float64, len(poses))
	reward := make([]float64, len(poses))
	dist := make([]float64, len(poses))
	for i, p := range poses {
		z[i] = p.Pose[2]
		reward[i] = p.Reward
		dist[i] = task.Distance(p.Pose.Position(), meta.Target)
	}

	for _, series := range []struct {
		caption string
		data    []float64
	}{
		{"altitude z", z},
		{"step reward", reward},
		{"distance to target", dist},
	} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func loadEpisode(runID string) (*storage.RunMetadata, int, []storage.PoseRecord, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, 0, nil, err
	}
	ep := plotEpisode
	if ep < 0 {
		ep = meta.Summary.Best
	}
	poses, err := st.LoadPoses(runID, ep)
	if err != nil {
		return nil, 0, nil, err
	}
	if len(poses) == 0 {
		return nil, 0, nil, fmt.Errorf("no data for episode %d", ep)
	}
	return meta, ep, poses, nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, ep, poses, err := loadEpisode(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "json":
		return export.WriteJSON(out, export.NewEpisodeData(meta, ep, poses))
	case "svg-altitude":
		return export.WriteSVG(out, export.AltitudeSeries(poses, meta.Target[2]), 800, 400)
	case "svg-reward":
		return export.WriteSVG(out, export.RewardSeries(poses), 800, 400)
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
}

func evalReward(cmd *cobra.Command, args []string) error {
	var pose task.Pose
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i+1, err)
		}
		pose[i] = v
	}

	target := task.DefaultTarget
	if len(targetPos) > 0 {
		if len(targetPos) != 3 {
			return fmt.Errorf("--target needs 3 values, got %d", len(targetPos))
		}
		copy(target[:], targetPos)
	}
	var start task.Pose
	if len(initPose) > 0 {
		if len(initPose) != task.PoseSize {
			return fmt.Errorf("--init-pose needs %d values, got %d", task.PoseSize, len(initPose))
		}
		copy(start[:], initPose)
	}

	b, err := task.Breakdown(pose, start, target, task.ActionRepeat)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "proximity\t%.4f\n", b.Proximity)
	fmt.Fprintf(w, "proximity reward\t%.4f\n", b.ProximityReward)
	fmt.Fprintf(w, "rotation punish\t%d\n", b.RotationPunish)
	fmt.Fprintf(w, "shift punish\t%d\n", b.ShiftPunish)
	fmt.Fprintf(w, "reward\t%.4f\n", b.Reward)
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ec, err := cfg.ToExperiment()
	if err != nil {
		return err
	}

	build, err := experiment.NewRegistry().Builder(ec)
	if err != nil {
		return err
	}
	t, p, err := build(0)
	if err != nil {
		return err
	}

	m := viz.NewModel(t, p, ec.Policy)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return err
	}
	return nil
}

// parseGrid reads name=lo:hi:n.
func parseGrid(arg string) (string, []float64, error) {
	name, rng, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("grid %q: expected name=lo:hi:n", arg)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("grid %q: expected name=lo:hi:n", arg)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid %q: %w", arg, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid %q: %w", arg, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("grid %q: bad count %q", arg, parts[2])
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(grid) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ec, err := cfg.ToExperiment()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(grid))
	ranges := make([][]float64, 0, len(grid))
	for _, arg := range grid {
		name, values, err := parseGrid(arg)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	ctx, cancel := signalContext()
	defer cancel()

	reg := experiment.NewRegistry()
	quiet := logrus.New()
	quiet.SetOutput(log.Out)
	quiet.SetFormatter(log.Formatter)
	quiet.SetLevel(logrus.WarnLevel)

	g := optim.NewGridSearch(names, ranges, log)
	best, score, err := g.Search(ctx, optim.ExperimentEvaluator(reg, ec, quiet))
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%g\n", k, best[k])
	}
	fmt.Fprintf(w, "mean return\t%.3f\n", score)
	return w.Flush()
}
