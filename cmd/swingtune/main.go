package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mwielgat/swingtune/internal/config"
	"github.com/mwielgat/swingtune/internal/export"
	"github.com/mwielgat/swingtune/internal/metrics"
	"github.com/mwielgat/swingtune/internal/sim"
	"github.com/mwielgat/swingtune/internal/smc"
	"github.com/mwielgat/swingtune/internal/store"
	"github.com/mwielgat/swingtune/internal/tune"
	"github.com/mwielgat/swingtune/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	// tune
	particles int
	iters     int
	inertia   float64
	c1        float64
	c2        float64
	seed      int64
	workers   int
	timeout   float64
	liveView  bool
	writePNG  bool
	outDir    string

	// simulate / validate
	gainsFlag   string
	dt          float64
	duration    float64
	theta1      float64
	theta2      float64
	cartX       float64
	cartXDot    float64
	omega1      float64
	omega2      float64
	integrator  string
	feedforward bool
	saveRun     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "swingtune",
		Short: "sliding-mode controller tuning for the double inverted pendulum",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "runs", "data directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	tuneCmd := &cobra.Command{
		Use:   "tune [controller]",
		Short: "search controller gains with the particle swarm",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	tuneCmd.Flags().IntVar(&particles, "particles", 30, "swarm size")
	tuneCmd.Flags().IntVar(&iters, "iters", 100, "iteration budget")
	tuneCmd.Flags().Float64Var(&inertia, "w", 0.7298, "inertia weight")
	tuneCmd.Flags().Float64Var(&c1, "c1", 1.49618, "cognitive coefficient")
	tuneCmd.Flags().Float64Var(&c2, "c2", 1.49618, "social coefficient")
	tuneCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = clock)")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "parallel candidate simulations (0 = all cores)")
	tuneCmd.Flags().Float64Var(&timeout, "timeout", 10, "per-candidate wall clock limit (s)")
	tuneCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml)")
	tuneCmd.Flags().StringVar(&preset, "preset", "", "named scenario (see presets)")
	tuneCmd.Flags().BoolVar(&liveView, "live", false, "live progress view")
	tuneCmd.Flags().BoolVar(&writePNG, "png", false, "write PNG charts next to the run data")
	tuneCmd.Flags().StringVar(&outDir, "out", "", "override the data directory for this run")

	simulateCmd := &cobra.Command{
		Use:   "simulate [controller]",
		Short: "run one closed-loop simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&gainsFlag, "gains", "", "comma-separated gains (empty = registry defaults)")
	simulateCmd.Flags().Float64Var(&dt, "dt", 0.01, "integration step (s)")
	simulateCmd.Flags().Float64Var(&duration, "time", 5, "horizon (s)")
	simulateCmd.Flags().Float64Var(&theta1, "theta1", 0.1, "initial first-link angle (rad)")
	simulateCmd.Flags().Float64Var(&theta2, "theta2", -0.05, "initial second-link angle (rad)")
	simulateCmd.Flags().Float64Var(&cartX, "x", 0, "initial cart position (m)")
	simulateCmd.Flags().Float64Var(&cartXDot, "xdot", 0, "initial cart velocity (m/s)")
	simulateCmd.Flags().Float64Var(&omega1, "omega1", 0, "initial first-link rate (rad/s)")
	simulateCmd.Flags().Float64Var(&omega2, "omega2", 0, "initial second-link rate (rad/s)")
	simulateCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4)")
	simulateCmd.Flags().BoolVar(&feedforward, "feedforward", true, "add the model equivalent term")
	simulateCmd.Flags().BoolVar(&liveView, "live", false, "replay the run as a terminal animation")
	simulateCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run")
	simulateCmd.Flags().BoolVar(&writePNG, "png", false, "write PNG charts (implies --save)")
	simulateCmd.Flags().StringVar(&configFile, "config", "", "config file (yaml)")
	simulateCmd.Flags().StringVar(&preset, "preset", "", "named scenario")

	validateCmd := &cobra.Command{
		Use:   "validate [controller]",
		Short: "check a gain vector against the registry",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
	validateCmd.Flags().StringVar(&gainsFlag, "gains", "", "comma-separated gains")
	validateCmd.MarkFlagRequired("gains")

	controllersCmd := &cobra.Command{
		Use:   "controllers",
		Short: "list controller variants",
		RunE:  runControllers,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list saved runs",
		RunE:  runList,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}
	plotCmd.Flags().BoolVar(&writePNG, "png", false, "also write PNG charts into the run directory")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return store.New(dataDir).Export(os.Stdout, args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list tuning scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(tuneCmd, simulateCmd, validateCmd, controllersCmd, runsCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Controller.Type = args[0]
	}

	// Explicit flags win over preset and config file values.
	flags := cmd.Flags()
	if flags.Changed("particles") {
		cfg.PSO.Particles = particles
	}
	if flags.Changed("iters") {
		cfg.PSO.Iterations = iters
	}
	if flags.Changed("w") {
		cfg.PSO.W = inertia
	}
	if flags.Changed("c1") {
		cfg.PSO.C1 = c1
	}
	if flags.Changed("c2") {
		cfg.PSO.C2 = c2
	}
	if flags.Changed("seed") {
		cfg.PSO.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Sim.Workers = workers
	}
	if flags.Changed("timeout") {
		cfg.Sim.Timeout = timeout
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if outDir != "" {
		cfg.DataDir = outDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	o.Logger = buildLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var res *tune.Result
	if liveView {
		res, err = viz.Live(ctx, o)
	} else {
		fmt.Printf("tuning %s (%d particles, %d iterations)...\n",
			cfg.Controller.Type, cfg.PSO.Particles, cfg.PSO.Iterations)
		res, err = tune.Run(ctx, o)
	}
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("tuning produced no result")
	}

	if !liveView {
		printResult(res)
		printMetrics(res.BestTrajectory, cfg.Sim.ConvergenceTol)
		if chart := export.History(res.History, 70, 10); chart != "" {
			fmt.Println()
			fmt.Println(chart)
		}
	}

	st := store.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(store.RunMetadata{
		Kind:       store.KindTune,
		Controller: res.Controller.String(),
		Seed:       cfg.PSO.Seed,
		Dt:         cfg.Sim.Dt,
		Duration:   cfg.Sim.Duration,
		Integrator: cfg.Sim.Integrator,
		GainNames:  res.GainNames,
		Gains:      res.BestGains,
		Cost:       res.BestCost,
		Reason:     res.Reason.String(),
		Iterations: res.Iterations,
		Stable:     res.FoundStable,
		Status:     trajStatus(res.BestTrajectory),
	}, res.BestTrajectory, res.History, res.Diversity)
	if err != nil {
		return err
	}
	fmt.Printf("\nrun id: %s\n", runID)

	if writePNG {
		written, err := writeRunPNGs(st.Dir(runID), res.BestTrajectory, res.History, res.Diversity)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Printf("wrote %s\n", p)
		}
	}
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Controller.Type = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if flags.Changed("feedforward") {
		cfg.Controller.Feedforward = feedforward
	}
	if flags.Changed("theta1") {
		cfg.Sim.InitState.Theta1 = theta1
	}
	if flags.Changed("theta2") {
		cfg.Sim.InitState.Theta2 = theta2
	}
	if flags.Changed("x") {
		cfg.Sim.InitState.X = cartX
	}
	if flags.Changed("xdot") {
		cfg.Sim.InitState.XDot = cartXDot
	}
	if flags.Changed("omega1") {
		cfg.Sim.InitState.Omega1 = omega1
	}
	if flags.Changed("omega2") {
		cfg.Sim.InitState.Omega2 = omega2
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o, err := cfg.ToOptions()
	if err != nil {
		return err
	}
	o.Logger = buildLogger()

	spec, err := smc.Get(o.Controller)
	if err != nil {
		return err
	}
	gains := cfg.Controller.Gains
	if flags.Changed("gains") {
		gains, err = parseGains(gainsFlag)
		if err != nil {
			return err
		}
	}
	if len(gains) == 0 {
		gains = spec.Defaults
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, bd, err := tune.Simulate(ctx, o, gains)
	if err != nil {
		return err
	}

	fmt.Printf("%s with gains %s\n", cfg.Controller.Type, joinFloats(gains))
	fmt.Printf("status: %s", tr.Status)
	if tr.Status == sim.StatusUnstable {
		fmt.Printf(" at t=%.2fs", tr.FailTime)
	}
	fmt.Printf("\ncost: %.6g (state %.4g, effort %.4g, rate %.4g, surface %.4g, penalty %.4g)\n",
		bd.Total, bd.StateError, bd.ControlEffort, bd.ControlRate, bd.SurfaceEnergy, bd.Penalty)
	printMetrics(tr, cfg.Sim.ConvergenceTol)

	if liveView {
		if err := viz.Replay(tr, cfg.Controller.Type); err != nil {
			return err
		}
	} else if chart := export.Angles(tr, 70, 10); chart != "" {
		fmt.Println()
		fmt.Println(chart)
	}

	if saveRun || writePNG {
		st := store.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(store.RunMetadata{
			Kind:       store.KindSimulate,
			Controller: cfg.Controller.Type,
			Dt:         cfg.Sim.Dt,
			Duration:   cfg.Sim.Duration,
			Integrator: cfg.Sim.Integrator,
			GainNames:  spec.GainNames,
			Gains:      gains,
			Cost:       bd.Total,
			Status:     tr.Status.String(),
		}, tr, nil, nil)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
		if writePNG {
			written, err := writeRunPNGs(st.Dir(runID), tr, nil, nil)
			if err != nil {
				return err
			}
			for _, p := range written {
				fmt.Printf("wrote %s\n", p)
			}
		}
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	typ, err := smc.Parse(args[0])
	if err != nil {
		return err
	}
	gains, err := parseGains(gainsFlag)
	if err != nil {
		return err
	}
	spec, err := smc.Get(typ)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GAIN\tVALUE\tRANGE")
	for i, name := range spec.GainNames {
		if i < len(gains) {
			fmt.Fprintf(w, "%s\t%.5g\t[%g, %g]\n", name, gains[i], spec.Lower[i], spec.Upper[i])
		} else {
			fmt.Fprintf(w, "%s\t(missing)\t[%g, %g]\n", name, spec.Lower[i], spec.Upper[i])
		}
	}
	w.Flush()

	if err := smc.Validate(typ, gains); err != nil {
		var gv *smc.GainViolation
		if errors.As(err, &gv) {
			fmt.Println("\ninvalid:")
			for _, r := range gv.Reasons {
				fmt.Printf("  - %s\n", r)
			}
			return fmt.Errorf("gains rejected for %s", typ)
		}
		return err
	}
	fmt.Println("\ngains valid")
	return nil
}

func runControllers(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tGAINS\tVECTOR\tDEFAULTS")
	for _, t := range smc.Variants() {
		spec, err := smc.Get(t)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			t, spec.GainCount, strings.Join(spec.GainNames, ","), joinFloats(spec.Defaults))
	}
	return w.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tCONTROLLER\tTIME\tCOST\tSTABLE\tREASON")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4g\t%v\t%s\n",
			run.ID, run.Kind, run.Controller,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Cost, run.Stable, run.Reason)
	}
	return w.Flush()
}

func runPlot(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\ncontroller: %s\ncost: %.6g\n", meta.ID, meta.Controller, meta.Cost)

	tr, trErr := st.LoadTrajectory(runID)
	history, diversity, histErr := st.LoadHistory(runID)
	if histErr != nil {
		history, diversity = nil, nil
	}
	if trErr != nil && histErr != nil {
		return fmt.Errorf("run %s has no trajectory or history data", runID)
	}
	if trErr == nil {
		printMetrics(tr, config.Default().Sim.ConvergenceTol)
	}
	fmt.Println()

	if chart := export.History(history, 70, 10); chart != "" {
		fmt.Println(chart)
		fmt.Println()
	}
	if trErr == nil {
		for _, chart := range []string{
			export.Angles(tr, 70, 10),
			export.Control(tr, 70, 8),
			export.Surface(tr, 70, 8),
		} {
			if chart != "" {
				fmt.Println(chart)
				fmt.Println()
			}
		}
	}

	if writePNG {
		if trErr != nil {
			tr = nil
		}
		written, err := writeRunPNGs(st.Dir(runID), tr, history, diversity)
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Printf("wrote %s\n", p)
		}
	}
	return nil
}

// baseConfig resolves the layered configuration: defaults, then a named
// preset or a config file, never both.
func baseConfig() (*config.Config, error) {
	if preset != "" && configFile != "" {
		return nil, fmt.Errorf("--preset and --config are exclusive")
	}
	if preset != "" {
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %s)",
				preset, strings.Join(config.ListPresets(), ", "))
		}
		return cfg, nil
	}
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.Default(), nil
}

// buildLogger returns a development logger under --verbose, nil otherwise;
// components fall back to their own nop logger.
func buildLogger() *zap.Logger {
	if !verbose {
		return nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil
	}
	return logger
}

func printResult(res *tune.Result) {
	fmt.Printf("\nstopped: %s after %d iterations (%.1fs)\n", res.Reason, res.Iterations, res.Elapsed.Seconds())
	fmt.Printf("best cost: %.6g\n", res.BestCost)
	if res.FoundStable {
		fmt.Println("stabilizes: yes")
	} else {
		fmt.Println("stabilizes: no")
	}

	if len(res.BestGains) > 0 {
		fmt.Println("\ngains:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for i, name := range res.GainNames {
			if i < len(res.BestGains) {
				fmt.Fprintf(w, "  %s\t%.5g\n", name, res.BestGains[i])
			}
		}
		w.Flush()
	}

	b := res.Breakdown
	fmt.Printf("\ncost breakdown: state %.4g, effort %.4g, rate %.4g, surface %.4g, penalty %.4g\n",
		b.StateError, b.ControlEffort, b.ControlRate, b.SurfaceEnergy, b.Penalty)
}

// printMetrics reports the performance figures of a recorded run; it stays
// quiet for sentinel trajectories that carry no samples.
func printMetrics(tr *sim.Trajectory, band float64) {
	if tr == nil || len(tr.Times) == 0 {
		return
	}
	r := metrics.Compute(tr, band)

	settling := "never"
	if r.Settled {
		settling = fmt.Sprintf("%.2fs", r.SettlingTime)
	}
	reaching := "never"
	if r.Reached {
		reaching = fmt.Sprintf("%.2fs", r.ReachingTime)
	}
	fmt.Printf("settling: %s  reaching: %s  peak angle: %.3g rad\n", settling, reaching, r.PeakAngle)
	fmt.Printf("force: peak %.4g N, rms %.4g N  chattering: %.4g N/s", r.PeakForce, r.RMSForce, r.Chattering)
	if r.ChatterHz > 0 {
		fmt.Printf(" (dominant %.3g Hz)", r.ChatterHz)
	}
	fmt.Println()
}

func writeRunPNGs(dir string, tr *sim.Trajectory, history, diversity []float64) ([]string, error) {
	var written []string
	if tr != nil && len(tr.Times) > 0 {
		paths, err := export.TrajectoryPNGs(dir, tr)
		if err != nil {
			return written, err
		}
		written = append(written, paths...)

		phase, err := export.PhasePNG(dir, tr)
		if err != nil {
			return written, err
		}
		written = append(written, phase)
	}
	if len(history) > 0 {
		paths, err := export.HistoryPNG(dir, history, diversity)
		if err != nil {
			return written, err
		}
		written = append(written, paths...)
	}
	return written, nil
}

func trajStatus(tr *sim.Trajectory) string {
	if tr == nil {
		return ""
	}
	return tr.Status.String()
}

func parseGains(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("no gains given")
	}
	parts := strings.Split(s, ",")
	gains := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad gain %q: %w", p, err)
		}
		gains = append(gains, v)
	}
	return gains, nil
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
