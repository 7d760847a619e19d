package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/batchreactor/internal/analysis"
	"github.com/san-kum/batchreactor/internal/config"
	"github.com/san-kum/batchreactor/internal/experiment"
	"github.com/san-kum/batchreactor/internal/storage"
	"github.com/san-kum/batchreactor/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	dt         float64
	duration   float64
	integrator string
	adaptive   bool
	tolerance  float64
	t0         float64
	p0         float64
	strict     bool
	noSave     bool
	// live view
	frameRate    int
	stepsPerTick int
	// sweep
	tFrom   float64
	tTo     float64
	points  int
	workers int

	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "batchreactor",
		Short:        "adiabatic constant internal energy batch reactor",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".batchreactor", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "integrate a case and store the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCase,
	}
	addCaseFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "integrate a case with a live temperature view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addCaseFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	liveCmd.Flags().IntVar(&stepsPerTick, "steps", 10, "integrator steps per frame")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "ignition delay over a range of initial temperatures",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addCaseFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&tFrom, "from", 900, "lowest initial temperature [K]")
	sweepCmd.Flags().Float64Var(&tTo, "to", 1300, "highest initial temperature [K]")
	sweepCmd.Flags().IntVar(&points, "points", 9, "number of temperatures")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = number of CPUs)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot temperature, pressure and composition of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [preset]",
		Short: "list built-in cases or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c := config.GetPreset(args[0])
				if c == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
				}
				return config.Encode(os.Stdout, c)
			}
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "compare integrators and step sizes on a case",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchCase,
	}

	rootCmd.AddCommand(runCmd, liveCmd, sweepCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCaseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "case file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep [s]")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration [s]")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (euler, rk4, rk45, rosenbrock)")
	cmd.Flags().BoolVar(&adaptive, "adaptive", false, "adaptive stepping")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "adaptive step tolerance")
	cmd.Flags().Float64Var(&t0, "temperature", 1000, "initial temperature [K]")
	cmd.Flags().Float64Var(&p0, "pressure", 101325, "initial pressure [Pa]")
	cmd.Flags().BoolVar(&strict, "strict-closure", false, "fail when the T/P closure does not converge")
}

// loadCase resolves the case from --config or a preset name, then applies
// the flags the user set explicitly.
func loadCase(cmd *cobra.Command, args []string) (*config.Case, error) {
	var c *config.Case
	switch {
	case configFile != "":
		var err error
		if c, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	case len(args) == 1:
		c = config.GetPreset(args[0])
		if c == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		c = config.DefaultCase()
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		c.Solver.Dt = dt
	}
	if flags.Changed("time") {
		c.Solver.Duration = duration
	}
	if flags.Changed("integrator") {
		c.Solver.Integrator = integrator
	}
	if flags.Changed("adaptive") {
		c.Solver.Adaptive = adaptive
	}
	if flags.Changed("tol") {
		c.Solver.Tolerance = tolerance
	}
	if flags.Changed("temperature") {
		c.Initial.Temperature = t0
	}
	if flags.Changed("pressure") {
		c.Initial.Pressure = p0
	}
	if flags.Changed("strict-closure") {
		c.Solver.StrictClosure = strict
	}
	return c, c.Validate()
}

func runCase(cmd *cobra.Command, args []string) error {
	c, err := loadCase(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp, err := experiment.New(c, experiment.NewRegistry(), experiment.WithLogger(logger))
	if err != nil {
		return err
	}

	start := time.Now()
	traj, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if traj == nil {
		return runErr
	}
	if runErr != nil {
		logger.Error("run stopped early", "err", runErr, "t", traj.Times[traj.Len()-1])
	}

	delay := "-"
	if d, err := traj.IgnitionDelay(); err == nil {
		delay = viz.FormatDuration(d)
	}
	fmt.Println(viz.Summary(c.Name, []viz.Row{
		{Label: "integrator", Value: c.Solver.Integrator},
		{Label: "steps", Value: fmt.Sprintf("%d (%d rejected)", traj.StepsTaken, traj.Rejected)},
		{Label: "wall time", Value: elapsed.Round(time.Millisecond).String()},
		{Label: "T0 / T final", Value: fmt.Sprintf("%.1f K / %.1f K", traj.Temperatures[0], traj.FinalTemperature())},
		{Label: "P final", Value: fmt.Sprintf("%.5g Pa", traj.FinalPressure())},
		{Label: "temperature rise", Value: fmt.Sprintf("%.1f K", analysis.TemperatureRise(traj.Temperatures))},
		{Label: "ignition delay", Value: delay},
		{Label: "mass drift", Value: fmt.Sprintf("%.2e", traj.Metrics["mass_drift"])},
		{Label: "energy drift", Value: fmt.Sprintf("%.2e", traj.Metrics["energy_drift"])},
		{Label: "closure failures", Value: fmt.Sprintf("%d", traj.ClosureFailures)},
	}))
	fmt.Println(viz.Plot(traj.Temperatures, 70, 10, "temperature [K]"))

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(c, traj)
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved run: %s\n", runID)
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	c, err := loadCase(cmd, args)
	if err != nil {
		return err
	}

	// the live view owns the terminal
	exp, err := experiment.New(c, experiment.NewRegistry())
	if err != nil {
		return err
	}
	integ, err := experiment.NewRegistry().GetIntegrator(c.Solver.Integrator)
	if err != nil {
		return err
	}

	m := viz.NewLiveModel(exp.Model, exp.Model, integ, exp.InitialState(), viz.LiveConfig{
		Name:         c.Name,
		Species:      exp.Thermo.Names(),
		Dt:           c.Solver.Dt,
		Duration:     c.Solver.Duration,
		StepsPerTick: stepsPerTick,
		FrameRate:    frameRate,
	})

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	if lm, ok := final.(viz.LiveModel); ok && lm.Err() != nil {
		return lm.Err()
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	c, err := loadCase(cmd, args)
	if err != nil {
		return err
	}
	if points < 2 || !(tTo > tFrom) {
		return fmt.Errorf("sweep needs --points >= 2 and --to > --from")
	}

	temps := make([]float64, points)
	for i := range temps {
		temps[i] = tFrom + float64(i)*(tTo-tFrom)/float64(points-1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results, err := experiment.Sweep(ctx, c, experiment.NewRegistry(), temps, workers, experiment.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Debug("sweep finished", "points", len(results), "elapsed", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "T0 [K]\tDELAY\tT PEAK [K]\tP FINAL [Pa]\tCLOSURE FAIL")
	logDelays := make([]float64, len(results))
	for i, p := range results {
		fmt.Fprintf(w, "%.1f\t%s\t%.1f\t%.5g\t%d\n",
			p.Temperature,
			viz.FormatDuration(p.IgnitionDelay),
			p.PeakTemperature,
			p.FinalPressure,
			p.ClosureFailures,
		)
		logDelays[i] = math.Log10(p.IgnitionDelay)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nlog10 delay  %s\n", viz.SparklineChart(logDelays, len(logDelays)))
	return nil
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
	fmt.Fprintln(w, "ID\tCASE\tTIME\tDURATION\tINTEG\tT0\tT FINAL\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%d\n",
			run.ID,
			run.Case,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			viz.FormatDuration(run.Duration),
			run.Integrator,
			run.Temperature,
			run.FinalTemperature,
			run.Steps,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if traj.Len() < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("case: %s\n", traj.Case)
	fmt.Printf("samples: %d\n\n", traj.Len())

	fmt.Println(viz.Plot(traj.Temperatures, 80, 10, "temperature [K]"))
	fmt.Println()
	fmt.Println(viz.Plot(traj.Pressures, 80, 6, "pressure [Pa]"))
	fmt.Println()

	for k, name := range traj.Species {
		series := make([]float64, traj.Len())
		for i := range series {
			series[i] = traj.MoleFractions(i)[k]
		}
		fmt.Printf("%-8s %s\n", name, viz.SparklineChart(viz.Resample(series, 70), 70))
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if traj.Len() == 0 {
		return errors.New("no data to export")
	}
	return storage.WriteCSV(os.Stdout, traj)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, traj)
}

func benchCase(cmd *cobra.Command, args []string) error {
	base := config.DefaultCase()
	if len(args) == 1 {
		if base = config.GetPreset(args[0]); base == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	}

	registry := experiment.NewRegistry()
	scales := []float64{1, 0.1}

	fmt.Printf("benchmarking %s (duration %s)\n\n", base.Name, viz.FormatDuration(base.Solver.Duration))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEG\tDT\tSTEPS\tTIME\tSTEPS/SEC\tT FINAL [K]\tENERGY DRIFT")

	for _, name := range registry.ListIntegrators() {
		for _, scale := range scales {
			c := *base
			c.Solver.Integrator = name
			c.Solver.Adaptive = false
			c.Solver.Dt = base.Solver.Dt * scale

			exp, err := experiment.New(&c, registry, experiment.WithLogger(logger))
			if err != nil {
				return err
			}

			start := time.Now()
			traj, err := exp.Run(context.Background())
			elapsed := time.Since(start)
			if err != nil {
				fmt.Fprintf(w, "%s\t%.1e\terror: %v\n", name, c.Solver.Dt, err)
				continue
			}

			fmt.Fprintf(w, "%s\t%.1e\t%d\t%v\t%.0f\t%.2f\t%.1e\n",
				name,
				c.Solver.Dt,
				traj.StepsTaken,
				elapsed.Round(time.Microsecond),
				float64(traj.StepsTaken)/elapsed.Seconds(),
				traj.FinalTemperature(),
				traj.Metrics["energy_drift"],
			)
		}
	}

	return w.Flush()
}
