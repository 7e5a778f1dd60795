package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/joho/godotenv"
	"github.com/san-kum/springsim/internal/analysis"
	"github.com/san-kum/springsim/internal/automation"
	"github.com/san-kum/springsim/internal/compute"
	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/drive"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/experiment"
	"github.com/san-kum/springsim/internal/export"
	"github.com/san-kum/springsim/internal/storage"
	"github.com/san-kum/springsim/internal/sweep"
	"github.com/san-kum/springsim/internal/viz"
	"github.com/spf13/cobra"
)

const dataEnv = "SPRINGSIM_DATA"

var (
	dataDir string
	verbose bool

	configFile  string
	preset      string
	steps       int
	sampleEvery int
	noSave      bool

	stiffness  float64
	dt         float64
	damping    float64
	gravity    float64
	drag       float64
	collisionK float64
	resolution int
	mass       float64

	driveType string
	amplitude float64
	frequency float64
	backend   string

	particle int
	axis     string
	outFile  string
	svgFile  string
	frameIdx int
	svgW     int
	svgH     int

	kMin, kMax   float64
	kN           int
	dtMin, dtMax float64
	dtN          int
	workers      int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "springsim",
		Short:         "mass-spring simulation lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := tuiLogger()
			if err != nil {
				return err
			}
			defer closeLog()
			return viz.RunInteractive(logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".springsim", "data directory (env "+dataEnv+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a simulation headlessly and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot energy, or one particle coordinate, of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&particle, "particle", -1, "particle index (default: energy)")
	plotCmd.Flags().StringVar(&axis, "axis", "y", "x, y, z, vx, vy or vz")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render one stored frame to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&frameIdx, "frame", -1, "frame index, negative counts from the end")
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().IntVar(&svgW, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgH, "height", 600, "image height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis and phase portrait of one particle",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&particle, "particle", -1, "particle index (default: last)")
	analyzeCmd.Flags().StringVar(&axis, "axis", "y", "x, y or z")
	analyzeCmd.Flags().StringVar(&svgFile, "svg", "", "also write the phase portrait to this SVG file")

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "find where explicit Euler diverges over stiffness x timestep",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&kMin, "k-min", 50, "lowest stiffness")
	sweepCmd.Flags().Float64Var(&kMax, "k-max", 2000, "highest stiffness")
	sweepCmd.Flags().IntVar(&kN, "k-n", 8, "stiffness samples")
	sweepCmd.Flags().Float64Var(&dtMin, "dt-min", 0.005, "smallest timestep")
	sweepCmd.Flags().Float64Var(&dtMax, "dt-max", 0.05, "largest timestep")
	sweepCmd.Flags().IntVar(&dtN, "dt-n", 6, "timestep samples")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel cells (default CPU count)")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run a scripted parameter schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}
	scriptCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportSVGCmd, analyzeCmd, presetsCmd, liveCmd, sweepCmd, scriptCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// setup loads .env, picks the data directory and installs the logger.
func setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if dir := os.Getenv(dataEnv); dir != "" && !cmd.Flags().Changed("data") {
		dataDir = dir
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// tuiLogger writes to <data>/live.log so log lines do not tear the screen.
func tuiLogger() (*slog.Logger, func(), error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dataDir, "live.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), func() { f.Close() }, nil
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "preset name (see presets)")
	f.IntVar(&steps, "steps", config.DefaultSteps, "steps to run")
	f.IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "store every nth frame")
	f.Float64Var(&stiffness, "stiffness", dynamo.DefaultStiffness, "spring stiffness")
	f.Float64Var(&dt, "dt", dynamo.DefaultTimestep, "timestep")
	f.Float64Var(&damping, "damping", dynamo.DefaultDamping, "velocity damping factor per step")
	f.Float64Var(&gravity, "gravity", dynamo.DefaultGravity, "gravity along y")
	f.Float64Var(&drag, "drag", dynamo.DefaultDrag, "linear drag coefficient")
	f.Float64Var(&collisionK, "collision-stiffness", dynamo.DefaultCollisionStiffness, "obstacle penalty stiffness")
	f.IntVar(&resolution, "resolution", dynamo.DefaultResolution, "grid resolution")
	f.Float64Var(&mass, "mass", config.DefaultMass, "particle mass")
	f.StringVar(&driveType, "drive", "", "anchor driver: "+strings.Join(drive.Names(), ", "))
	f.Float64Var(&amplitude, "amplitude", 0.3, "driver amplitude or radius")
	f.Float64Var(&frequency, "frequency", 0.5, "driver frequency (Hz)")
	f.StringVar(&backend, "backend", "", "force backend: "+strings.Join(compute.Names(), ", "))
}

// buildConfig starts from the config file, the preset or the scenario's
// default preset, in that order, then applies only the flags the user set.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	scenario := ""
	if len(args) > 0 {
		scenario = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	default:
		if scenario == "" {
			scenario = config.DefaultScenario
		}
		name := preset
		if name == "" {
			name = "default"
		}
		cfg = config.GetPreset(scenario, name)
		if cfg == nil {
			if config.ListPresets(scenario) == nil {
				return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownScenario, scenario)
			}
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets(scenario))
		}
	}
	if scenario != "" {
		cfg.Scenario = scenario
	}

	f := cmd.Flags()
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if f.Changed("stiffness") {
		cfg.Params.Stiffness = stiffness
	}
	if f.Changed("dt") {
		cfg.Params.Timestep = dt
	}
	if f.Changed("damping") {
		cfg.Params.Damping = damping
	}
	if f.Changed("gravity") {
		cfg.Params.Gravity = gravity
	}
	if f.Changed("drag") {
		cfg.Params.Drag = drag
	}
	if f.Changed("collision-stiffness") {
		cfg.Params.CollisionStiffness = collisionK
	}
	if f.Changed("resolution") {
		cfg.Params.Resolution = resolution
	}
	if f.Changed("mass") {
		cfg.Mass = mass
	}
	if f.Changed("drive") {
		cfg.Drive.Type = driveType
	}
	if f.Changed("amplitude") {
		cfg.Drive.Amplitude = amplitude
	}
	if f.Changed("frequency") {
		cfg.Drive.Frequency = frequency
	}
	if f.Changed("backend") {
		cfg.Backend = backend
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s (%d particles, %d steps)...\n", cfg.Scenario, exp.Simulation().NumParticles(), cfg.Steps)
	start := time.Now()
	res, err := exp.Run(ctx, cfg.Steps)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		fmt.Printf("interrupted after %d steps\n", res.StepsTaken)
	}
	return report(res, time.Since(start))
}

// report prints a run summary and stores it unless --no-save was given.
func report(res *experiment.Result, elapsed time.Duration) error {
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(res)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("steps: %d (frames %d, rebuilds %d)\n", res.StepsTaken, len(res.Snapshots), res.Rebuilds)
	if first := res.FirstDivergence(); first >= 0 {
		fmt.Printf("diverged: %d events, first at step %d\n", len(res.Divergences), first)
	} else {
		fmt.Println("diverged: no")
	}

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSTEPS\tFRAMES\tK\tDT\tDIVERGED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.0f\t%.4f\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Frames,
			run.Params.Stiffness,
			run.Params.Timestep,
			len(run.Divergences),
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)

	if particle < 0 {
		rows, err := st.LoadEnergy(runID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no data to plot")
		}
		fmt.Printf("samples: %d\n\n", len(rows))
		total := make([]float64, len(rows))
		kinetic := make([]float64, len(rows))
		for i, r := range rows {
			total[i], kinetic[i] = r.Total, r.Kinetic
		}
		fmt.Println(asciigraph.Plot(total, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("total energy")))
		fmt.Println()
		fmt.Println(asciigraph.Plot(kinetic, asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption("kinetic energy")))
		return nil
	}

	rows, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	_, values, err := storage.Series(rows, particle, axis)
	if err != nil {
		return err
	}
	fmt.Printf("samples: %d\n\n", len(values))
	fmt.Println(asciigraph.Plot(values, asciigraph.Height(10), asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("particle %d %s", particle, axis))))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.WriteJSON(os.Stdout, data)
	}
	if err := storage.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	frames := storage.GroupFrames(rows)
	if len(frames) == 0 {
		return fmt.Errorf("run %s has no frames", runID)
	}

	idx := frameIdx
	if idx < 0 {
		idx += len(frames)
	}
	if idx < 0 || idx >= len(frames) {
		return fmt.Errorf("%w: frame %d of %d", dynamo.ErrIndexOutOfRange, frameIdx, len(frames))
	}
	frame := frames[idx]

	sc := viz.Scene{
		Positions: frame.Positions(),
		Springs:   meta.SpringList(),
		Fixed:     make([]bool, len(frame.Particles)),
		Obstacle:  meta.Obstacle,
	}
	for i, p := range frame.Particles {
		sc.Fixed[i] = p.Fixed
	}
	// frame the first sample so a series of exports shares one view
	cam := viz.NewCamera()
	cam.Fit(frames[0].Positions())

	path := outFile
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(export.SceneToSVG(sc, cam, svgW, svgH)), 0o644); err != nil {
		return err
	}
	fmt.Printf("frame %d (step %d, t=%.3fs) written to %s\n", idx, frame.Step, frame.Time, path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	p := particle
	if p < 0 {
		frames := storage.GroupFrames(rows)
		if len(frames) == 0 {
			return fmt.Errorf("no data")
		}
		p = len(frames[len(frames)-1].Particles) - 1
	}
	times, pos, err := storage.Series(rows, p, axis)
	if err != nil {
		return err
	}
	_, vel, err := storage.Series(rows, p, "v"+axis)
	if err != nil {
		return err
	}
	if len(times) < 2 {
		return fmt.Errorf("no data")
	}
	sampleDt := times[1] - times[0]

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s, particle %d, axis %s\n\n", meta.Scenario, p, axis)

	spec, err := analysis.PowerSpectrum(pos, sampleDt)
	if err != nil {
		return err
	}
	plotData := spec.Power[:max(2, len(spec.Power)/4)]
	fmt.Println(asciigraph.Plot(plotData, asciigraph.Height(15), asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", axis))))
	fmt.Println()

	freq, err := analysis.DominantFrequency(pos, sampleDt)
	if err != nil {
		return err
	}
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	portrait := analysis.NewPhasePortrait(pos, vel)
	fmt.Printf("\nphase portrait (%s vs v%s)\n", axis, axis)
	fmt.Println(portrait.ASCII(60, 20))

	if svgFile != "" {
		svg := export.TrajectoryToSVG(portrait.Points, 600, 600, "#00ffcc")
		if err := os.WriteFile(svgFile, []byte(svg), 0o644); err != nil {
			return err
		}
		fmt.Printf("phase portrait written to %s\n", svgFile)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenarios := config.Scenarios()
	if len(args) > 0 {
		scenarios = args[:1]
	}
	for _, s := range scenarios {
		presets := config.ListPresets(s)
		if len(presets) == 0 {
			fmt.Printf("no presets for scenario: %s\n", s)
			continue
		}
		fmt.Printf("presets for %s:\n", s)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, name := range presets {
			cfg := config.GetPreset(s, name)
			fmt.Fprintf(w, "  %s\tk=%g\tdt=%g\tdamping=%g\tres=%d\tmass=%g\tsteps=%d\n",
				name, cfg.Params.Stiffness, cfg.Params.Timestep, cfg.Params.Damping,
				cfg.Params.Resolution, cfg.Mass, cfg.Steps)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, closeLog, err := tuiLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	exp, err := experiment.New(cfg, experiment.WithLogger(logger))
	if err != nil {
		return err
	}
	return viz.Run(exp.Simulation(), cfg.Scenario)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	sw := &sweep.Sweep{
		Base:       cfg,
		Stiffness:  sweep.Linspace(kMin, kMax, kN),
		Timesteps:  sweep.Linspace(dtMin, dtMax, dtN),
		Steps:      cfg.Steps,
		Workers:    workers,
		StopOnFail: true,
		Logger:     slog.Default(),
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("sweeping %s: %d stiffness x %d timesteps, %d steps each\n\n", cfg.Scenario, kN, dtN, cfg.Steps)
	res, err := sw.Run(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "dt \\ k\t")
	for _, k := range res.Stiffness {
		fmt.Fprintf(w, "%.0f\t", k)
	}
	fmt.Fprintln(w)
	for i, row := range res.Cells {
		fmt.Fprintf(w, "%.4f\t", res.Timesteps[i])
		for _, c := range row {
			switch {
			case c.Err != nil:
				fmt.Fprint(w, "err\t")
			case c.Stable():
				fmt.Fprint(w, "ok\t")
			default:
				fmt.Fprintf(w, "@%d\t", c.FirstDivergence)
			}
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nstable fraction: %.2f\n", res.StableFraction())
	fmt.Println("largest stable stiffness per timestep:")
	for i, k := range res.Boundary() {
		fmt.Printf("  dt=%.4f  k=%.0f\n", res.Timesteps[i], k)
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	script, err := automation.LoadScript(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("script %q: %s\n", script.Name, script.Description)
	start := time.Now()
	res, err := automation.RunScript(ctx, script, experiment.WithLogger(slog.Default()))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if res == nil {
		return err
	}
	return report(res, time.Since(start))
}
