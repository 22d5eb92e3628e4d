package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/newton/internal/analysis"
	"github.com/san-kum/newton/internal/config"
	"github.com/san-kum/newton/internal/export"
	"github.com/san-kum/newton/internal/logger"
	"github.com/san-kum/newton/internal/newton"
	"github.com/san-kum/newton/internal/numeric"
	"github.com/san-kum/newton/internal/optim"
	"github.com/san-kum/newton/internal/problems"
	"github.com/san-kum/newton/internal/storage"
	"github.com/san-kum/newton/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	debug   bool
	// Solver flags
	tolerance     float64
	maxIterations int
	dx            float64
	maxRadius     float64
	jacobianFlag  string
	guess         []float64
	coeffs        []float64
	// Config file
	configFile string
	// Preset name
	preset string
	// Where solve writes the resolved config
	saveConfig string
	// Batch grid around the initial guess
	spread float64
	count  int
	// Step sizes for compare
	dxs []float64
	// Repetitions for bench
	reps int
	// SVG export
	svgOut  string
	svgPlot string

	closeLog func() error
)

// main registers the newton commands and executes the root command. It exits
// with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "newton",
		Short:         "newton-raphson root finding lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cleanup, err := logger.Setup(logger.Config{Root: dataDir, Debug: debug})
			if err != nil {
				return err
			}
			closeLog = cleanup
			if debug {
				fmt.Fprintf(os.Stderr, "logging to %s\n", logger.Path())
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closeLog == nil {
				return nil
			}
			return closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".newton", "data directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log every iteration")

	solveCmd := &cobra.Command{
		Use:   "solve [problem]",
		Short: "solve f(x) = 0 and save the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	addSolverFlags(solveCmd)
	solveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	solveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	solveCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the resolved configuration to this yaml file")

	batchCmd := &cobra.Command{
		Use:   "batch [problem]",
		Short: "solve concurrently from a grid of guesses around the initial guess",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBatch,
	}
	addSolverFlags(batchCmd)
	batchCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	batchCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	batchCmd.Flags().Float64Var(&spread, "spread", 4.0, "half-width of the guess grid in each component")
	batchCmd.Flags().IntVar(&count, "count", 9, "grid points per component")

	stepCmd := &cobra.Command{
		Use:   "step [problem]",
		Short: "step through a solve interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStep,
	}
	addSolverFlags(stepCmd)
	stepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	stepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot residual and iterate history",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run iterates to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export the residual curve or iterate path as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().StringVar(&svgPlot, "plot", "residual", "what to draw: residual or path")

	compareCmd := &cobra.Command{
		Use:   "compare [problem]",
		Short: "compare finite-difference jacobians with the analytic one",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareJacobians,
	}
	addSolverFlags(compareCmd)
	compareCmd.Flags().Float64SliceVar(&dxs, "dxs", []float64{1e-2, 1e-4, 1e-6, 1e-8}, "step sizes to compare")

	benchCmd := &cobra.Command{
		Use:   "bench [problem]",
		Short: "time a solve with each jacobian source",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchProblem,
	}
	addSolverFlags(benchCmd)
	benchCmd.Flags().IntVar(&reps, "reps", 1000, "solves per jacobian source")

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list available problems",
		RunE:  listProblems,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(solveCmd, batchCmd, stepCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, compareCmd, benchCmd, problemsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&tolerance, "tol", newton.DefaultTolerance, "residual norm tolerance")
	cmd.Flags().IntVar(&maxIterations, "max-iter", newton.DefaultMaxIterations, "maximum iterations")
	cmd.Flags().Float64Var(&dx, "dx", newton.DefaultDx, "finite-difference step")
	cmd.Flags().Float64Var(&maxRadius, "radius", 0, "maximum step length (0 = unlimited)")
	cmd.Flags().StringVar(&jacobianFlag, "jacobian", config.DefaultJacobian, "jacobian source: analytic, forward or central")
	cmd.Flags().Float64SliceVar(&guess, "guess", nil, "initial guess, comma separated")
	cmd.Flags().Float64SliceVar(&coeffs, "coeffs", nil, "problem coefficients, comma separated")
}

// resolveConfig layers preset, config file and changed flags, in that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Problem = args[0]
	}

	flags := cmd.Flags()

	if p := flags.Lookup("preset"); p != nil && preset != "" {
		presetCfg := config.GetPreset(cfg.Problem, preset)
		if presetCfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Problem))
		}
		cfg = presetCfg
	}

	if c := flags.Lookup("config"); c != nil && configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if len(args) > 0 {
			cfg.Problem = args[0]
		}
	}

	if flags.Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("max-iter") {
		cfg.MaxIterations = maxIterations
	}
	if flags.Changed("dx") {
		cfg.Dx = dx
	}
	if flags.Changed("radius") {
		cfg.MaxRadius = maxRadius
	}
	if flags.Changed("jacobian") {
		cfg.Jacobian = jacobianFlag
	}
	if flags.Changed("guess") {
		cfg.InitialGuess = guess
	}
	if flags.Changed("coeffs") {
		cfg.Coeffs = coeffs
	}

	return cfg, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	reg := problems.NewRegistry()
	p, solver, err := cfg.Build(reg, logger.L())
	if err != nil {
		return err
	}

	x0, err := cfg.Guess(reg, p.Dim())
	if err != nil {
		return err
	}

	if saveConfig != "" {
		resolved := *cfg
		resolved.InitialGuess = x0
		if err := config.Save(saveConfig, &resolved); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	logger.L().Info("solve.start", "problem", cfg.Problem, "jacobian", solver.JacobianSource(), "guess", x0)
	start := time.Now()
	result, solveErr := solver.Trace(numeric.Vector(x0))
	elapsed := time.Since(start)

	runID, err := st.Save(cfg, fmt.Sprint(p), x0, result, solveErr)
	if err != nil {
		return err
	}

	fmt.Println(viz.RenderResult(fmt.Sprintf("%s: %s", cfg.Problem, p), solver.JacobianSource(), result, solveErr))
	if q := analysis.ConvergenceOrder(result.Residuals); !math.IsNaN(q) {
		fmt.Printf("estimated order: %.2f\n", q)
	}
	if rates := analysis.ContractionRates(result.Residuals); len(rates) > 0 {
		parts := make([]string, len(rates))
		for i, r := range rates {
			parts[i] = fmt.Sprintf("%.2e", r)
		}
		fmt.Printf("contraction: %s\n", strings.Join(parts, " "))
	}
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)

	return solveErr
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := problems.NewRegistry()
	p, solver, err := cfg.Build(reg, logger.L())
	if err != nil {
		return err
	}

	x0, err := cfg.Guess(reg, p.Dim())
	if err != nil {
		return err
	}

	grid, err := optim.Around(x0, spread, count)
	if err != nil {
		return err
	}
	guesses := grid.Guesses()

	outcomes := solver.SolveAll(context.Background(), guesses)

	fmt.Printf("%s: %s (%s jacobian)\n\n", cfg.Problem, p, solver.JacobianSource())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GUESS\tSTATUS\tROOT\tITER\tEVALS\tRESIDUAL\tORDER")

	failed := 0
	for _, o := range outcomes {
		status := newton.StatusOf(o.Err)
		root, iter, evals, residual, order := "-", 0, 0, math.NaN(), math.NaN()
		if o.Result != nil {
			status = o.Result.Status
			iter, evals, residual = o.Result.Iterations, o.Result.Evaluations, o.Result.Residual
			order = analysis.ConvergenceOrder(o.Result.Residuals)
			if o.Result.Root != nil {
				root = viz.FormatVector(o.Result.Root)
			}
		}
		if o.Err != nil {
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.3e\t%.2f\n",
			viz.FormatVector(o.Guess), status, root, iter, evals, residual, order)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d/%d converged\n", len(outcomes)-failed, len(outcomes))
	if best, ok := optim.Best(outcomes); ok {
		fmt.Printf("fastest: %s -> %s in %d iterations\n",
			viz.FormatVector(best.Guess), viz.FormatVector(best.Result.Root), best.Result.Iterations)
	}
	return nil
}

func runStep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	reg := problems.NewRegistry()
	p, solver, err := cfg.Build(reg, logger.L())
	if err != nil {
		return err
	}

	x0, err := cfg.Guess(reg, p.Dim())
	if err != nil {
		return err
	}

	return viz.RunStepper(viz.NewStepper(fmt.Sprintf("%s: %s", cfg.Problem, p), solver, x0))
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
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tJACOBIAN\tSTATUS\tITER\tRESIDUAL")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%.3e\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Jacobian,
			run.Status,
			run.Iterations,
			run.Residual,
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

	iterates, residuals, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}

	if len(residuals) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("problem: %s\n", meta.Problem)
	fmt.Printf("status: %s\n\n", meta.Status)

	fmt.Println(viz.PlotResiduals(residuals, 80, 10))
	fmt.Println()

	if len(iterates) < 2 {
		return nil
	}

	numVars := min(len(iterates[0]), 6)
	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(iterates))
		for i := range iterates {
			if varIdx < len(iterates[i]) {
				data[i] = iterates[i][varIdx]
			}
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d vs iteration", varIdx)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func exportCSV(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
}

func exportSVG(cmd *cobra.Command, args []string) error {
	iterates, residuals, err := storage.New(dataDir).LoadTrace(args[0])
	if err != nil {
		return err
	}

	var pts []export.Point
	switch svgPlot {
	case "residual":
		pts = export.ResidualPoints(viz.LogResiduals(residuals))
	case "path":
		pts = export.IteratePoints(iterates)
	default:
		return fmt.Errorf("unknown plot: %s (available: residual, path)", svgPlot)
	}

	svg := export.PolylineSVG(pts, 640, 400, "#00ff88")
	if svg == "" {
		return fmt.Errorf("not enough iterates to draw")
	}

	if svgOut == "" {
		fmt.Println(svg)
		return nil
	}
	return os.WriteFile(svgOut, []byte(svg), 0644)
}

func compareJacobians(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	reg := problems.NewRegistry()
	p, err := reg.Get(cfg.Problem, cfg.Coeffs)
	if err != nil {
		return err
	}

	x0, err := cfg.Guess(reg, p.Dim())
	if err != nil {
		return err
	}

	errs, err := analysis.CompareJacobians(p.Eval, p.Jacobian, x0, dxs)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s at %s\n\n", cfg.Problem, p, viz.FormatVector(x0))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DX\tFORWARD ERR\tCENTRAL ERR")
	for _, e := range errs {
		fmt.Fprintf(w, "%.0e\t%.3e\t%.3e\n", e.Dx, e.Forward, e.Central)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JACOBIAN\tSTATUS\tITER\tEVALS\tRESIDUAL\tROOT")
	roots := make(map[string]numeric.Vector)
	for _, source := range []string{"forward", "central", "analytic"} {
		c := *cfg
		c.Jacobian = source
		_, solver, err := c.Build(reg, logger.L())
		if err != nil {
			return err
		}

		res, solveErr := solver.Trace(numeric.Vector(x0))
		root := "-"
		if solveErr == nil {
			root = viz.FormatVector(res.Root)
			roots[source] = res.Root
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.3e\t%s\n",
			source, res.Status, res.Iterations, res.Evaluations, res.Residual, root)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fwd, okF := roots["forward"]
	an, okA := roots["analytic"]
	if okF && okA {
		tol := 10 * math.Max(cfg.Dx, cfg.Tolerance)
		if analysis.AgreeWithin(fwd, an, tol) {
			fmt.Printf("\nforward and analytic roots agree within %.0e\n", tol)
		} else {
			fmt.Printf("\nforward and analytic roots differ by more than %.0e\n", tol)
		}
	}
	return nil
}

func benchProblem(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if reps < 1 {
		return fmt.Errorf("reps must be positive, got %d", reps)
	}

	reg := problems.NewRegistry()
	p, err := reg.Get(cfg.Problem, cfg.Coeffs)
	if err != nil {
		return err
	}

	x0, err := cfg.Guess(reg, p.Dim())
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s: %s\n\n", cfg.Problem, p)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JACOBIAN\tSOLVES\tEVALS/SOLVE\tTIME\tSOLVES/SEC")

	for _, source := range []string{"forward", "central", "analytic"} {
		c := *cfg
		c.Jacobian = source
		_, solver, err := c.Build(reg, logger.L())
		if err != nil {
			return err
		}

		var evals int
		start := time.Now()
		for i := 0; i < reps; i++ {
			res, err := solver.Trace(numeric.Vector(x0))
			if err != nil && !errors.Is(err, newton.ErrConvergence) {
				return fmt.Errorf("%s: %w", source, err)
			}
			evals = res.Evaluations
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\n",
			source, reps, evals, elapsed, float64(reps)/elapsed.Seconds())
	}

	return w.Flush()
}

func listProblems(cmd *cobra.Command, args []string) error {
	reg := problems.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIM\tDEFAULT\tGUESS\tFORM")
	for _, name := range reg.List() {
		p, err := reg.Get(name, nil)
		if err != nil {
			return err
		}
		g, err := reg.DefaultGuess(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", name, p.Dim(), p, viz.FormatVector(g), reg.Describe(name))
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := problems.NewRegistry().List()
	if len(args) > 0 {
		names = args
	}

	for _, name := range names {
		presets := config.ListPresets(name)
		if len(presets) == 0 {
			if len(args) > 0 {
				fmt.Printf("no presets for problem: %s\n", name)
			}
			continue
		}
		fmt.Printf("presets for %s:\n", name)
		for _, p := range presets {
			fmt.Printf("  %s\n", p)
		}
	}
	return nil
}
