package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	dataDir     string
	storeKind   string
	preset      string
	metricsAddr string
	watch       bool
	frameRate   int
	theme       string
	column      string
	xAxis       string
	yAxis       string
	field       bool
	benchRuns   int
	param       string
	from        float64
	to          float64
	steps       int
	output      string
	transient   int
	perturb     float64
)

// main registers the labsim commands and exits with status 1 when a
// command fails.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "labsim",
		Short:         "steppable molecular dynamics and heat transfer lab",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "run store: fs or sqlite (overrides config)")

	modelFlags := func(c *cobra.Command, defaultTicks int) {
		c.Flags().StringVar(&preset, "preset", "", "use a named preset instead of a model file")
		c.Flags().Int("ticks", defaultTicks, "number of ticks")
	}

	runCmd := &cobra.Command{
		Use:   "run [model-file]",
		Short: "run a model, save the run and print a summary",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runModel,
	}
	modelFlags(runCmd, 0) // 0: preset length, then config
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	runCmd.Flags().BoolVar(&watch, "watch", false, "draw the model in the terminal while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --watch")

	liveCmd := &cobra.Command{
		Use:   "live [model-file]",
		Short: "step a model interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&preset, "preset", "", "use a named preset instead of a model file")
	liveCmd.Flags().StringVar(&theme, "theme", "lab", "colour theme")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "print a saved run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot <run-id> [output.svg]",
		Short: "plot the series of a run",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "series column to plot (default: all in the terminal, first in SVG)")
	plotCmd.Flags().BoolVar(&field, "field", false, "draw the final temperature field of an energy2d run")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <run-id> [output.csv]",
		Short: "frequency and phase analysis of a run",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "", "series column to analyze (default: first after time)")
	analyzeCmd.Flags().StringVar(&xAxis, "x-axis", "", "column for the phase portrait x axis")
	analyzeCmd.Flags().StringVar(&yAxis, "y-axis", "", "column for the phase portrait y axis")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in model presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	roundtripCmd := &cobra.Command{
		Use:   "roundtrip [model-file]",
		Short: "check that a model survives serialize and deserialize",
		Args:  cobra.MaximumNArgs(1),
		RunE:  roundTrip,
	}
	modelFlags(roundtripCmd, 10)

	benchCmd := &cobra.Command{
		Use:   "bench [model-file]",
		Short: "measure tick throughput of parallel model copies",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchModel,
	}
	modelFlags(benchCmd, 100)
	benchCmd.Flags().IntVar(&benchRuns, "runs", 4, "number of parallel copies")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model-file]",
		Short: "sweep a parameter and record the settled values of an output",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepParam,
	}
	modelFlags(sweepCmd, 20)
	sweepCmd.Flags().StringVar(&param, "param", "targetTemperature", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&from, "from", 100, "first parameter value")
	sweepCmd.Flags().Float64Var(&to, "to", 500, "last parameter value")
	sweepCmd.Flags().IntVar(&steps, "steps", 5, "number of parameter values")
	sweepCmd.Flags().StringVar(&output, "output", "temperature", "output property to record")
	sweepCmd.Flags().IntVar(&transient, "transient", 50, "ticks discarded before recording")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model-file]",
		Short: "estimate the largest Lyapunov exponent of an md2d model",
		Args:  cobra.MaximumNArgs(1),
		RunE:  lyapunov,
	}
	modelFlags(lyapunovCmd, 200)
	lyapunovCmd.Flags().Float64Var(&perturb, "perturbation", 1e-6, "initial displacement of atom 0 in nm")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, showCmd, plotCmd, analyzeCmd,
		presetsCmd, roundtripCmd, benchCmd, sweepCmd, lyapunovCmd, initCmd)
	return rootCmd
}
