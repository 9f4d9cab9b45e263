package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/san-kum/labsim/internal/analysis"
	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/logging"
	"github.com/san-kum/labsim/internal/observability"
	"github.com/san-kum/labsim/internal/sim"
	"github.com/san-kum/labsim/internal/tui"
)

func runModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	mdl, err := loadModel(args)
	if err != nil {
		return err
	}
	n := tickCount(cmd, mdl, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	collector, err := newCollector()
	if err != nil {
		return err
	}
	addr := metricsAddr
	if addr == "" {
		addr = cfg.MetricsAddr
	}
	if addr != "" {
		go func() {
			if err := observability.Serve(ctx, addr, collector, log); err != nil {
				log.Error(ctx, "metrics server failed", logging.Err(err))
			}
		}()
	}

	opts := append(cfg.ModelOptions(log), sim.WithRecorder(collector))
	m, err := sim.New(mdl.desc, opts...)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sink := &runSink{store: st, model: m, preset: mdl.preset}
	ctrl := export.New(cfg.ExportSpec(m.Kind()), sink, export.WithLogger(log))
	if err := ctrl.ModelLoaded(m, export.CauseNewRun); err != nil {
		return err
	}

	var each func(*sim.Model) error
	if watch {
		live := tui.NewLiveRenderer(cmd.OutOrStdout(), mdl.name, frameRate)
		live.Start()
		defer live.Stop()
		each = live.OnTick
	}

	fmt.Fprintf(cmd.OutOrStdout(), "running %s for %d ticks...\n", mdl.name, n)
	collector.RunStarted()
	start := time.Now()
	if err := m.Start(); err != nil {
		collector.RunFinished()
		return err
	}
	runErr := sim.NewRunner(m, 0, log).Advance(ctx, n, each)
	m.Stop()
	elapsed := time.Since(start)
	collector.RunFinished()

	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	} else if runErr != nil {
		log.Error(ctx, "run stopped early", logging.Err(runErr))
	}
	if err := ctrl.ExportData(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "run id: %s\n", sink.last())
	fmt.Fprintf(out, "ticks: %d\n", m.Steps())
	fmt.Fprintf(out, "time: %.6g %s\n", m.Time(), m.TimeUnit())

	run, err := st.Load(context.Background(), sink.last())
	if err != nil {
		return err
	}
	printMetrics(cmd, run.Metrics)
	return runErr
}

func printMetrics(cmd *cobra.Command, values map[string]float64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(cmd.OutOrStdout(), "\nmetrics:")
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %.6g\n", name, values[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mdl, err := loadModel(args)
	if err != nil {
		return err
	}
	// Logs would tear the alternate screen.
	m, err := sim.New(mdl.desc, cfg.ModelOptions(nil)...)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sink := &runSink{store: st, model: m, preset: mdl.preset}
	ctrl := export.New(cfg.ExportSpec(m.Kind()), sink, export.WithActionLog(func(string, map[string]any) {}))
	if err := ctrl.ModelLoaded(m, export.CauseNewRun); err != nil {
		return err
	}

	stepper := tui.NewStepper(sim.NewRunner(m, cfg.TickInterval, nil), ctrl,
		tui.WithTitle(mdl.name),
		tui.WithInterval(cfg.TickInterval),
		tui.WithTheme(theme))
	if _, err := tea.NewProgram(stepper, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	for _, id := range sink.saved {
		fmt.Fprintf(cmd.OutOrStdout(), "saved run %s\n", id)
	}
	return nil
}

// roundTrip ticks a model, passes its canonical form through JSON into a
// new model and checks that both serialize, and keep ticking, identically.
func roundTrip(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mdl, err := loadModel(args)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("ticks")

	opts := cfg.ModelOptions(nil)
	a, err := sim.New(mdl.desc, opts...)
	if err != nil {
		return err
	}
	if err := sim.NewRunner(a, 0, nil).Advance(cmd.Context(), n, nil); err != nil {
		return err
	}

	data, err := json.Marshal(a.Serialize())
	if err != nil {
		return err
	}
	d, err := sim.ParseDescription(data)
	if err != nil {
		return err
	}
	b, err := sim.Deserialize(d, opts...)
	if err != nil {
		return err
	}
	if err := sameForm(a, b); err != nil {
		return err
	}
	if err := errors.Join(a.Tick(), b.Tick()); err != nil {
		return err
	}
	if err := sameForm(a, b); err != nil {
		return fmt.Errorf("after one more tick: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %s round-trips after %d ticks (%d bytes)\n", mdl.name, n, len(data))
	return nil
}

func sameForm(a, b *sim.Model) error {
	ja, err := json.Marshal(a.Serialize())
	if err != nil {
		return err
	}
	jb, err := json.Marshal(b.Serialize())
	if err != nil {
		return err
	}
	if bytes.Equal(ja, jb) {
		return nil
	}
	var da, db map[string]any
	if err := errors.Join(json.Unmarshal(ja, &da), json.Unmarshal(jb, &db)); err != nil {
		return err
	}
	return fmt.Errorf("serialized forms differ (-original +restored):\n%s", cmp.Diff(da, db))
}

func benchModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mdl, err := loadModel(args)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("ticks")

	collector, err := newCollector()
	if err != nil {
		return err
	}
	opts := append(cfg.ModelOptions(nil), sim.WithRecorder(collector))

	fmt.Fprintf(cmd.OutOrStdout(), "benchmarking %s: %d copies x %d ticks\n\n", mdl.name, benchRuns, n)
	start := time.Now()
	results, err := sim.NewEnsemble(mdl.desc, benchRuns, opts...).Run(cmd.Context(), n)
	if err != nil {
		return err
	}
	wall := time.Since(start)

	t := table.New().Headers("COPY", "TICKS", "ELAPSED", "TICKS/SEC")
	total := 0
	for _, r := range results {
		total += r.Ticks
		t.Row(fmt.Sprint(r.Index), fmt.Sprint(r.Ticks), r.Elapsed.Round(time.Microsecond).String(),
			fmt.Sprintf("%.0f", float64(r.Ticks)/r.Elapsed.Seconds()))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	fmt.Fprintf(cmd.OutOrStdout(), "\ntotal: %d ticks in %v (%.0f ticks/sec)\n",
		total, wall.Round(time.Millisecond), float64(total)/wall.Seconds())
	return nil
}

func sweepParam(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mdl, err := loadModel(args)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("ticks")

	points, err := analysis.Sweep(cmd.Context(), mdl.desc, param, analysis.Linspace(from, to, steps),
		output, transient, n, cfg.ModelOptions(nil)...)
	if err != nil {
		return err
	}
	t := table.New().Headers(param, output)
	for _, p := range points {
		vals := make([]string, len(p.Values))
		for i, v := range p.Values {
			vals[i] = fmt.Sprintf("%.4g", v)
		}
		t.Row(fmt.Sprintf("%.4g", p.Param), fmt.Sprint(vals))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func lyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mdl, err := loadModel(args)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("ticks")

	lambda, err := analysis.LyapunovExponent(cmd.Context(), mdl.desc, perturb, n, cfg.ModelOptions(nil)...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "largest lyapunov exponent: %.6g 1/fs\n", lambda)
	return nil
}
