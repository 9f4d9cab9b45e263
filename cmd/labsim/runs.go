package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/labsim/internal/analysis"
	"github.com/san-kum/labsim/internal/config"
	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/sim"
	"github.com/san-kum/labsim/internal/storage"
)

func loadRun(cmd *cobra.Command, id string) (*storage.Run, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Load(cmd.Context(), id)
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	t := table.New().Headers("ID", "KIND", "PRESET", "CREATED", "TICKS", "TIME")
	for _, r := range runs {
		t.Row(r.ID, r.Kind, r.Preset,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Ticks),
			strconv.FormatFloat(r.Time, 'g', 6, 64))
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	return storage.WriteJSON(cmd.OutOrStdout(), run)
}

// columnIndex resolves a column given by label, "label (unit)" key or
// index. An empty name selects def.
func columnIndex(s export.Series, name string, def int) (int, error) {
	if name == "" {
		if def >= len(s.Labels) {
			return 0, fmt.Errorf("series has no column %d", def)
		}
		return def, nil
	}
	if i, err := strconv.Atoi(name); err == nil {
		if i < 0 || i >= len(s.Labels) {
			return 0, fmt.Errorf("column %d out of range", i)
		}
		return i, nil
	}
	for i, l := range s.Labels {
		if strings.EqualFold(l.Name, name) || strings.EqualFold(l.Key(), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no column %q", name)
}

func plotRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		return plotSVG(run, args[1])
	}
	if field {
		return fmt.Errorf("--field needs an .svg output file")
	}
	if run.Series.Len() < 2 {
		return fmt.Errorf("run %s has fewer than 2 samples", run.ID)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\nkind: %s\nsamples: %d\n\n", run.ID, run.Kind, run.Series.Len())

	cols := make([]int, 0, len(run.Series.Labels))
	if column != "" {
		i, err := columnIndex(run.Series, column, 1)
		if err != nil {
			return err
		}
		cols = append(cols, i)
	} else {
		for i := 1; i < len(run.Series.Labels) && i <= 6; i++ {
			cols = append(cols, i)
		}
	}
	for _, i := range cols {
		graph := asciigraph.Plot(run.Series.Column(i),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(run.Series.Labels[i].Key()+" vs "+run.Series.Labels[0].Key()),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func plotSVG(run *storage.Run, path string) error {
	if filepath.Ext(path) != ".svg" {
		return fmt.Errorf("unsupported plot format %q (want .svg)", filepath.Ext(path))
	}
	var (
		svg string
		err error
	)
	if field {
		svg, err = fieldSVG(run)
	} else {
		var col int
		if col, err = columnIndex(run.Series, column, 1); err != nil {
			return err
		}
		svg, err = export.SeriesSVG(run.Series, col, 800, 400, "#00ccff")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(svg), 0644)
}

// fieldSVG rebuilds the saved model to draw its temperature field.
func fieldSVG(run *storage.Run) (string, error) {
	m, err := sim.Deserialize(run.Model)
	if err != nil {
		return "", err
	}
	f, nx, ny := m.Field()
	if f == nil {
		return "", fmt.Errorf("run %s is %s and has no temperature field", run.ID, run.Kind)
	}
	return export.FieldSVG(f, nx, ny, 10)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	run, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	s := run.Series
	if s.Len() < 3 {
		return fmt.Errorf("run %s has %d samples, need at least 3", run.ID, s.Len())
	}
	col, err := columnIndex(s, column, 1)
	if err != nil {
		return err
	}
	times := s.Times()
	dt := times[1] - times[0]
	data := s.Column(col)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "frequency analysis: %s\n", run.ID)
	fmt.Fprintf(out, "column: %s\n\n", s.Labels[col].Key())

	ps := analysis.PowerSpectrum(data)
	plot := ps
	if len(plot) > 8 {
		plot = plot[:len(plot)/2]
	}
	fmt.Fprintln(out, asciigraph.Plot(plot,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum: "+s.Labels[col].Name),
	))
	fmt.Fprintln(out)

	unit := s.Labels[0].Unit
	if freq, err := analysis.DominantFrequency(data, dt); err != nil {
		fmt.Fprintf(out, "no dominant frequency: %v\n", err)
	} else {
		fmt.Fprintf(out, "dominant frequency: %.6g 1/%s\n", freq, unit)
		fmt.Fprintf(out, "period: %.6g %s\n", 1/freq, unit)
	}

	if xAxis != "" || yAxis != "" {
		xi, err := columnIndex(s, xAxis, col)
		if err != nil {
			return err
		}
		yi, err := columnIndex(s, yAxis, min(col+1, len(s.Labels)-1))
		if err != nil {
			return err
		}
		portrait, err := analysis.PhasePortrait(s, xi, yi)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nphase portrait: %s vs %s\n", portrait.YLabel.Key(), portrait.XLabel.Key())
		fmt.Fprint(out, analysis.PhasePortraitToASCII(portrait, 60, 20))
	}

	if len(args) == 2 {
		return writeSpectrum(args[1], ps, dt)
	}
	return nil
}

// writeSpectrum stores the one-sided spectrum as frequency,power rows.
func writeSpectrum(path string, ps []float64, dt float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"frequency", "power"})
	for k, p := range ps {
		freq := float64(k) / (float64(2*len(ps)) * dt)
		w.Write([]string{strconv.FormatFloat(freq, 'g', -1, 64), strconv.FormatFloat(p, 'g', -1, 64)})
	}
	w.Flush()
	return w.Error()
}

func listPresets(cmd *cobra.Command, args []string) error {
	t := table.New().Headers("PRESET", "TICKS", "SUMMARY")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		t.Row(name, strconv.Itoa(p.Ticks), p.Summary)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "labsim.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
