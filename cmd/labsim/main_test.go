package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

var runIDPattern = regexp.MustCompile(`run id: ([0-9a-f-]{36})`)

func runPreset(t *testing.T, dir, store, name string, ticks string) string {
	t.Helper()
	out, err := execute(t, "run", "--preset", name, "--ticks", ticks, "--data", dir, "--store", store)
	if err != nil {
		t.Fatalf("run %s: %v\n%s", name, err, out)
	}
	m := runIDPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no run id in output:\n%s", out)
	}
	return m[1]
}

func TestRunListShow(t *testing.T) {
	for _, store := range []string{"fs", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			dir := t.TempDir()
			id := runPreset(t, dir, store, "gas", "5")

			out, err := execute(t, "list", "--data", dir, "--store", store)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out, id) || !strings.Contains(out, "md2d") {
				t.Errorf("list output missing run:\n%s", out)
			}

			out, err = execute(t, "show", id, "--data", dir, "--store", store)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range []string{`"kind": "md2d"`, `"preset": "gas"`, `"ticks": 5`, `"Total energy"`} {
				if !strings.Contains(out, want) {
					t.Errorf("show output missing %s", want)
				}
			}
		})
	}
}

func TestRunPrintsSummary(t *testing.T) {
	out, err := execute(t, "run", "--preset", "gas", "--ticks", "4", "--data", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"ticks: 4", "time: 40 fs", "energy_drift", "stability"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pair.yaml")
	model := "width: 4\nheight: 4\natoms:\n  x: [1, 2.5]\n  y: [1, 2.5]\n  vx: [0.001, 0]\n  vy: [0, 0]\n"
	if err := os.WriteFile(path, []byte(model), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "run", path, "--ticks", "3", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "running pair for 3 ticks") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestModelSelectionErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no model", []string{"run"}},
		{"both", []string{"run", "model.yaml", "--preset", "gas"}},
		{"unknown preset", []string{"roundtrip", "--preset", "plasma"}},
		{"missing file", []string{"roundtrip", "nope.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, append(tt.args, "--data", t.TempDir())...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestPlotAndAnalyze(t *testing.T) {
	dir := t.TempDir()
	id := runPreset(t, dir, "fs", "gas", "8")

	out, err := execute(t, "plot", id, "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Temperature (K) vs Time (fs)") {
		t.Errorf("plot output missing caption:\n%s", out)
	}

	svg := filepath.Join(dir, "energy.svg")
	if _, err := execute(t, "plot", id, svg, "--column", "Total energy", "--data", dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(svg)
	if err != nil || !strings.HasPrefix(string(data), "<?xml") {
		t.Fatalf("svg not written: %v", err)
	}

	if _, err := execute(t, "plot", id, svg, "--field", "--data", dir); err == nil {
		t.Error("field plot of an md2d run succeeded")
	}

	spectrum := filepath.Join(dir, "spectrum.csv")
	out, err = execute(t, "analyze", id, spectrum, "--column", "temperature", "--x-axis", "1", "--y-axis", "2", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "frequency analysis: "+id) || !strings.Contains(out, "phase portrait") {
		t.Errorf("analyze output:\n%s", out)
	}
	data, err = os.ReadFile(spectrum)
	if err != nil || !strings.HasPrefix(string(data), "frequency,power\n") {
		t.Errorf("spectrum csv: %v %q", err, data)
	}
}

func TestPlotField(t *testing.T) {
	dir := t.TempDir()
	id := runPreset(t, dir, "fs", "hot-plate", "3")
	svg := filepath.Join(dir, "field.svg")
	if _, err := execute(t, "plot", id, svg, "--field", "--data", dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(svg)
	if err != nil {
		t.Fatal(err)
	}
	// 40x40 grid cells.
	if n := strings.Count(string(data), "<rect"); n != 1600 {
		t.Errorf("field svg has %d cells", n)
	}
}

func TestRoundTripPresets(t *testing.T) {
	for _, name := range []string{"gas", "excited-gas", "hot-plate"} {
		t.Run(name, func(t *testing.T) {
			out, err := execute(t, "roundtrip", "--preset", name, "--ticks", "5")
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(out, "ok: "+name) {
				t.Errorf("output %q", out)
			}
		})
	}
}

func TestPresetsAndBench(t *testing.T) {
	out, err := execute(t, "presets")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"gas", "excited-gas", "hot-plate"} {
		if !strings.Contains(out, name) {
			t.Errorf("presets missing %s", name)
		}
	}

	out, err = execute(t, "bench", "--preset", "gas", "--ticks", "3", "--runs", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "total: 6 ticks") {
		t.Errorf("bench output:\n%s", out)
	}
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labsim.yaml")
	out, err := execute(t, "init", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Errorf("init output: %q", out)
	}
	if _, err := execute(t, "init", path); err == nil {
		t.Error("init overwrote an existing file")
	}
	if _, err := execute(t, "run", "--config", path, "--preset", "gas", "--ticks", "2", "--data", dir); err != nil {
		t.Fatalf("run with written config: %v", err)
	}
}
