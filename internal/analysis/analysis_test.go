package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/sim"
)

func TestDominantFrequency(t *testing.T) {
	tests := []struct {
		name string
		freq float64
		dt   float64
		n    int
	}{
		{"exact bin", 0.125, 1, 64},
		{"padded", 0.05, 0.5, 100},
		{"fine sampling", 2, 0.01, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]float64, tt.n)
			for i := range data {
				data[i] = 3 + math.Sin(2*math.Pi*tt.freq*float64(i)*tt.dt)
			}
			got, err := DominantFrequency(data, tt.dt)
			if err != nil {
				t.Fatal(err)
			}
			// one bin of the padded transform
			bins := 1 << uint(math.Ceil(math.Log2(float64(tt.n))))
			res := 1 / (float64(bins) * tt.dt)
			if math.Abs(got-tt.freq) > res {
				t.Errorf("got %v, want %v ± %v", got, tt.freq, res)
			}
		})
	}
}

func TestDominantFrequencyErrors(t *testing.T) {
	if _, err := DominantFrequency([]float64{1, 2, 3, 4}, 0); err == nil {
		t.Error("zero dt accepted")
	}
	if _, err := DominantFrequency([]float64{1}, 1); err == nil {
		t.Error("single sample accepted")
	}
	if _, err := DominantFrequency([]float64{2, 2, 2, 2, 2}, 1); err == nil {
		t.Error("constant signal accepted")
	}
}

func TestPowerSpectrumLength(t *testing.T) {
	if got := len(PowerSpectrum(make([]float64, 100))); got != 64 {
		t.Errorf("len = %d, want 64", got)
	}
	if PowerSpectrum(nil) != nil {
		t.Error("empty input")
	}
}

func TestPhasePortrait(t *testing.T) {
	s := export.Series{
		Labels: []export.Label{{Name: "Time"}, {Name: "KE"}, {Name: "PE"}},
		Points: [][]float64{{0, 1, -1}, {1, 2, -2}, {2, 3, -3}},
	}
	p, err := PhasePortrait(s, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if p.XLabel.Name != "KE" || p.Y[2] != -3 {
		t.Errorf("portrait = %+v", p)
	}
	art := PhasePortraitToASCII(p, 20, 10)
	if strings.Count(art, "·") != 3 || !strings.Contains(art, "x: KE [1, 3]") {
		t.Errorf("expected 3 points:\n%s", art)
	}

	// A point revisited four times is drawn heavy.
	loop := &PhasePortrait2D{X: []float64{0, 1, 1, 1, 1}, Y: []float64{0, 1, 1, 1, 1}}
	if art := PhasePortraitToASCII(loop, 5, 5); !strings.Contains(art, "●") {
		t.Errorf("revisited cell not heavy:\n%s", art)
	}
	if _, err := PhasePortrait(s, 1, 5); err == nil {
		t.Error("out of range column accepted")
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	if len(got) != 5 || got[0] != 0 || got[4] != 1 || got[2] != 0.5 {
		t.Errorf("Linspace = %v", got)
	}
	if got := Linspace(3, 9, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("Linspace n=1 = %v", got)
	}
}

func gas() sim.Description {
	return sim.Description{
		"width": 4, "height": 4,
		"atoms": map[string]any{
			"x":  []any{1, 1.4, 2.5, 3},
			"y":  []any{1, 1.1, 2.5, 1.5},
			"vx": []any{0.002, -0.001, 0, 0.001},
			"vy": []any{0, 0.001, -0.002, 0.001},
		},
	}
}

func TestSweepHeatBath(t *testing.T) {
	d := gas()
	d["temperatureControl"] = true

	points, err := Sweep(context.Background(), d, "targetTemperature", []float64{100, 200}, "temperature", 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points", len(points))
	}
	for _, p := range points {
		if len(p.Values) != 1 || math.Abs(p.Values[0]-p.Param) > 1e-6 {
			t.Errorf("param %v: values %v", p.Param, p.Values)
		}
	}
}

func TestSweepRejectsBadParameter(t *testing.T) {
	if _, err := Sweep(context.Background(), gas(), "width", []float64{-1}, "temperature", 1, 1); err == nil {
		t.Error("invalid parameter value accepted")
	}
	if _, err := Sweep(context.Background(), gas(), "width", []float64{5}, "useQuantumDynamics", 0, 1); err == nil {
		t.Error("boolean output accepted")
	}
}

func TestLyapunovExponent(t *testing.T) {
	lambda, err := LyapunovExponent(context.Background(), gas(), 1e-6, 200)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		t.Errorf("lambda = %v", lambda)
	}

	if _, err := LyapunovExponent(context.Background(), sim.Description{"type": "energy2d"}, 1e-6, 10); err == nil {
		t.Error("energy2d accepted")
	}
	if _, err := LyapunovExponent(context.Background(), sim.Description{}, 1e-6, 10); err == nil {
		t.Error("empty gas accepted")
	}
	if _, err := LyapunovExponent(context.Background(), gas(), 0, 10); err == nil {
		t.Error("zero perturbation accepted")
	}
}
