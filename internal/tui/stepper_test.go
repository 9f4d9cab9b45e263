package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/sim"
)

type recordingSink struct {
	calls int
}

func (s *recordingSink) CanExportData() bool { return true }

func (s *recordingSink) ExportData(_ []export.Label, _ []any, _ []export.Label, _ [][]float64) error {
	s.calls++
	return nil
}

func gas(t *testing.T) *sim.Model {
	t.Helper()
	m, err := sim.New(sim.Description{
		"width": 4, "height": 4,
		"atoms": map[string]any{
			"x":  []any{1, 2.5},
			"y":  []any{1, 2.5},
			"vx": []any{0.001, 0},
			"vy": []any{0, -0.001},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newStepper(t *testing.T, sink export.Sink) (Stepper, *sim.Model, *export.Controller) {
	t.Helper()
	m := gas(t)
	ctrl := export.New(export.Spec{
		PerRun:  []string{"width"},
		PerTick: []string{"temperature", "totalEnergy"},
	}, sink)
	if err := ctrl.Attach(m); err != nil {
		t.Fatal(err)
	}
	return NewStepper(sim.NewRunner(m, 0, nil), ctrl, WithTitle("gas")), m, ctrl
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, s Stepper, msgs ...tea.Msg) Stepper {
	t.Helper()
	for _, msg := range msgs {
		next, _ := s.Update(msg)
		s = next.(Stepper)
	}
	return s
}

func TestSpaceStartsAndStops(t *testing.T) {
	s, m, _ := newStepper(t, nil)
	tick := tickMsg(time.Now())

	s = send(t, s, tick)
	if m.Steps() != 0 {
		t.Fatal("stopped model ticked")
	}
	s = send(t, s, key(" "), tick, tick)
	if m.State() != sim.Running || m.Steps() != 2 {
		t.Fatalf("state %v, steps %d", m.State(), m.Steps())
	}
	send(t, s, key(" "), tick)
	if !m.IsStopped() || m.Steps() != 2 {
		t.Errorf("state %v, steps %d after stop", m.State(), m.Steps())
	}
}

func TestArrowKeysStepAndStepBack(t *testing.T) {
	s, m, ctrl := newStepper(t, nil)

	s = send(t, s, key("right"), key("right"))
	if m.Steps() != 2 || ctrl.Series().Len() != 3 {
		t.Fatalf("steps %d, series %d", m.Steps(), ctrl.Series().Len())
	}
	s = send(t, s, key("left"))
	if m.Steps() != 1 || ctrl.Series().Len() != 2 {
		t.Errorf("after step back: steps %d, series %d", m.Steps(), ctrl.Series().Len())
	}
	if s.Err() != nil {
		t.Errorf("unexpected error %v", s.Err())
	}
}

func TestResetKey(t *testing.T) {
	s, m, ctrl := newStepper(t, nil)
	send(t, s, key("right"), key("right"), key("r"))
	if m.Steps() != 0 || m.Time() != 0 || ctrl.Series().Len() != 1 {
		t.Errorf("after reset: steps %d, time %v, series %d", m.Steps(), m.Time(), ctrl.Series().Len())
	}
}

func TestTabCyclesSeries(t *testing.T) {
	s, _, _ := newStepper(t, nil)
	want := []int{2, 1, 2}
	for _, w := range want {
		s = send(t, s, key("tab"))
		if s.Column() != w {
			t.Fatalf("column %d, want %d", s.Column(), w)
		}
	}
}

func TestThemeAndHelpToggle(t *testing.T) {
	s, _, _ := newStepper(t, nil)
	first := s.Theme().Name
	s = send(t, s, key("t"), key("?"))
	if s.Theme().Name == first {
		t.Error("theme did not change")
	}
	if !s.Help() || !strings.Contains(s.View(), "step back one tick") {
		t.Error("help not shown")
	}
}

func TestExportKey(t *testing.T) {
	sink := &recordingSink{}
	s, _, _ := newStepper(t, sink)
	s = send(t, s, key("e"))
	if sink.calls != 1 || s.Err() != nil {
		t.Errorf("calls %d, err %v", sink.calls, s.Err())
	}
	if !strings.Contains(s.View(), "exported") {
		t.Error("export not reported")
	}

	noSink, _, _ := newStepper(t, nil)
	noSink = send(t, noSink, key("e"))
	if noSink.Err() == nil {
		t.Error("export without a sink succeeded")
	}
}

func TestViewShowsState(t *testing.T) {
	s, _, _ := newStepper(t, nil)
	s = send(t, s, key("right"), key("right"))
	v := s.View()
	for _, want := range []string{"STOPPED", "Temperature", "Total energy", "fs"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
	s = send(t, s, key(" "))
	if !strings.Contains(s.View(), "RUNNING") {
		t.Error("view missing RUNNING")
	}
}

func TestQuitKey(t *testing.T) {
	s, _, _ := newStepper(t, nil)
	_, cmd := s.Update(key("q"))
	if cmd == nil {
		t.Fatal("no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q does not quit")
	}
}

func TestLiveRendererThrottles(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "gas", 10)
	now := time.Unix(100, 0)
	r.now = func() time.Time { return now }

	m := gas(t)
	if err := r.OnTick(m); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ticks=0") || !strings.Contains(buf.String(), "temperature=") {
		t.Fatalf("frame = %q", buf.String())
	}

	buf.Reset()
	now = now.Add(50 * time.Millisecond)
	r.OnTick(m)
	if buf.Len() != 0 {
		t.Error("frame drawn before the frame interval elapsed")
	}
	now = now.Add(60 * time.Millisecond)
	r.OnTick(m)
	if buf.Len() == 0 {
		t.Error("frame not drawn after the frame interval")
	}
}
