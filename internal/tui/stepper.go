package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/sim"
	"github.com/san-kum/labsim/internal/viz"
)

const (
	defaultInterval = 50 * time.Millisecond
	canvasWidth     = 60
	canvasHeight    = 20
	panelWidth      = 52
)

type tickMsg time.Time

// Stepper is the bubbletea model of the interactive stepper. Every access
// to the simulation goes through the runner.
type Stepper struct {
	runner   *sim.Runner
	ctrl     *export.Controller
	canvas   *viz.Canvas
	theme    viz.Theme
	styles   viz.Styles
	title    string
	interval time.Duration

	column int
	help   bool
	status string
	err    error
}

type Option func(*Stepper)

func WithTitle(title string) Option { return func(s *Stepper) { s.title = title } }

func WithInterval(d time.Duration) Option {
	return func(s *Stepper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithTheme(name string) Option {
	return func(s *Stepper) {
		s.theme = viz.GetTheme(name)
		s.styles = viz.NewStyles(s.theme)
	}
}

// NewStepper drives the model behind r and charts the series collected by
// ctrl, which must already be attached to that model.
func NewStepper(r *sim.Runner, ctrl *export.Controller, opts ...Option) Stepper {
	s := Stepper{
		runner:   r,
		ctrl:     ctrl,
		canvas:   viz.NewCanvas(canvasWidth, canvasHeight),
		theme:    viz.Themes[0],
		styles:   viz.NewStyles(viz.Themes[0]),
		title:    "labsim",
		interval: defaultInterval,
		column:   1,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s Stepper) Init() tea.Cmd { return s.tick() }

func (s Stepper) tick() tea.Cmd {
	return tea.Tick(s.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (s Stepper) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKey(msg)
	case tea.WindowSizeMsg:
		w := max(msg.Width-panelWidth-6, 20)
		h := max(msg.Height-4, 8)
		s.canvas = viz.NewCanvas(w, h)
		return s, nil
	case tickMsg:
		s.do(func(m *sim.Model) error {
			if m.IsStopped() {
				return nil
			}
			return m.Tick()
		})
		return s, s.tick()
	}
	return s, nil
}

func (s Stepper) handleKey(msg tea.KeyMsg) (Stepper, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return s, tea.Quit
	case " ":
		s.do(func(m *sim.Model) error {
			if m.IsStopped() {
				return m.Start()
			}
			m.Stop()
			return nil
		})
	case "right", "l":
		s.do(func(m *sim.Model) error {
			m.Stop()
			return m.Tick()
		})
	case "left", "h":
		s.do(func(m *sim.Model) error {
			m.Stop()
			return m.StepBack()
		})
	case "r":
		s.do((*sim.Model).Reset)
	case "e":
		s.do(func(*sim.Model) error { return s.ctrl.ExportData() })
		if s.err == nil {
			s.status = "exported"
		}
	case "tab":
		if n := len(s.ctrl.Series().Labels); n > 1 {
			s.column = s.column%(n-1) + 1
		}
	case "t":
		s.theme = viz.NextTheme(s.theme.Name)
		s.styles = viz.NewStyles(s.theme)
	case "?":
		s.help = !s.help
	}
	return s, nil
}

// do runs fn under the runner lock and records its outcome.
func (s *Stepper) do(fn func(*sim.Model) error) {
	s.status = ""
	s.err = s.runner.Do(fn)
}

// Err returns the error of the last action, if any.
func (s Stepper) Err() error { return s.err }

// Column returns the index of the charted series column.
func (s Stepper) Column() int { return s.column }

func (s Stepper) Theme() viz.Theme { return s.theme }

func (s Stepper) Help() bool { return s.help }

func (s Stepper) View() string {
	var (
		state   sim.State
		halted  error
		t       float64
		unit    string
		steps   int
		sensors []sim.SensorView
	)
	s.runner.Do(func(m *sim.Model) error {
		viz.Draw(s.canvas, m)
		state, halted = m.State(), m.Halted()
		t, unit, steps = m.Time(), m.TimeUnit(), m.Steps()
		sensors = m.Sensors()
		return nil
	})
	series := s.ctrl.Series()

	var b strings.Builder
	b.WriteString(viz.GradientText(strings.ToUpper(s.title), s.theme.Primary, s.theme.Accent) + "\n")
	b.WriteString(s.statusLine(state, halted) + "\n\n")
	b.WriteString(row(s.styles, "Time", fmt.Sprintf("%.4g %s", t, unit)))
	b.WriteString(row(s.styles, "Ticks", fmt.Sprint(steps)))
	if n := series.Len(); n > 0 {
		last := series.Points[n-1]
		for i, l := range series.Labels[1:] {
			name := l.Name
			if i+1 == s.column {
				name = "› " + name
			}
			value := fmt.Sprintf("%.4g %s %s", last[i+1], l.Unit, viz.Sparkline(series.Column(i+1), 10))
			b.WriteString(row(s.styles, name, value))
		}
	}
	for _, sv := range sensors {
		b.WriteString(row(s.styles, sv.Type, fmt.Sprintf("%.4g %s", sv.Reading, sv.Unit)))
	}
	if chart := s.chart(series); chart != "" {
		b.WriteString(s.styles.Chart.Render(chart) + "\n")
	}
	if s.err != nil {
		b.WriteString(s.styles.Halted.Render(s.err.Error()) + "\n")
	} else if s.status != "" {
		b.WriteString(s.styles.Running.Render(s.status) + "\n")
	}
	b.WriteString(s.styles.Help.Render("space run/stop  → tick  ← back  r reset  e export  tab series  ? help  q quit"))

	view := lipgloss.JoinHorizontal(lipgloss.Top,
		s.styles.Canvas.Render(s.canvas.String()),
		s.styles.Panel.Render(b.String()))
	if s.help {
		return helpText + "\n" + view
	}
	return view
}

func (s Stepper) statusLine(state sim.State, halted error) string {
	switch {
	case halted != nil:
		return s.styles.Halted.Render("● HALTED")
	case state == sim.Running:
		return s.styles.Running.Render("● RUNNING")
	default:
		return s.styles.Stopped.Render("○ STOPPED")
	}
}

func (s Stepper) chart(series export.Series) string {
	if series.Len() < 2 || s.column >= len(series.Labels) {
		return ""
	}
	return asciigraph.Plot(series.Column(s.column),
		asciigraph.Height(6),
		asciigraph.Width(panelWidth-14),
		asciigraph.Caption(series.Labels[s.column].Key()))
}

func row(st viz.Styles, label, value string) string {
	return st.Label.Render(label) + st.Value.Render(value) + "\n"
}

const helpText = `
  space    start or stop the model
  → / l    advance one tick
  ← / h    step back one tick
  r        reset to the initial state
  e        export per-run values and the series
  tab      chart the next per-tick series
  t        cycle colour themes
  q        quit
`
