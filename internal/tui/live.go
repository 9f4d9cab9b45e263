package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/labsim/internal/sim"
	"github.com/san-kum/labsim/internal/viz"
)

const (
	liveWidth   = 70
	liveHeight  = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws a model to a terminal at most frameRate times a
// second. It fits the per-tick callback of sim.Runner.Advance.
type LiveRenderer struct {
	w         io.Writer
	title     string
	frameRate int
	lastFrame time.Time
	canvas    *viz.Canvas
	now       func() time.Time
}

func NewLiveRenderer(w io.Writer, title string, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		w:         w,
		title:     title,
		frameRate: frameRate,
		canvas:    viz.NewCanvas(liveWidth, liveHeight),
		now:       time.Now,
	}
}

// OnTick draws m unless the previous frame is too recent.
func (r *LiveRenderer) OnTick(m *sim.Model) error {
	now := r.now()
	if now.Sub(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return nil
	}
	r.lastFrame = now
	viz.Draw(r.canvas, m)
	_, err := io.WriteString(r.w, r.frame(m))
	return err
}

func (r *LiveRenderer) frame(m *sim.Model) string {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "  %s  t=%.4g %s  ticks=%d\n", r.title, m.Time(), m.TimeUnit(), m.Steps())
	b.WriteString("  " + strings.Repeat("─", liveWidth) + "\n")
	for _, line := range strings.SplitAfter(r.canvas.String(), "\n") {
		if line != "" {
			b.WriteString("  " + line)
		}
	}
	b.WriteString("  " + strings.Repeat("─", liveWidth) + "\n")

	var vals []string
	for _, name := range []string{"temperature", "totalEnergy", "numPhotons", "averageTemperature", "sensorReading"} {
		if v, err := m.Get(name); err == nil {
			vals = append(vals, fmt.Sprintf("%s=%.4g", name, v))
		}
	}
	b.WriteString("  " + strings.Join(vals, "  ") + "\n")
	return b.String()
}

func (r *LiveRenderer) Start() { io.WriteString(r.w, hideCursor) }
func (r *LiveRenderer) Stop()  { io.WriteString(r.w, showCursor) }
