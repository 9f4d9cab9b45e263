// Package export samples model properties into per-run values and a
// per-tick time series, and hands them to an external data sink.
package export

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/logging"
	"github.com/san-kum/labsim/internal/sim"
)

// Spec lists the properties to export.
type Spec struct {
	PerRun  []string `yaml:"per_run,omitempty" json:"perRun,omitempty"`
	PerTick []string `yaml:"per_tick,omitempty" json:"perTick,omitempty"`
}

// Sink receives exported data, typically an external data-analysis tool.
type Sink interface {
	CanExportData() bool
	ExportData(perRunLabels []Label, perRunValues []any, perTickLabels []Label, perTickValues [][]float64) error
}

// ActionLog records user-level events such as exports.
type ActionLog func(action string, data map[string]any)

const (
	ActionExportedModel   = "ExportedModel"
	ActionParameterChange = "ParameterChange"
	ActionSetUpNewRun     = "SetUpNewRun"

	// CauseNewRun is the load cause that starts a new run.
	CauseNewRun = "new-run"
)

type Option func(*Controller)

func WithLogger(l logging.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithActionLog replaces the default action log, which writes each action
// to the logger at info level.
func WithActionLog(fn ActionLog) Option {
	return func(c *Controller) { c.action = fn }
}

// Controller keeps the time series of the attached model in step with its
// lifecycle. Points after the cursor survive a step back and are dropped
// by the next tick or invalidating change.
type Controller struct {
	spec Spec
	sink Sink
	log  logging.Logger

	action    ActionLog
	listeners []func(bool)

	model    *sim.Model
	hooked   map[*sim.Model]bool
	labels   []Label
	points   [][]float64
	cursor   int
	started  bool
	baseline map[string]any
}

func New(spec Spec, sink Sink, opts ...Option) *Controller {
	c := &Controller{spec: spec, sink: sink, log: logging.Noop(), hooked: make(map[*sim.Model]bool)}
	for _, opt := range opts {
		opt(c)
	}
	if c.action == nil {
		c.action = func(action string, data map[string]any) {
			c.log.Info(context.Background(), "action", logging.String("action", action), logging.Any("data", data))
		}
	}
	return c
}

// Attach starts tracking m with a single sampled point. Attaching a model
// again only restarts its series.
func (c *Controller) Attach(m *sim.Model) error {
	labels := []Label{{Name: "Time", Unit: m.TimeUnit()}}
	for _, name := range c.spec.PerTick {
		l, err := labelOf(m, name)
		if err != nil {
			return err
		}
		labels = append(labels, l)
	}
	for _, name := range c.spec.PerRun {
		if _, err := labelOf(m, name); err != nil {
			return err
		}
	}

	c.model, c.labels, c.started, c.baseline = m, labels, false, nil
	c.restart()
	if c.hooked[m] {
		return nil
	}
	c.hooked[m] = true

	m.On(sim.EventStart, func() {
		if c.model != m {
			return
		}
		c.started = true
		_, values := c.PerRun()
		c.baseline = make(map[string]any, len(values))
		for i, name := range c.spec.PerRun {
			c.baseline[name] = values[i]
		}
	})
	m.On(sim.EventTick, func() {
		if c.model != m {
			return
		}
		c.points = append(c.points[:c.cursor+1], c.sample())
		c.cursor++
	})
	m.On(sim.EventReset, func() {
		if c.model == m {
			c.restart()
		}
	})
	m.On(sim.EventStepBack, func() {
		if c.model == m && c.cursor > 0 {
			c.cursor--
		}
	})
	m.On(sim.EventInvalidation, func() {
		if c.model != m {
			return
		}
		c.points = c.points[:c.cursor+1]
		c.points[c.cursor] = c.sample()
	})
	return nil
}

// ModelLoaded attaches a freshly loaded model. A load with cause
// CauseNewRun is logged as the start of a new run.
func (c *Controller) ModelLoaded(m *sim.Model, cause string) error {
	if err := c.Attach(m); err != nil {
		return err
	}
	if cause == CauseNewRun {
		c.action(ActionSetUpNewRun, nil)
	}
	return nil
}

func (c *Controller) restart() {
	c.points = [][]float64{c.sample()}
	c.cursor = 0
}

func (c *Controller) sample() []float64 {
	p := make([]float64, 0, len(c.spec.PerTick)+1)
	p = append(p, c.model.Time())
	for _, name := range c.spec.PerTick {
		v, _ := c.model.Get(name)
		p = append(p, toFloat(v))
	}
	return p
}

// Series returns a copy of the time series up to and including the
// cursor.
func (c *Controller) Series() Series {
	s := Series{Labels: c.labels, Points: c.points[:c.cursor+1]}
	return s.Clone()
}

// PerRun returns the per-run labels and current values.
func (c *Controller) PerRun() ([]Label, []any) {
	labels := make([]Label, 0, len(c.spec.PerRun))
	values := make([]any, 0, len(c.spec.PerRun))
	for _, name := range c.spec.PerRun {
		l, _ := labelOf(c.model, name)
		v, _ := c.model.Get(name)
		labels = append(labels, l)
		values = append(values, v)
	}
	return labels, values
}

// ExportData sends the per-run values and the time series to the sink and
// records the export in the action log. Per-run values changed since the
// model was last started are logged first.
func (c *Controller) ExportData() error {
	if c.model == nil {
		return fmt.Errorf("export: no model attached")
	}
	if c.sink == nil {
		return fmt.Errorf("export: no sink")
	}
	runLabels, runValues := c.PerRun()
	series := c.Series()

	if c.started {
		if changes, changed := c.changes(runLabels, runValues); changed {
			c.action(ActionParameterChange, changes)
		}
	}

	if err := c.sink.ExportData(runLabels, runValues, series.Labels, series.Points); err != nil {
		return fmt.Errorf("export data: %w", err)
	}

	logged := make(map[string]any, len(runLabels))
	for i, l := range runLabels {
		logged[l.Key()] = runValues[i]
	}
	c.action(ActionExportedModel, logged)
	c.started = false
	return nil
}

func (c *Controller) changes(labels []Label, values []any) (map[string]any, bool) {
	out := make(map[string]any, 3*len(labels))
	changed := false
	for i, name := range c.spec.PerRun {
		key := labels[i].Key()
		start, ok := c.baseline[name]
		if !ok {
			start = values[i]
		}
		diff := fmt.Sprint(start) != fmt.Sprint(values[i])
		changed = changed || diff
		out[key+" changed?"] = diff
		out[key+" (start of run)"] = start
		out[key+" (sent to CODAP)"] = values[i]
	}
	return out, changed
}

// OnCanExportData registers fn to be told whether the sink accepts data
// whenever it connects.
func (c *Controller) OnCanExportData(fn func(bool)) {
	c.listeners = append(c.listeners, fn)
}

// CanExportData reports whether the sink currently accepts data.
func (c *Controller) CanExportData() bool {
	return c.sink != nil && c.sink.CanExportData()
}

// SinkConnected is called by the sink once it has connected.
func (c *Controller) SinkConnected() {
	ok := c.CanExportData()
	for _, fn := range c.listeners {
		fn(ok)
	}
}

func labelOf(m *sim.Model, name string) (Label, error) {
	d, err := m.PropertyDescription(name)
	if err != nil {
		return Label{}, fmt.Errorf("export %q: %w", name, err)
	}
	l := Label{Name: d.Label, Unit: d.Unit}
	if l.Name == "" {
		l.Name = name
	}
	return l, nil
}

func toFloat(v any) float64 {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	if f, ok := dynamo.ToFloat(v); ok {
		return f
	}
	return math.NaN()
}
