package sim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/history"
	"github.com/san-kum/labsim/internal/integrators"
	"github.com/san-kum/labsim/internal/logging"
	"github.com/san-kum/labsim/internal/property"
	"github.com/san-kum/labsim/internal/table"
)

const (
	KindMD2D     = "md2d"
	KindEnergy2D = "energy2d"
)

// Kinds lists the model types New understands.
var Kinds = []string{KindMD2D, KindEnergy2D}

// engine is the physics behind a model kind.
type engine interface {
	kind() string
	timeUnit() string
	capabilities() []string
	// define registers parameters, outputs and tables on a fresh model.
	define(m *Model) error
	// load applies a construction description, excluding "type", "time"
	// and "parameters".
	load(m *Model, d Description) error
	step(m *Model, t, dt float64) error
	encode(m *Model, d Description)
	tableChanged(m *Model, name string)
	save() engineState
	restore(m *Model, s engineState)
}

type engineState interface {
	clone() engineState
}

// Model is the facade over a property store, entity tables, an integrator
// and a step history. It is not safe for concurrent use; see [Runner].
type Model struct {
	eng   engine
	props *property.Store
	integ dynamo.Integrator

	tables     map[string]*table.Table
	tableOrder []string
	caps       map[string]bool

	time    float64
	steps   int
	state   State
	halted  error
	version uint64
	counter uint64

	history *history.Ring[*snapshot]
	initial *snapshot

	custom  []string
	pending map[string]any

	listeners map[Event][]func()
	inTick    bool
	loading   bool
	hookErrs  []error

	log logging.Logger
	rec Recorder
}

// New builds a model from a description. The "type" key selects md2d
// (default) or energy2d.
func New(d Description, opts ...Option) (*Model, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	integ, err := integrators.New(o.integrator)
	if err != nil {
		return nil, err
	}

	var eng engine
	switch d.Kind() {
	case KindMD2D:
		eng = newMD2D()
	case KindEnergy2D:
		eng = newEnergy2D()
	default:
		return nil, fmt.Errorf("unknown model type %q (available: %v)", d.Kind(), Kinds)
	}

	m := &Model{
		eng:       eng,
		props:     property.NewStore(property.WithLogger(o.log)),
		integ:     integ,
		tables:    make(map[string]*table.Table),
		caps:      make(map[string]bool),
		pending:   make(map[string]any),
		listeners: make(map[Event][]func()),
		history:   history.NewRing[*snapshot](o.historyDepth),
		log:       o.log.With(logging.String("model", eng.kind())),
		rec:       o.recorder,
	}

	if err := eng.define(m); err != nil {
		return nil, fmt.Errorf("define %s model: %w", eng.kind(), err)
	}
	if err := m.load(d); err != nil {
		return nil, err
	}
	m.initial = m.capture()

	m.log.Debug(context.Background(), "model created",
		logging.Int("properties", len(m.props.Names())))
	return m, nil
}

// Deserialize is the inverse of Serialize.
func Deserialize(d Description, opts ...Option) (*Model, error) {
	return New(d, opts...)
}

func (m *Model) load(d Description) error {
	m.loading = true
	defer func() { m.loading = false }()

	if err := m.eng.load(m, d); err != nil {
		return err
	}
	if v, ok := d["time"]; ok {
		t, ok := dynamo.ToFloat(v)
		if !ok || t < 0 {
			return &dynamo.InvalidValueError{Property: "time", Value: v, Reason: "must be a non-negative number"}
		}
		m.time = t
	}
	if v, ok := d["parameters"]; ok && v != nil {
		params, ok := v.(map[string]any)
		if !ok {
			return &dynamo.InvalidValueError{Property: "parameters", Value: v, Reason: "must be a mapping"}
		}
		maps.Copy(m.pending, params)
	}
	return m.takeHookErr()
}

// addTable registers a table; engines call it from define.
func (m *Model) addTable(s table.Schema) *table.Table {
	t := table.New(s, m.caps)
	m.hook(s.Name, t)
	m.tables[s.Name] = t
	m.tableOrder = append(m.tableOrder, s.Name)
	return t
}

func (m *Model) hook(name string, t *table.Table) {
	t.OnChange(func() {
		m.version = m.next()
		m.eng.tableChanged(m, name)
		if m.inTick {
			return
		}
		if err := m.props.Invalidate(tableKey(name)); err != nil {
			m.hookErrs = append(m.hookErrs, err)
		}
	})
}

func (m *Model) takeHookErr() error {
	errs := m.hookErrs
	m.hookErrs = nil
	return errors.Join(errs...)
}

func tableKey(name string) string { return "table:" + name }

func capabilityKey(name string) string { return "capability:" + name }

// next returns a fresh state version. Versions never repeat, so a snapshot
// shares its version only with the exact state it was taken from.
func (m *Model) next() uint64 {
	m.counter++
	return m.counter
}

func (m *Model) Kind() string     { return m.eng.kind() }
func (m *Model) TimeUnit() string { return m.eng.timeUnit() }
func (m *Model) Time() float64    { return m.time }
func (m *Model) Steps() int       { return m.steps }
func (m *Model) State() State     { return m.state }
func (m *Model) IsStopped() bool  { return m.state != Running }

// Halted returns the fatal error that stopped the model, if any.
func (m *Model) Halted() error { return m.halted }

// HistoryDepth is the number of ticks that can currently be stepped back.
func (m *Model) HistoryDepth() int { return m.history.Len() }

// On registers fn for a lifecycle event.
func (m *Model) On(ev Event, fn func()) {
	m.listeners[ev] = append(m.listeners[ev], fn)
}

func (m *Model) emit(ev Event) {
	m.rec.Lifecycle(m.eng.kind(), ev)
	if m.loading {
		return
	}
	for _, fn := range slices.Clone(m.listeners[ev]) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Warn(context.Background(), "event listener panicked",
						logging.String("event", string(ev)), logging.Any("panic", r))
				}
			}()
			fn()
		}()
	}
}

func (m *Model) Get(name string) (any, error) { return m.props.Get(name) }

// Set assigns one parameter. See SetAll.
func (m *Model) Set(name string, v any) error {
	return m.SetAll(map[string]any{name: v})
}

// SetAll assigns parameters atomically. A validation failure leaves every
// parameter unchanged. Observer failures are reported after the values
// commit.
func (m *Model) SetAll(values map[string]any) error {
	err := m.props.SetAll(values)
	var obsErr *property.ObserverError
	if err != nil && !errors.As(err, &obsErr) {
		return err
	}
	m.version = m.next()
	m.emit(EventInvalidation)
	return err
}

// DefineParameter registers a caller-defined parameter. A value for it
// carried in the description's "parameters" section is applied now.
func (m *Model) DefineParameter(name string, desc property.Description, validate property.Validator, initial any) error {
	if err := m.props.DefineParameter(name, desc, validate, initial); err != nil {
		return err
	}
	m.custom = append(m.custom, name)
	if v, ok := m.pending[name]; ok {
		delete(m.pending, name)
		if err := m.props.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// DefineOutput registers a caller-defined output. Outputs that read tables
// or time should list "table:<name>" or "time" among deps.
func (m *Model) DefineOutput(name string, desc property.Description, deps []string, fn func() any) error {
	return m.props.DefineOutput(name, desc, deps, fn)
}

func (m *Model) AddObserver(name string, fn property.Observer) property.Handle {
	return m.props.AddObserver(name, fn)
}

func (m *Model) AddPropertyDescriptionObserver(name string, fn property.Observer) property.Handle {
	return m.props.AddDescriptionObserver(name, fn)
}

func (m *Model) RemoveObserver(h property.Handle) { m.props.RemoveObserver(h) }

func (m *Model) PropertyDescription(name string) (property.Description, error) {
	info, ok := m.props.Info(name)
	if !ok {
		return property.Description{}, fmt.Errorf("%w: %q", dynamo.ErrUnknownProperty, name)
	}
	return info.Description, nil
}

// Baseline returns the value a per-run property had when the model was
// last started.
func (m *Model) Baseline(name string) (any, bool) { return m.props.Baseline(name) }

// PropertyValue is one entry of Properties.
type PropertyValue struct {
	Name        string
	Kind        property.Kind
	Value       any
	Description property.Description
}

// Properties lists every property in definition order.
func (m *Model) Properties() []PropertyValue {
	names := m.props.Names()
	out := make([]PropertyValue, 0, len(names))
	for _, n := range names {
		info, _ := m.props.Info(n)
		v, _ := m.props.Get(n)
		out = append(out, PropertyValue{Name: n, Kind: info.Kind, Value: v, Description: info.Description})
	}
	return out
}

func (m *Model) table(name string) (*table.Table, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, &dynamo.SchemaMismatchError{Table: name, Reason: fmt.Sprintf("no such table in %s model", m.eng.kind())}
	}
	return t, nil
}

// CreateRows appends rows to a table from column arrays.
func (m *Model) CreateRows(name string, cols map[string]any) error {
	t, err := m.table(name)
	if err != nil {
		return err
	}
	if err := t.CreateRows(cols); err != nil {
		return err
	}
	m.emit(EventInvalidation)
	return m.takeHookErr()
}

func (m *Model) CreateAtoms(cols map[string]any) error {
	return m.CreateRows(atomsTable, cols)
}

// SetField mutates one field of one row.
func (m *Model) SetField(name string, i int, field string, v any) error {
	t, err := m.table(name)
	if err != nil {
		return err
	}
	if err := t.SetField(i, field, v); err != nil {
		return err
	}
	m.emit(EventInvalidation)
	return m.takeHookErr()
}

func (m *Model) Row(name string, i int) (table.Row, error) {
	t, err := m.table(name)
	if err != nil {
		return nil, err
	}
	return t.Row(i)
}

// Rows returns copies of every row of a table, or nil for an unknown table.
func (m *Model) Rows(name string) []table.Row {
	t, ok := m.tables[name]
	if !ok {
		return nil
	}
	return t.Rows()
}

func (m *Model) AtomProperties(i int) (table.Row, error) { return m.Row(atomsTable, i) }

func (m *Model) Parts() []table.Row { return m.Rows(partsTable) }

// Capability reports whether a capability is enabled.
func (m *Model) Capability(name string) bool { return m.caps[name] }

// SetCapability enables or disables a capability, adding or dropping the
// gated columns and tables.
func (m *Model) SetCapability(name string, on bool) error {
	if !slices.Contains(m.eng.capabilities(), name) {
		return fmt.Errorf("%s model has no capability %q", m.eng.kind(), name)
	}
	if m.caps[name] == on {
		return nil
	}
	if on {
		m.caps[name] = true
	} else {
		delete(m.caps, name)
	}
	for _, n := range m.tableOrder {
		if on {
			m.tables[n].EnableCapability(name)
		} else {
			m.tables[n].DisableCapability(name)
		}
	}
	m.version = m.next()
	err := m.props.Invalidate(capabilityKey(name))
	m.emit(EventInvalidation)
	return errors.Join(err, m.takeHookErr())
}

// Start moves a stopped model to Running, freezing the per-run baseline.
func (m *Model) Start() error {
	if m.halted != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrHalted, m.halted)
	}
	if m.state == Running {
		return nil
	}
	m.props.Freeze()
	if m.history.Len() == 0 {
		m.push(m.capture())
	}
	m.state = Running
	m.log.Debug(context.Background(), "model started", logging.Float("time", m.time))
	m.emit(EventStart)
	return nil
}

func (m *Model) Stop() {
	if m.state != Running {
		return
	}
	m.state = Stopped
	m.log.Debug(context.Background(), "model stopped", logging.Float("time", m.time))
	m.emit(EventStop)
}

// Tick advances the model by timeStep × timeStepsPerTick. A non-finite
// result rolls the tick back, halts the model and returns a
// *dynamo.FatalIntegrationError.
func (m *Model) Tick() error {
	if m.halted != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrHalted, m.halted)
	}
	start := time.Now()

	for _, n := range m.tableOrder {
		if err := m.tables[n].Validate(); err != nil {
			return m.fail(err)
		}
	}

	pre := m.capture()
	dt := m.props.Float("timeStep")
	n := int(m.props.Float("timeStepsPerTick"))

	m.inTick = true
	for k := 0; k < n; k++ {
		if err := m.eng.step(m, m.time+float64(k)*dt, dt); err != nil {
			m.inTick = false
			m.restore(pre)
			return m.fail(err)
		}
	}
	m.inTick = false

	m.time += dt * float64(n)
	m.steps++
	m.push(pre)
	m.version = m.next()

	keys := []string{"time"}
	for _, name := range m.tableOrder {
		keys = append(keys, tableKey(name))
	}
	err := m.props.Invalidate(keys...)

	m.rec.TickDone(m.eng.kind(), time.Since(start))
	m.emit(EventTick)
	return err
}

func (m *Model) fail(err error) error {
	var fe *dynamo.FatalIntegrationError
	if !errors.As(err, &fe) {
		fe = &dynamo.FatalIntegrationError{Reason: err.Error(), Wrapped: err}
	}
	fe.Step, fe.Time = m.steps, m.time
	m.halted = fe
	m.state = Stopped
	m.rec.Fatal(m.eng.kind())
	m.log.Error(context.Background(), "integration failed", logging.Err(fe))
	return fe
}

// StepBack restores the state before the most recent tick. It is a no-op
// when there is no history.
func (m *Model) StepBack() error {
	snap, ok := m.history.Pop()
	if !ok {
		return nil
	}
	m.state = SteppingBack
	err := m.restore(snap)
	m.state = Stopped
	m.log.Debug(context.Background(), "stepped back", logging.Float("time", m.time))
	m.emit(EventStepBack)
	return err
}

// Reset restores the post-construction state with time 0, clears the halt
// flag and leaves the initial state as the only history entry.
func (m *Model) Reset() error {
	s0 := m.initial.Clone()
	s0.time, s0.steps = 0, 0
	m.halted = nil
	m.state = Stopped
	err := m.restore(s0)
	m.history.Reset(s0)
	m.log.Debug(context.Background(), "model reset")
	m.emit(EventReset)
	return err
}

func (m *Model) push(s *snapshot) {
	if top, ok := m.history.Peek(); ok && top.version == s.version {
		return
	}
	m.history.Push(s)
}

func (m *Model) capture() *snapshot {
	s := &snapshot{
		version: m.version,
		time:    m.time,
		steps:   m.steps,
		params:  m.props.Values(),
		caps:    maps.Clone(m.caps),
		tables:  make(map[string]*table.Table, len(m.tables)),
	}
	for name, t := range m.tables {
		s.tables[name] = t.Clone()
	}
	if es := m.eng.save(); es != nil {
		s.engine = es.clone()
	}
	return s
}

func (m *Model) restore(s *snapshot) error {
	m.time, m.steps, m.version = s.time, s.steps, s.version
	m.caps = maps.Clone(s.caps)
	if m.caps == nil {
		m.caps = make(map[string]bool)
	}
	for name, t := range s.tables {
		c := t.Clone()
		m.hook(name, c)
		m.tables[name] = c
	}
	var es engineState
	if s.engine != nil {
		es = s.engine.clone()
	}
	m.eng.restore(m, es)
	return m.props.Restore(s.params)
}
