package sim

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/integrators"
	"github.com/san-kum/labsim/internal/physics"
	"github.com/san-kum/labsim/internal/property"
	"github.com/san-kum/labsim/internal/table"
)

const (
	partsTable   = "parts"
	sensorsTable = "sensors"
)

var energy2dParams = []paramSpec{
	{"timeStep", property.Description{Label: "Time step", Unit: "s", Period: property.PerRun}, property.Positive(), 1.0},
	{"timeStepsPerTick", property.Description{Label: "Time steps per tick", Period: property.PerRun}, property.IntegerAtLeast(1), 1.0},
	{"model_width", property.Description{Label: "Width", Unit: "m", Period: property.PerRun}, property.Positive(), 10.0},
	{"model_height", property.Description{Label: "Height", Unit: "m", Period: property.PerRun}, property.Positive(), 10.0},
	{"grid_width", property.Description{Label: "Grid columns", Period: property.PerRun}, property.IntegerAtLeast(2), 50.0},
	{"grid_height", property.Description{Label: "Grid rows", Period: property.PerRun}, property.IntegerAtLeast(2), 50.0},
	{"background_temperature", property.Description{Label: "Background temperature", Unit: "°C", Period: property.PerRun}, property.Number(), 0.0},
	{"background_conductivity", property.Description{Label: "Background conductivity", Unit: "W/(m·K)", Period: property.PerRun}, property.Positive(), 1.0},
}

// gridKey captures every parameter the painted grid depends on.
type gridKey struct {
	width, height   float64
	nx, ny          int
	ambient, kField float64
}

type heatState struct {
	key     gridKey
	field   dynamo.State
	evolved bool
}

func (s *heatState) clone() engineState {
	return &heatState{key: s.key, field: s.field.Clone(), evolved: s.evolved}
}

type energy2dEngine struct {
	grid  *physics.HeatGrid
	key   gridKey
	field dynamo.State
	euler *integrators.Euler

	// evolved is set once the field has been stepped; until then it is
	// repainted from the parts whenever they change.
	evolved bool
	dirty   bool
}

func newEnergy2D() *energy2dEngine {
	return &energy2dEngine{euler: integrators.NewEuler(), dirty: true}
}

func (e *energy2dEngine) kind() string           { return KindEnergy2D }
func (e *energy2dEngine) timeUnit() string       { return "s" }
func (e *energy2dEngine) capabilities() []string { return nil }

func (e *energy2dEngine) define(m *Model) error {
	if err := defineParams(m, energy2dParams); err != nil {
		return err
	}

	m.addTable(table.Schema{
		Name:   partsTable,
		Layout: table.Records,
		Columns: []table.Column{
			{Name: "shapeType", Kind: table.Text, Default: "rectangle", Immutable: true, OneOf: []string{"rectangle", "ellipse"}},
			{Name: "x", Kind: table.Float},
			{Name: "y", Kind: table.Float},
			{Name: "width", Kind: table.Float},
			{Name: "height", Kind: table.Float},
			{Name: "temperature", Kind: table.Float},
			{Name: "thermal_conductivity", Kind: table.Float, Default: 1.0, OmitDefault: true},
			{Name: "constant_temperature", Kind: table.Bool, Default: false, OmitDefault: true},
		},
	})
	m.addTable(table.Schema{
		Name:   sensorsTable,
		Layout: table.Records,
		Columns: []table.Column{
			{Name: "type", Kind: table.Text, Immutable: true, Required: true, OneOf: physics.SensorTypes},
			{Name: "x", Kind: table.Float},
			{Name: "y", Kind: table.Float},
			{Name: "angle", Kind: table.Float, Default: 0.0, OmitDefault: true},
		},
	})

	fieldDeps := append([]string{"time", tableKey(partsTable)}, paramNames(energy2dParams)...)
	outputs := []struct {
		name string
		desc property.Description
		deps []string
		fn   func() any
	}{
		{"averageTemperature", property.Description{Label: "Average temperature", Unit: "°C"}, fieldDeps,
			func() any {
				f := e.ensure(m)
				return floats.Sum(f) / float64(len(f))
			}},
		{"minTemperature", property.Description{Label: "Minimum temperature", Unit: "°C"}, fieldDeps,
			func() any { return floats.Min(e.ensure(m)) }},
		{"maxTemperature", property.Description{Label: "Maximum temperature", Unit: "°C"}, fieldDeps,
			func() any { return floats.Max(e.ensure(m)) }},
		{"sensorReading", property.Description{Label: "Sensor reading"}, append(fieldDeps, tableKey(sensorsTable)),
			func() any {
				r := e.readings(m)
				if len(r) == 0 {
					return 0.0
				}
				return r[0].Reading
			}},
	}
	for _, o := range outputs {
		if err := m.props.DefineOutput(o.name, o.desc, o.deps, o.fn); err != nil {
			return err
		}
	}
	return nil
}

func (e *energy2dEngine) currentKey(m *Model) gridKey {
	return gridKey{
		width:   m.props.Float("model_width"),
		height:  m.props.Float("model_height"),
		nx:      int(m.props.Float("grid_width")),
		ny:      int(m.props.Float("grid_height")),
		ambient: m.props.Float("background_temperature"),
		kField:  m.props.Float("background_conductivity"),
	}
}

func (e *energy2dEngine) parts(m *Model) []physics.Part {
	t := m.tables[partsTable]
	shape := t.Texts("shapeType")
	x, y := t.Column("x"), t.Column("y")
	w, h := t.Column("width"), t.Column("height")
	temp, k := t.Column("temperature"), t.Column("thermal_conductivity")
	fixed := t.Bools("constant_temperature")

	parts := make([]physics.Part, t.Len())
	for i := range parts {
		parts[i] = physics.Part{
			Shape: shape[i], X: x[i], Y: y[i], W: w[i], H: h[i],
			Temperature: temp[i], Conductivity: k[i], FixedTemperature: fixed[i],
		}
	}
	return parts
}

// ensure brings the grid in line with the parameters and parts and returns
// the current temperature field.
func (e *energy2dEngine) ensure(m *Model) dynamo.State {
	key := e.currentKey(m)
	if !e.dirty && e.grid != nil && key == e.key {
		return e.field
	}
	resized := e.grid == nil || key.nx != e.key.nx || key.ny != e.key.ny ||
		key.width != e.key.width || key.height != e.key.height
	if resized {
		e.grid = physics.NewHeatGrid(key.nx, key.ny, key.width, key.height)
	}
	parts := e.parts(m)
	if !e.evolved || resized || len(e.field) != e.grid.StateDim() {
		e.field = make(dynamo.State, e.grid.StateDim())
		e.grid.Paint(parts, key.kField, e.field, key.ambient)
		e.evolved = false
	} else {
		e.grid.Paint(parts, key.kField, nil, 0)
		e.grid.Pin(parts, e.field)
	}
	e.key = key
	e.dirty = false
	return e.field
}

// SensorView is a sensor row with its current reading.
type SensorView struct {
	Index   int
	Type    string
	X, Y    float64
	Angle   float64
	Reading float64
	Unit    string
}

func (e *energy2dEngine) readings(m *Model) []SensorView {
	t := m.tables[sensorsTable]
	if t.Len() == 0 {
		return nil
	}
	field := e.ensure(m)
	kinds := t.Texts("type")
	x, y, angle := t.Column("x"), t.Column("y"), t.Column("angle")

	out := make([]SensorView, t.Len())
	for i := range out {
		r, _ := physics.ReadSensor(e.grid, field, kinds[i], x[i], y[i], angle[i])
		out[i] = SensorView{
			Index: i, Type: kinds[i], X: x[i], Y: y[i], Angle: angle[i],
			Reading: r, Unit: physics.SensorUnit(kinds[i]),
		}
	}
	return out
}

// Sensors returns every sensor with a fresh reading. Models without sensors
// return nil.
func (m *Model) Sensors() []SensorView {
	e, ok := m.eng.(*energy2dEngine)
	if !ok {
		return nil
	}
	return e.readings(m)
}

// Field returns a copy of the temperature grid and its dimensions. Models
// without a grid return nil.
func (m *Model) Field() (dynamo.State, int, int) {
	e, ok := m.eng.(*energy2dEngine)
	if !ok {
		return nil, 0, 0
	}
	f := e.ensure(m)
	return f.Clone(), e.grid.NX, e.grid.NY
}

// syncSensorUnit keeps the sensorReading description in line with the type
// of the first sensor.
func (e *energy2dEngine) syncSensorUnit(m *Model) {
	desc := property.Description{Label: "Sensor reading"}
	if kinds := m.tables[sensorsTable].Texts("type"); len(kinds) > 0 {
		desc.Unit = physics.SensorUnit(kinds[0])
	}
	if err := m.props.SetDescription("sensorReading", desc); err != nil {
		m.hookErrs = append(m.hookErrs, err)
	}
}

func (e *energy2dEngine) load(m *Model, d Description) error {
	params := make(map[string]any)
	for k, v := range d {
		switch k {
		case "type", "time", "parameters", "structure", sensorsTable, "field":
			continue
		}
		if !slices.Contains(paramNames(energy2dParams), k) {
			return &dynamo.InvalidValueError{Property: k, Value: v, Reason: "not an energy2d parameter", Wrapped: dynamo.ErrUnknownProperty}
		}
		params[k] = v
	}
	if err := m.props.SetAll(params); err != nil {
		return err
	}

	if s, ok := d["structure"]; ok && s != nil {
		structure, ok := s.(map[string]any)
		if !ok {
			return &dynamo.SchemaMismatchError{Table: partsTable, Reason: "structure must be a mapping"}
		}
		if err := m.tables[partsTable].Decode(structure["part"]); err != nil {
			return err
		}
	}
	if err := m.tables[sensorsTable].Decode(d[sensorsTable]); err != nil {
		return err
	}

	e.ensure(m)
	if f, ok := d["field"]; ok && f != nil {
		return e.loadField(m, f)
	}
	return nil
}

func (e *energy2dEngine) loadField(m *Model, v any) error {
	stanza, ok := v.(map[string]any)
	if !ok {
		return &dynamo.SchemaMismatchError{Table: "field", Reason: fmt.Sprintf("expected mapping, got %T", v)}
	}
	tbl := table.New(table.Schema{Name: "field", Columns: []table.Column{{Name: "t", Kind: table.Float}}}, nil)
	if err := tbl.Decode(map[string]any{"t": stanza["t"]}); err != nil {
		return err
	}
	t := tbl.Column("t")
	if len(t) != e.grid.StateDim() {
		return &dynamo.SchemaMismatchError{Table: "field", Column: "t", Reason: fmt.Sprintf("has %d cells, grid has %d", len(t), e.grid.StateDim())}
	}
	e.field = dynamo.State(slices.Clone(t))
	e.grid.Pin(e.parts(m), e.field)
	e.evolved = true
	return nil
}

func (e *energy2dEngine) step(m *Model, t, dt float64) error {
	field := e.ensure(m)
	next, _ := e.grid.Advance(e.euler, field, t, dt)
	if !next.IsValid() {
		return &dynamo.FatalIntegrationError{Reason: "non-finite temperature", Wrapped: dynamo.ErrInvalidState}
	}
	e.field = next
	e.evolved = true
	return nil
}

func (e *energy2dEngine) encode(m *Model, d Description) {
	for _, name := range paramNames(energy2dParams) {
		d[name], _ = m.props.Get(name)
	}
	if parts := m.tables[partsTable]; parts.Len() > 0 {
		d["structure"] = map[string]any{"part": parts.Encode(nil)}
	}
	if sensors := m.tables[sensorsTable]; sensors.Len() > 0 {
		d[sensorsTable] = sensors.Encode(nil)
	}
	if e.evolved {
		f := e.ensure(m)
		d["field"] = map[string]any{"t": []float64(f.Clone())}
	}
}

func (e *energy2dEngine) tableChanged(m *Model, name string) {
	switch name {
	case partsTable:
		e.dirty = true
	case sensorsTable:
		e.syncSensorUnit(m)
	}
}

func (e *energy2dEngine) save() engineState {
	return &heatState{key: e.key, field: e.field, evolved: e.evolved}
}

func (e *energy2dEngine) restore(m *Model, s engineState) {
	e.field, e.evolved = nil, false
	if hs, ok := s.(*heatState); ok {
		e.field, e.evolved = hs.field, hs.evolved
		// The field belongs to the grid it was stepped on.
		if hs.evolved && hs.key != e.key {
			e.key = hs.key
			e.grid = physics.NewHeatGrid(hs.key.nx, hs.key.ny, hs.key.width, hs.key.height)
		}
	}
	e.dirty = true
	e.syncSensorUnit(m)
}
