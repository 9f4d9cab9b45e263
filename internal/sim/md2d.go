package sim

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/physics"
	"github.com/san-kum/labsim/internal/property"
	"github.com/san-kum/labsim/internal/table"
)

const (
	atomsTable   = "atoms"
	photonsTable = "photons"
)

// DefaultAtomMass is the mass of argon in amu.
const DefaultAtomMass = 39.95

type paramSpec struct {
	name     string
	desc     property.Description
	validate property.Validator
	initial  any
}

var md2dParams = []paramSpec{
	{"width", property.Description{Label: "Width", Unit: "nm", Period: property.PerRun}, property.Positive(), 10.0},
	{"height", property.Description{Label: "Height", Unit: "nm", Period: property.PerRun}, property.Positive(), 10.0},
	{"timeStep", property.Description{Label: "Time step", Unit: "fs", Period: property.PerRun}, property.Positive(), 1.0},
	{"timeStepsPerTick", property.Description{Label: "Time steps per tick", Period: property.PerRun}, property.IntegerAtLeast(1), 1.0},
	{"lennardJonesForces", property.Description{Label: "Lennard-Jones forces", Period: property.PerRun}, property.Bool(), true},
	{"epsilon", property.Description{Label: "Well depth", Unit: "eV", Period: property.PerRun}, property.Positive(), 0.0103},
	{"sigma", property.Description{Label: "Atom diameter", Unit: "nm", Period: property.PerRun}, property.Positive(), 0.34},
	{"gravitationalField", property.Description{Label: "Gravitational field", Unit: "nm/fs²", Period: property.PerRun}, property.NonNegative(), 0.0},
	{"temperatureControl", property.Description{Label: "Heat bath", Period: property.PerRun}, property.Bool(), false},
	{"targetTemperature", property.Description{Label: "Heat bath temperature", Unit: "K", Period: property.PerRun}, property.NonNegative(), 300.0},
}

// Quantum dynamics parameters live in the "quantumDynamics" stanza of a
// description.
var quantumParams = []paramSpec{
	{"excitationEnergy", property.Description{Label: "Excitation energy", Unit: "eV", Period: property.PerRun}, property.Positive(), 2.0},
	{"photonSpeed", property.Description{Label: "Photon speed", Unit: "nm/fs", Period: property.PerRun}, property.Positive(), 0.1},
	{"absorptionRadius", property.Description{Label: "Absorption radius", Unit: "nm", Period: property.PerRun}, property.Positive(), 0.2},
}

func defineParams(m *Model, specs []paramSpec) error {
	for _, p := range specs {
		if err := m.props.DefineParameter(p.name, p.desc, p.validate, p.initial); err != nil {
			return err
		}
	}
	return nil
}

func paramNames(specs []paramSpec) []string {
	names := make([]string, len(specs))
	for i, p := range specs {
		names[i] = p.name
	}
	return names
}

type md2dEngine struct {
	pool *statePool
}

func newMD2D() *md2dEngine { return &md2dEngine{} }

func (e *md2dEngine) kind() string           { return KindMD2D }
func (e *md2dEngine) timeUnit() string       { return "fs" }
func (e *md2dEngine) capabilities() []string { return []string{QuantumDynamics} }

func (e *md2dEngine) define(m *Model) error {
	if err := defineParams(m, md2dParams); err != nil {
		return err
	}
	if err := defineParams(m, quantumParams); err != nil {
		return err
	}

	m.addTable(table.Schema{
		Name: atomsTable,
		Columns: []table.Column{
			{Name: "x", Kind: table.Float},
			{Name: "y", Kind: table.Float},
			{Name: "vx", Kind: table.Float},
			{Name: "vy", Kind: table.Float},
			{Name: "mass", Kind: table.Float, Default: DefaultAtomMass},
			{Name: "excitation", Kind: table.Float, Default: 0.0, Capability: QuantumDynamics},
		},
	})
	m.addTable(table.Schema{
		Name:       photonsTable,
		Capability: QuantumDynamics,
		Columns: []table.Column{
			{Name: "x", Kind: table.Float},
			{Name: "y", Kind: table.Float},
			{Name: "vx", Kind: table.Float},
			{Name: "vy", Kind: table.Float},
			{Name: "angularFrequency", Kind: table.Float},
		},
	})

	atoms := func() *table.Table { return m.tables[atomsTable] }
	photons := func() *table.Table { return m.tables[photonsTable] }

	outputs := []struct {
		name string
		desc property.Description
		deps []string
		fn   func() any
	}{
		{"useQuantumDynamics", property.Description{Label: "Quantum dynamics", Period: property.PerRun},
			[]string{capabilityKey(QuantumDynamics)},
			func() any { return m.caps[QuantumDynamics] }},
		{"numAtoms", property.Description{Label: "Number of atoms"},
			[]string{tableKey(atomsTable)},
			func() any { return float64(atoms().Len()) }},
		{"numPhotons", property.Description{Label: "Number of photons"},
			[]string{tableKey(photonsTable), capabilityKey(QuantumDynamics)},
			func() any { return float64(movingPhotons(photons())) }},
		{"kineticEnergy", property.Description{Label: "Kinetic energy", Unit: "eV"},
			[]string{tableKey(atomsTable)},
			func() any {
				a := atoms()
				return physics.KineticEnergy(a.Column("mass"), a.Column("vx"), a.Column("vy"))
			}},
		{"potentialEnergy", property.Description{Label: "Potential energy", Unit: "eV"},
			[]string{tableKey(atomsTable), "lennardJonesForces", "epsilon", "sigma", "gravitationalField"},
			func() any {
				a := atoms()
				sys := e.system(m)
				return sys.PotentialEnergy(physics.Pack(a.Column("x"), a.Column("y"), a.Column("vx"), a.Column("vy")))
			}},
		{"totalEnergy", property.Description{Label: "Total energy", Unit: "eV"},
			[]string{"kineticEnergy", "potentialEnergy"},
			func() any { return m.props.Float("kineticEnergy") + m.props.Float("potentialEnergy") }},
		{"temperature", property.Description{Label: "Temperature", Unit: "K"},
			[]string{"kineticEnergy", "numAtoms"},
			func() any {
				return physics.Temperature(m.props.Float("kineticEnergy"), int(m.props.Float("numAtoms")))
			}},
		{"totalExcitation", property.Description{Label: "Total excitation"},
			[]string{tableKey(atomsTable), capabilityKey(QuantumDynamics)},
			func() any {
				if col := atoms().Column("excitation"); len(col) > 0 {
					return floats.Sum(col)
				}
				return 0.0
			}},
	}
	for _, o := range outputs {
		if err := m.props.DefineOutput(o.name, o.desc, o.deps, o.fn); err != nil {
			return err
		}
	}
	return nil
}

func movingPhotons(t *table.Table) int {
	vx, vy := t.Column("vx"), t.Column("vy")
	n := 0
	for i := range vx {
		if vx[i] != 0 || vy[i] != 0 {
			n++
		}
	}
	return n
}

func (e *md2dEngine) system(m *Model) *physics.MD2D {
	return &physics.MD2D{
		Width:        m.props.Float("width"),
		Height:       m.props.Float("height"),
		Epsilon:      m.props.Float("epsilon"),
		Sigma:        m.props.Float("sigma"),
		LennardJones: m.props.Bool("lennardJonesForces"),
		Gravity:      m.props.Float("gravitationalField"),
		Mass:         m.tables[atomsTable].Column("mass"),
	}
}

func (e *md2dEngine) load(m *Model, d Description) error {
	params := make(map[string]any)
	for k, v := range d {
		switch k {
		case "type", "time", "parameters", atomsTable, QuantumDynamics:
			continue
		}
		if !slices.Contains(paramNames(md2dParams), k) {
			return &dynamo.InvalidValueError{Property: k, Value: v, Reason: "not a md2d parameter", Wrapped: dynamo.ErrUnknownProperty}
		}
		params[k] = v
	}

	var photons any
	if qd, ok := d[QuantumDynamics]; ok && qd != nil {
		stanza, ok := qd.(map[string]any)
		if !ok {
			return &dynamo.InvalidValueError{Property: QuantumDynamics, Value: qd, Reason: "must be a mapping or null"}
		}
		for k, v := range stanza {
			if k == photonsTable {
				photons = v
				continue
			}
			if !slices.Contains(paramNames(quantumParams), k) {
				return &dynamo.InvalidValueError{Property: QuantumDynamics + "." + k, Value: v, Reason: "not a quantum dynamics parameter", Wrapped: dynamo.ErrUnknownProperty}
			}
			params[k] = v
		}
		m.caps[QuantumDynamics] = true
		for _, name := range m.tableOrder {
			m.tables[name].EnableCapability(QuantumDynamics)
		}
	}

	if err := m.props.SetAll(params); err != nil {
		return err
	}
	if err := m.tables[atomsTable].Decode(d[atomsTable]); err != nil {
		return err
	}
	if photons != nil {
		if err := m.tables[photonsTable].Decode(photons); err != nil {
			return err
		}
	}
	return nil
}

func (e *md2dEngine) step(m *Model, t, dt float64) error {
	atoms := m.tables[atomsTable]
	x, y := atoms.Column("x"), atoms.Column("y")
	vx, vy := atoms.Column("vx"), atoms.Column("vy")
	n := atoms.Len()

	if n > 0 {
		sys := e.system(m)
		if e.pool == nil || e.pool.dim != sys.StateDim() {
			e.pool = newStatePool(sys.StateDim())
		}
		buf := e.pool.get()
		s := *buf
		copy(s[:n], x)
		copy(s[n:2*n], y)
		copy(s[2*n:3*n], vx)
		copy(s[3*n:], vy)

		next := m.integ.Step(sys, s, t, dt)
		e.pool.put(buf)
		if !next.IsValid() {
			return &dynamo.FatalIntegrationError{Reason: "non-finite atom state", Wrapped: dynamo.ErrInvalidState}
		}
		sys.Reflect(next)
		physics.Unpack(next, x, y, vx, vy)

		if m.props.Bool("temperatureControl") {
			physics.Rescale(sys.Mass, vx, vy, m.props.Float("targetTemperature"))
		}
	}

	if !m.caps[QuantumDynamics] {
		return nil
	}
	return e.stepQuantum(m, dt)
}

func (e *md2dEngine) stepQuantum(m *Model, dt float64) error {
	atoms, ph := m.tables[atomsTable], m.tables[photonsTable]
	q := physics.Quantum{
		Width:            m.props.Float("width"),
		Height:           m.props.Float("height"),
		PhotonSpeed:      m.props.Float("photonSpeed"),
		AbsorptionRadius: m.props.Float("absorptionRadius"),
		ExcitationEnergy: m.props.Float("excitationEnergy"),
	}
	view := physics.Atoms{
		X: atoms.Column("x"), Y: atoms.Column("y"),
		VX: atoms.Column("vx"), VY: atoms.Column("vy"),
		Excitation: atoms.Column("excitation"),
	}
	p := physics.Photons{
		X:     slices.Clone(ph.Column("x")),
		Y:     slices.Clone(ph.Column("y")),
		VX:    slices.Clone(ph.Column("vx")),
		VY:    slices.Clone(ph.Column("vy")),
		Omega: slices.Clone(ph.Column("angularFrequency")),
	}

	st := q.Step(view, &p, dt)
	m.rec.Photons(KindMD2D, st.Emitted, st.Absorbed)

	ph.RemoveRows(func(int) bool { return true })
	if p.Len() == 0 {
		return nil
	}
	if err := ph.CreateRows(map[string]any{
		"x": p.X, "y": p.Y, "vx": p.VX, "vy": p.VY, "angularFrequency": p.Omega,
	}); err != nil {
		return &dynamo.FatalIntegrationError{Reason: fmt.Sprintf("photon update: %v", err), Wrapped: err}
	}
	return nil
}

func (e *md2dEngine) encode(m *Model, d Description) {
	for _, name := range paramNames(md2dParams) {
		d[name], _ = m.props.Get(name)
	}
	d[atomsTable] = m.tables[atomsTable].Encode(nil)

	if !m.caps[QuantumDynamics] {
		return
	}
	stanza := make(map[string]any)
	for _, name := range paramNames(quantumParams) {
		stanza[name], _ = m.props.Get(name)
	}
	ph := m.tables[photonsTable]
	vx, vy := ph.Column("vx"), ph.Column("vy")
	stanza[photonsTable] = ph.Encode(func(i int) bool { return vx[i] != 0 || vy[i] != 0 })
	d[QuantumDynamics] = stanza
}

func (e *md2dEngine) tableChanged(*Model, string) {}

func (e *md2dEngine) save() engineState { return nil }

func (e *md2dEngine) restore(*Model, engineState) {}
