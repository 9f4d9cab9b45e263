package metrics

import "math"

// Mean is the time average of one column.
type Mean struct {
	name string
	col  int
	acc  float64
	n    int
}

func NewMean(name string, col int) *Mean { return &Mean{name: name, col: col} }

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(p []float64) {
	if m.col < len(p) {
		m.acc += p[m.col]
		m.n++
	}
}

func (m *Mean) Value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.acc / float64(m.n)
}

func (m *Mean) Reset() { m.acc, m.n = 0, 0 }

// EnergyDrift is the largest relative deviation of a conserved column from
// its first value. A zero reference yields zero drift.
type EnergyDrift struct {
	col     int
	ref     float64
	started bool
	worst   float64
}

func NewEnergyDrift(col int) *EnergyDrift { return &EnergyDrift{col: col} }

func (*EnergyDrift) Name() string { return "energy_drift" }

func (d *EnergyDrift) Observe(p []float64) {
	if d.col >= len(p) {
		return
	}
	if !d.started {
		d.ref, d.started = p[d.col], true
	}
	if d.ref == 0 {
		return
	}
	d.worst = math.Max(d.worst, math.Abs(p[d.col]/d.ref-1))
}

func (d *EnergyDrift) Value() float64 { return d.worst }

func (d *EnergyDrift) Reset() { *d = EnergyDrift{col: d.col} }
