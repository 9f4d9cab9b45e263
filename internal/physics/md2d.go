package physics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/dynamo"
)

// CutoffFactor times sigma is the Lennard-Jones cutoff radius.
const CutoffFactor = 2.5

// MD2D is a two-dimensional Lennard-Jones particle system.
type MD2D struct {
	Width, Height  float64
	Epsilon, Sigma float64 // eV, nm
	LennardJones   bool
	Gravity        float64 // nm/fs², pulls towards y = 0
	Mass           []float64
}

func (m *MD2D) N() int        { return len(m.Mass) }
func (m *MD2D) StateDim() int { return 4 * m.N() }

// Pack builds a state vector from atom columns.
func Pack(x, y, vx, vy []float64) dynamo.State {
	n := len(x)
	s := make(dynamo.State, 4*n)
	copy(s[:n], x)
	copy(s[n:2*n], y)
	copy(s[2*n:3*n], vx)
	copy(s[3*n:], vy)
	return s
}

// Unpack copies a state vector back into atom columns.
func Unpack(s dynamo.State, x, y, vx, vy []float64) {
	n := len(x)
	copy(x, s[:n])
	copy(y, s[n:2*n])
	copy(vx, s[2*n:3*n])
	copy(vy, s[3*n:])
}

func (m *MD2D) Derive(s dynamo.State, _ float64) dynamo.State {
	n := m.N()
	d := make(dynamo.State, 4*n)
	copy(d[:2*n], s[2*n:])

	ax, ay := d[2*n:3*n], d[3*n:]
	if m.LennardJones {
		m.pairForces(s, ax, ay)
	}
	for i := 0; i < n; i++ {
		k := AccelConversion / m.Mass[i]
		ax[i] *= k
		ay[i] = ay[i]*k - m.Gravity
	}
	return d
}

// pairForces accumulates Lennard-Jones forces in eV/nm. Coincident atoms
// yield NaN, which the caller treats as fatal.
func (m *MD2D) pairForces(s dynamo.State, fx, fy []float64) {
	n := m.N()
	rc := CutoffFactor * m.Sigma
	rc2 := rc * rc
	sig2 := m.Sigma * m.Sigma

	for i := 0; i < n; i++ {
		xi, yi := s[i], s[n+i]
		for j := i + 1; j < n; j++ {
			dx := xi - s[j]
			dy := yi - s[n+j]
			r2 := dx*dx + dy*dy
			if r2 > rc2 {
				continue
			}
			sr2 := sig2 / r2
			sr6 := sr2 * sr2 * sr2
			f := 24 * m.Epsilon * sr6 * (2*sr6 - 1) / r2
			fx[i] += f * dx
			fy[i] += f * dy
			fx[j] -= f * dx
			fy[j] -= f * dy
		}
	}
}

// Reflect folds atoms that left the box back inside and reverses the
// offending velocity component.
func (m *MD2D) Reflect(s dynamo.State) {
	n := m.N()
	reflect := func(pos, vel *float64, hi float64) {
		switch {
		case *pos < 0:
			*pos = math.Min(-*pos, hi)
			*vel = -*vel
		case *pos > hi:
			*pos = math.Max(2*hi-*pos, 0)
			*vel = -*vel
		}
	}
	for i := 0; i < n; i++ {
		reflect(&s[i], &s[2*n+i], m.Width)
		reflect(&s[n+i], &s[3*n+i], m.Height)
	}
}

// KineticEnergy returns the total kinetic energy in eV.
func KineticEnergy(mass, vx, vy []float64) float64 {
	if len(mass) == 0 {
		return 0
	}
	v2 := make([]float64, len(vx))
	floats.MulTo(v2, vx, vx)
	vy2 := make([]float64, len(vy))
	floats.MulTo(vy2, vy, vy)
	floats.Add(v2, vy2)
	return 0.5 * floats.Dot(mass, v2) * KEConversion
}

// PotentialEnergy returns the Lennard-Jones plus gravitational energy in eV.
func (m *MD2D) PotentialEnergy(s dynamo.State) float64 {
	n := m.N()
	pe := 0.0
	if m.LennardJones {
		rc := CutoffFactor * m.Sigma
		rc2 := rc * rc
		sig2 := m.Sigma * m.Sigma
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := s[i] - s[j]
				dy := s[n+i] - s[n+j]
				r2 := dx*dx + dy*dy
				if r2 > rc2 {
					continue
				}
				sr6 := math.Pow(sig2/r2, 3)
				pe += 4 * m.Epsilon * (sr6*sr6 - sr6)
			}
		}
	}
	if m.Gravity != 0 {
		pe += m.Gravity * floats.Dot(m.Mass, s[n:2*n]) / AccelConversion
	}
	return pe
}

// Temperature of n atoms with two degrees of freedom each, in K.
func Temperature(ke float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return ke / (float64(n) * Boltzmann)
}

// Rescale multiplies every velocity so that the kinetic temperature becomes
// target. Atoms at rest are left alone.
func Rescale(mass, vx, vy []float64, target float64) {
	t := Temperature(KineticEnergy(mass, vx, vy), len(mass))
	if t <= 0 || target < 0 {
		return
	}
	k := math.Sqrt(target / t)
	floats.Scale(k, vx)
	floats.Scale(k, vy)
}
