package physics

import "math"

// Atoms are the columns of the atom table touched by quantum dynamics.
// Excitation is updated in place.
type Atoms struct {
	X, Y, VX, VY, Excitation []float64
}

type Photons struct {
	X, Y, VX, VY, Omega []float64
}

func (p *Photons) Len() int { return len(p.X) }

// Moving reports whether photon i propagates. Photons stopped by absorption
// stay in the table for one step and are hidden from serialized output.
func (p *Photons) Moving(i int) bool { return p.VX[i] != 0 || p.VY[i] != 0 }

func (p *Photons) add(x, y, vx, vy, w float64) {
	p.X = append(p.X, x)
	p.Y = append(p.Y, y)
	p.VX = append(p.VX, vx)
	p.VY = append(p.VY, vy)
	p.Omega = append(p.Omega, w)
}

func (p *Photons) filter(keep func(i int) bool) int {
	j := 0
	for i := range p.X {
		if !keep(i) {
			continue
		}
		p.X[j], p.Y[j], p.VX[j], p.VY[j], p.Omega[j] = p.X[i], p.Y[i], p.VX[i], p.VY[i], p.Omega[i]
		j++
	}
	dropped := len(p.X) - j
	p.X, p.Y, p.VX, p.VY, p.Omega = p.X[:j], p.Y[:j], p.VX[:j], p.VY[:j], p.Omega[:j]
	return dropped
}

// Quantum is the photon emission and absorption model.
type Quantum struct {
	Width, Height    float64
	PhotonSpeed      float64 // nm/fs
	AbsorptionRadius float64 // nm
	ExcitationEnergy float64 // eV
}

type QuantumStats struct {
	Dropped, Emitted, Absorbed int
}

// Frequency is the angular frequency of emitted photons in rad/fs.
func (q Quantum) Frequency() float64 { return q.ExcitationEnergy / Hbar }

// Step advances photons by dt:
//
//  1. photons stopped during the previous step, and photons outside the
//     box, are dropped;
//  2. every atom with excitation >= 1 emits one photon along its velocity
//     (along +x when at rest) and loses one level of excitation;
//  3. photons move by their velocity;
//  4. a moving photon within AbsorptionRadius of an atom is absorbed by the
//     lowest-index such atom, raising its excitation and stopping the photon.
func (q Quantum) Step(a Atoms, p *Photons, dt float64) QuantumStats {
	var st QuantumStats

	st.Dropped = p.filter(func(i int) bool {
		return p.Moving(i) && p.X[i] >= 0 && p.X[i] <= q.Width && p.Y[i] >= 0 && p.Y[i] <= q.Height
	})

	offset := q.AbsorptionRadius * 1.01
	if offset == 0 {
		offset = 1e-3
	}
	for i := range a.X {
		if a.Excitation[i] < 1 {
			continue
		}
		dx, dy := 1.0, 0.0
		if v := math.Hypot(a.VX[i], a.VY[i]); v > 0 {
			dx, dy = a.VX[i]/v, a.VY[i]/v
		}
		p.add(a.X[i]+dx*offset, a.Y[i]+dy*offset, dx*q.PhotonSpeed, dy*q.PhotonSpeed, q.Frequency())
		a.Excitation[i]--
		st.Emitted++
	}

	for i := range p.X {
		p.X[i] += p.VX[i] * dt
		p.Y[i] += p.VY[i] * dt
	}

	r2 := q.AbsorptionRadius * q.AbsorptionRadius
	for j := range p.X {
		if !p.Moving(j) {
			continue
		}
		for i := range a.X {
			dx, dy := p.X[j]-a.X[i], p.Y[j]-a.Y[i]
			if dx*dx+dy*dy <= r2 {
				a.Excitation[i]++
				p.VX[j], p.VY[j] = 0, 0
				st.Absorbed++
				break
			}
		}
	}
	return st
}
