package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/dynamo"
)

// halves splits a [positions..., velocities...] vector.
func halves(s dynamo.State) (pos, vel dynamo.State) {
	h := len(s) / 2
	return s[:h], s[h:]
}

// Verlet is velocity Verlet for states laid out as [positions..., velocities...].
// Accelerations are read from the velocity half of the derivative and must
// not depend on velocity.
type Verlet struct {
	probe dynamo.State
}

func NewVerlet() *Verlet { return &Verlet{} }

func (v *Verlet) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	if len(v.probe) != len(x) {
		v.probe = make(dynamo.State, len(x))
	}
	next := make(dynamo.State, len(x))
	pos, vel := halves(x)
	nextPos, nextVel := halves(next)
	_, acc := halves(sys.Derive(x, t))

	floats.AddScaledTo(nextPos, pos, dt, vel)
	floats.AddScaled(nextPos, dt*dt/2, acc)

	probePos, probeVel := halves(v.probe)
	copy(probePos, nextPos)
	copy(probeVel, vel)
	_, accNext := halves(sys.Derive(v.probe, t+dt))

	floats.AddScaledTo(nextVel, vel, dt/2, acc)
	floats.AddScaled(nextVel, dt/2, accNext)
	return next
}

// Leapfrog is the kick-drift-kick form, same layout as Verlet.
type Leapfrog struct {
	probe dynamo.State
}

func NewLeapfrog() *Leapfrog { return &Leapfrog{} }

func (l *Leapfrog) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	if len(l.probe) != len(x) {
		l.probe = make(dynamo.State, len(x))
	}
	next := make(dynamo.State, len(x))
	pos, vel := halves(x)
	nextPos, nextVel := halves(next)
	probePos, kicked := halves(l.probe)
	_, acc := halves(sys.Derive(x, t))

	floats.AddScaledTo(kicked, vel, dt/2, acc)
	floats.AddScaledTo(nextPos, pos, dt, kicked)
	copy(probePos, nextPos)

	_, accNext := halves(sys.Derive(l.probe, t+dt))
	floats.AddScaledTo(nextVel, kicked, dt/2, accNext)
	return next
}
