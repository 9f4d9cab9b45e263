package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/dynamo"
)

// RK4 is the classic fourth-order Runge-Kutta step. Stage buffers are kept
// between calls and reallocated only when the state size changes.
type RK4 struct {
	k     [4]dynamo.State
	probe dynamo.State
}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	if len(r.probe) != len(x) {
		for i := range r.k {
			r.k[i] = make(dynamo.State, len(x))
		}
		r.probe = make(dynamo.State, len(x))
	}

	// Stage i evaluates at x + c_i*dt*k_{i-1}.
	offsets := [4]float64{0, dt / 2, dt / 2, dt}
	copy(r.k[0], sys.Derive(x, t))
	for i := 1; i < 4; i++ {
		floats.AddScaledTo(r.probe, x, offsets[i], r.k[i-1])
		copy(r.k[i], sys.Derive(r.probe, t+offsets[i]))
	}

	next := x.Clone()
	for i, w := range [4]float64{1, 2, 2, 1} {
		floats.AddScaled(next, w*dt/6, r.k[i])
	}
	return next
}
