package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/dynamo"
)

// Euler is the explicit forward step. Applied to a discretized diffusion
// operator it gives the FTCS scheme.
type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (*Euler) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	next := x.Clone()
	floats.AddScaled(next, dt, sys.Derive(x, t))
	return next
}
