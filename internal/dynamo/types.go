package dynamo

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// State is a packed vector of continuous degrees of freedom. Models pack
// their table columns into one before integrating and unpack afterwards.
type State []float64

func (s State) Clone() State { return append(State(nil), s...) }

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		// v-v is NaN exactly when v is NaN or ±Inf.
		if v-v != 0 {
			return false
		}
	}
	return true
}

// Norm is the Euclidean length of s.
func (s State) Norm() float64 { return floats.Norm(s, 2) }

// System is a first-order system whose derivative depends only on the
// current state and time.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Integrator advances x by one step of dt. Implementations return a new
// vector and leave x untouched.
type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// StepError locates an integration failure in model time.
type StepError struct {
	Time    float64
	Step    int
	Message string
}

func (e StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
