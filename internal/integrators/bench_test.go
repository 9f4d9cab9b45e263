package integrators

import (
	"testing"

	"github.com/san-kum/labsim/internal/dynamo"
)

func benchmark(b *testing.B, integ dynamo.Integrator) {
	x := dynamo.State{1.0, 0.0}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(oscillator{}, x, 0, 0.01)
	}
}

func BenchmarkEuler(b *testing.B)    { benchmark(b, NewEuler()) }
func BenchmarkRK4(b *testing.B)      { benchmark(b, NewRK4()) }
func BenchmarkVerlet(b *testing.B)   { benchmark(b, NewVerlet()) }
func BenchmarkLeapfrog(b *testing.B) { benchmark(b, NewLeapfrog()) }
