package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/labsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"verlet":   func() dynamo.Integrator { return NewVerlet() },
	"leapfrog": func() dynamo.Integrator { return NewLeapfrog() },
	"rk4":      func() dynamo.Integrator { return NewRK4() },
	"euler":    func() dynamo.Integrator { return NewEuler() },
}

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q (available: %v)", name, Names())
	}
	return f(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
