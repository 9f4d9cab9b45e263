package analysis

import (
	"context"
	"fmt"
	"maps"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/labsim/internal/sim"
)

// SweepPoint is the settled behaviour of an output at one parameter value.
type SweepPoint struct {
	Param  float64
	Values []float64 // distinct values seen after the transient
}

// Sweep builds a model from desc for each value of param, discards
// transient ticks, then records the distinct values output takes over the
// next record ticks.
func Sweep(ctx context.Context, desc sim.Description, param string, values []float64,
	output string, transient, record int, opts ...sim.Option) ([]SweepPoint, error) {

	results := make([]SweepPoint, 0, len(values))
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		d := maps.Clone(desc)
		m, err := sim.New(d, opts...)
		if err != nil {
			return nil, err
		}
		if err := m.Set(param, v); err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", param, v, err)
		}

		r := sim.NewRunner(m, 0, nil)
		if err := r.Advance(ctx, transient, nil); err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", param, v, err)
		}

		// distinct to 1e-3
		seen := make(map[int64]bool)
		point := SweepPoint{Param: v}
		err = r.Advance(ctx, record, func(m *sim.Model) error {
			got, err := m.Get(output)
			if err != nil {
				return err
			}
			f, ok := got.(float64)
			if !ok {
				return fmt.Errorf("sweep: output %q is %T, not a number", output, got)
			}
			key := int64(math.Round(f * 1000))
			if !seen[key] {
				seen[key] = true
				point.Values = append(point.Values, f)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", param, v, err)
		}
		results = append(results, point)
	}
	return results, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
