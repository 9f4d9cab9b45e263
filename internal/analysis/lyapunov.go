package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/labsim/internal/sim"
)

// LyapunovExponent estimates the largest Lyapunov exponent of the atom
// trajectories of an md2d description, per unit of model time, using the
// trajectory separation method:
//
//  1. Run two copies, the second with atom 0 displaced by perturbation
//  2. Measure the separation of all atom positions after every tick
//  3. λ ≈ mean(ln(|δx(t)|/|δx(0)|)) / tick length, renormalizing the copy
//     whenever the separation grows past the atom diameter
func LyapunovExponent(ctx context.Context, desc sim.Description, perturbation float64, ticks int, opts ...sim.Option) (float64, error) {
	if perturbation <= 0 {
		return 0, errors.New("analysis: perturbation must be positive")
	}
	a, err := sim.New(desc, opts...)
	if err != nil {
		return 0, err
	}
	if a.Kind() != sim.KindMD2D {
		return 0, fmt.Errorf("analysis: lyapunov exponent needs an md2d model, got %s", a.Kind())
	}
	b, err := sim.Deserialize(a.Serialize(), opts...)
	if err != nil {
		return 0, err
	}
	if len(b.Rows("atoms")) == 0 {
		return 0, errors.New("analysis: model has no atoms")
	}
	x0, _ := b.Row("atoms", 0)
	if err := b.SetField("atoms", 0, "x", x0["x"].(float64)+perturbation); err != nil {
		return 0, err
	}

	limit, _ := a.Get("sigma")
	d0 := perturbation
	sumLog := 0.0
	count := 0

	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := a.Tick(); err != nil {
			return 0, err
		}
		if err := b.Tick(); err != nil {
			return 0, err
		}

		sep := separation(a, b)
		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}

		// Renormalize to keep the copies in the linear regime
		if sep > limit.(float64) {
			if err := renormalize(a, b, d0/sep); err != nil {
				return 0, err
			}
		}
	}

	if count == 0 {
		return 0, nil
	}
	dt := a.Time() / float64(ticks)
	return sumLog / (float64(count) * dt), nil
}

func separation(a, b *sim.Model) float64 {
	ra, rb := a.Rows("atoms"), b.Rows("atoms")
	sum := 0.0
	for i := range ra {
		dx := rb[i]["x"].(float64) - ra[i]["x"].(float64)
		dy := rb[i]["y"].(float64) - ra[i]["y"].(float64)
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum)
}

func renormalize(a, b *sim.Model, scale float64) error {
	ra, rb := a.Rows("atoms"), b.Rows("atoms")
	for i := range ra {
		for _, f := range []string{"x", "y", "vx", "vy"} {
			av := ra[i][f].(float64)
			if err := b.SetField("atoms", i, f, av+(rb[i][f].(float64)-av)*scale); err != nil {
				return err
			}
		}
	}
	return nil
}
