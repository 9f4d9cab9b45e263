package property

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/labsim/internal/dynamo"
)

// Validator checks a candidate value and returns it in normalized form.
// Numbers are normalized to float64.
type Validator func(v any) (any, error)

// Number accepts any finite number.
func Number() Validator {
	return func(v any) (any, error) {
		f, ok := dynamo.ToFloat(v)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.New("must be finite")
		}
		return f, nil
	}
}

// Range accepts finite numbers within [min, max].
func Range(min, max float64) Validator {
	return func(v any) (any, error) {
		n, err := Number()(v)
		if err != nil {
			return nil, err
		}
		f := n.(float64)
		if f < min || f > max {
			return nil, fmt.Errorf("must be within [%g, %g]", min, max)
		}
		return f, nil
	}
}

// Positive accepts finite numbers strictly greater than zero.
func Positive() Validator {
	return func(v any) (any, error) {
		n, err := Number()(v)
		if err != nil {
			return nil, err
		}
		if n.(float64) <= 0 {
			return nil, errors.New("must be > 0")
		}
		return n, nil
	}
}

func NonNegative() Validator {
	return func(v any) (any, error) {
		n, err := Number()(v)
		if err != nil {
			return nil, err
		}
		if n.(float64) < 0 {
			return nil, errors.New("must be >= 0")
		}
		return n, nil
	}
}

// IntegerAtLeast accepts whole numbers >= min.
func IntegerAtLeast(min int) Validator {
	return func(v any) (any, error) {
		n, err := Number()(v)
		if err != nil {
			return nil, err
		}
		f := n.(float64)
		if f != math.Trunc(f) {
			return nil, errors.New("must be an integer")
		}
		if f < float64(min) {
			return nil, fmt.Errorf("must be >= %d", min)
		}
		return f, nil
	}
}

func Bool() Validator {
	return func(v any) (any, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	}
}

// OneOf accepts one of the listed strings.
func OneOf(values ...string) Validator {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		if !slices.Contains(values, s) {
			return nil, fmt.Errorf("must be one of %v", values)
		}
		return s, nil
	}
}

// Any accepts numbers, booleans, strings and nil. It is the validator used
// for caller-defined parameters that declare no constraint.
func Any() Validator {
	return func(v any) (any, error) {
		switch t := v.(type) {
		case nil, bool, string:
			return t, nil
		}
		if f, ok := dynamo.ToFloat(v); ok {
			return f, nil
		}
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
