package sim

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EnsembleResult summarizes one member of an ensemble run.
type EnsembleResult struct {
	Index   int
	Ticks   int
	Elapsed time.Duration
	Final   Description
}

// Ensemble runs independent copies of one description in parallel, one
// model per goroutine.
type Ensemble struct {
	desc    Description
	numRuns int
	opts    []Option
}

func NewEnsemble(d Description, numRuns int, opts ...Option) *Ensemble {
	return &Ensemble{desc: d, numRuns: numRuns, opts: opts}
}

func (e *Ensemble) Run(ctx context.Context, ticks int) ([]EnsembleResult, error) {
	results := make([]EnsembleResult, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			m, err := New(e.desc, e.opts...)
			if err != nil {
				errs[idx] = err
				return
			}
			start := time.Now()
			r := NewRunner(m, time.Millisecond, nil)
			if err := r.Advance(ctx, ticks, nil); err != nil {
				errs[idx] = fmt.Errorf("member %d: %w", idx, err)
				return
			}
			results[idx] = EnsembleResult{
				Index:   idx,
				Ticks:   m.Steps(),
				Elapsed: time.Since(start),
				Final:   m.Serialize(),
			}
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
