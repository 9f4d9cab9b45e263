package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/san-kum/labsim/internal/dynamo"
	"github.com/san-kum/labsim/internal/logging"
)

// Runner serializes access to a Model and drives its ticks from a timer
// while it is running.
type Runner struct {
	mu       sync.Mutex
	model    *Model
	interval time.Duration
	log      logging.Logger
}

func NewRunner(m *Model, interval time.Duration, log logging.Logger) *Runner {
	if log == nil {
		log = logging.Noop()
	}
	return &Runner{model: m, interval: interval, log: log}
}

// Do runs fn with exclusive access to the model.
func (r *Runner) Do(fn func(*Model) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.model)
}

// Run ticks the model every interval while it is Running, until ctx is
// done or a tick fails fatally. Observer errors are logged and do not stop
// the loop.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		err := r.Do(func(m *Model) error {
			if m.IsStopped() {
				return nil
			}
			return m.Tick()
		})
		if err == nil {
			continue
		}
		if errors.Is(err, dynamo.ErrFatalIntegration) || errors.Is(err, dynamo.ErrHalted) {
			r.log.Error(ctx, "runner stopped", logging.Err(err))
			return err
		}
		r.log.Warn(ctx, "tick reported errors", logging.Err(err))
	}
}

// Advance runs n ticks back to back, calling each after every tick. It
// stops early on cancellation, on a fatal error, or when each returns an
// error.
func (r *Runner) Advance(ctx context.Context, n int, each func(*Model) error) error {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := r.Do(func(m *Model) error {
			if err := m.Tick(); err != nil {
				if !isObserverOnly(err) {
					return err
				}
				r.log.Warn(ctx, "tick reported errors", logging.Err(err))
			}
			if each != nil {
				return each(m)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func isObserverOnly(err error) bool {
	return !errors.Is(err, dynamo.ErrFatalIntegration) && !errors.Is(err, dynamo.ErrHalted)
}
