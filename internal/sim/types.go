package sim

import (
	"time"

	"github.com/san-kum/labsim/internal/logging"
)

type State int

const (
	Stopped State = iota
	Running
	SteppingBack
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case SteppingBack:
		return "stepping-back"
	}
	return "stopped"
}

// Event names a model lifecycle notification delivered to [Model.On]
// listeners.
type Event string

const (
	EventStart        Event = "start"
	EventStop         Event = "stop"
	EventTick         Event = "tick"
	EventReset        Event = "reset"
	EventStepBack     Event = "stepBack"
	EventInvalidation Event = "invalidation"
)

// Capability names.
const QuantumDynamics = "quantumDynamics"

// Recorder receives engine measurements. The observability package provides
// a Prometheus implementation.
type Recorder interface {
	TickDone(kind string, elapsed time.Duration)
	Lifecycle(kind string, event Event)
	Photons(kind string, emitted, absorbed int)
	Fatal(kind string)
}

type noopRecorder struct{}

func (noopRecorder) TickDone(string, time.Duration) {}
func (noopRecorder) Lifecycle(string, Event)        {}
func (noopRecorder) Photons(string, int, int)       {}
func (noopRecorder) Fatal(string)                   {}

type options struct {
	log          logging.Logger
	recorder     Recorder
	historyDepth int
	integrator   string
}

// Option configures a Model.
type Option func(*options)

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithHistoryDepth bounds the number of ticks that can be stepped back.
func WithHistoryDepth(n int) Option {
	return func(o *options) { o.historyDepth = n }
}

// WithIntegrator selects the particle integrator by name. Heat models always
// use explicit Euler.
func WithIntegrator(name string) Option {
	return func(o *options) { o.integrator = name }
}

const DefaultHistoryDepth = 100

func defaultOptions() options {
	return options{
		log:          logging.Noop(),
		recorder:     noopRecorder{},
		historyDepth: DefaultHistoryDepth,
		integrator:   "verlet",
	}
}
