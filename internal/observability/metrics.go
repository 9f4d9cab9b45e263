// Package observability exposes simulation activity as Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/labsim/internal/sim"
)

// SimCollector records model ticks, lifecycle events and photon traffic.
// It implements sim.Recorder.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks           *prometheus.CounterVec
	TickDurations   *prometheus.HistogramVec
	Events          *prometheus.CounterVec
	PhotonsEmitted  *prometheus.CounterVec
	PhotonsAbsorbed *prometheus.CounterVec
	FatalErrors     *prometheus.CounterVec
	ActiveRuns      prometheus.Gauge
}

var _ sim.Recorder = (*SimCollector)(nil)

// NewSimCollector registers simulation metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labsim_ticks_total",
		Help: "Completed model ticks, labeled by model type.",
	}, []string{"kind"}), "labsim_ticks_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "labsim_tick_duration_seconds",
		Help:    "Wall-clock duration of one model tick.",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"kind"}), "labsim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	events, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labsim_lifecycle_events_total",
		Help: "Model lifecycle events, labeled by model type and event.",
	}, []string{"kind", "event"}), "labsim_lifecycle_events_total")
	if err != nil {
		return nil, err
	}

	emitted, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labsim_photons_emitted_total",
		Help: "Photons emitted by excited atoms.",
	}, []string{"kind"}), "labsim_photons_emitted_total")
	if err != nil {
		return nil, err
	}

	absorbed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labsim_photons_absorbed_total",
		Help: "Photons absorbed by atoms.",
	}, []string{"kind"}), "labsim_photons_absorbed_total")
	if err != nil {
		return nil, err
	}

	fatal, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "labsim_fatal_errors_total",
		Help: "Ticks that halted a model with a fatal integration error.",
	}, []string{"kind"}), "labsim_fatal_errors_total")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "labsim_active_runs",
		Help: "Models currently being driven by a runner.",
	}), "labsim_active_runs")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:        gatherer,
		Ticks:           ticks,
		TickDurations:   durations,
		Events:          events,
		PhotonsEmitted:  emitted,
		PhotonsAbsorbed: absorbed,
		FatalErrors:     fatal,
		ActiveRuns:      active,
	}, nil
}

func (c *SimCollector) TickDone(kind string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(kind).Inc()
	c.TickDurations.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (c *SimCollector) Lifecycle(kind string, ev sim.Event) {
	if c == nil {
		return
	}
	c.Events.WithLabelValues(kind, string(ev)).Inc()
}

func (c *SimCollector) Photons(kind string, emitted, absorbed int) {
	if c == nil {
		return
	}
	if emitted > 0 {
		c.PhotonsEmitted.WithLabelValues(kind).Add(float64(emitted))
	}
	if absorbed > 0 {
		c.PhotonsAbsorbed.WithLabelValues(kind).Add(float64(absorbed))
	}
}

func (c *SimCollector) Fatal(kind string) {
	if c == nil {
		return
	}
	c.FatalErrors.WithLabelValues(kind).Inc()
}

// RunStarted and RunFinished bracket a runner's lifetime.
func (c *SimCollector) RunStarted() {
	if c != nil {
		c.ActiveRuns.Inc()
	}
}

func (c *SimCollector) RunFinished() {
	if c != nil {
		c.ActiveRuns.Dec()
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
