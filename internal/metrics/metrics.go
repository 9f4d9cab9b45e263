// Package metrics summarizes an exported time series into scalar run
// statistics.
package metrics

import "github.com/san-kum/labsim/internal/export"

// Metric accumulates one statistic over the points of a series. Each
// point holds time first, then the per-tick values.
type Metric interface {
	Name() string
	Observe(point []float64)
	Value() float64
	Reset()
}

// Summarize feeds every point of s through each metric and returns the
// results by name.
func Summarize(s export.Series, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for _, p := range s.Points {
			m.Observe(p)
		}
		out[m.Name()] = m.Value()
	}
	return out
}

// Defaults returns the standard run summary for s: drift and mean of the
// total energy when it is exported, and the fraction of finite points.
func Defaults(s export.Series) []Metric {
	ms := []Metric{NewStability(1e12)}
	if i := s.Index("Total energy"); i > 0 {
		ms = append(ms, NewEnergyDrift(i), NewMean("mean_total_energy", i))
	}
	if i := s.Index("Temperature"); i > 0 {
		ms = append(ms, NewMean("mean_temperature", i))
	}
	if i := s.Index("Average temperature"); i > 0 {
		ms = append(ms, NewEnergyDrift(i))
	}
	return ms
}
