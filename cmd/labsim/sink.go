package main

import (
	"context"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/metrics"
	"github.com/san-kum/labsim/internal/sim"
	"github.com/san-kum/labsim/internal/storage"
)

// runSink receives exported data and saves it, with the model's canonical
// form, as a run.
type runSink struct {
	store  storage.Store
	model  *sim.Model
	preset string
	saved  []string
}

var _ export.Sink = (*runSink)(nil)

func (s *runSink) CanExportData() bool { return s.store != nil }

func (s *runSink) ExportData(_ []export.Label, _ []any, perTickLabels []export.Label, perTickValues [][]float64) error {
	series := export.Series{Labels: perTickLabels, Points: perTickValues}.Clone()
	run := &storage.Run{
		Metadata: storage.Metadata{
			Kind:    s.model.Kind(),
			Preset:  s.preset,
			Ticks:   s.model.Steps(),
			Time:    s.model.Time(),
			Metrics: metrics.Summarize(series, metrics.Defaults(series)...),
		},
		Model:  s.model.Serialize(),
		Series: series,
	}
	id, err := s.store.Save(context.Background(), run)
	if err != nil {
		return err
	}
	s.saved = append(s.saved, id)
	return nil
}

// last returns the ID of the most recent save.
func (s *runSink) last() string {
	if len(s.saved) == 0 {
		return ""
	}
	return s.saved[len(s.saved)-1]
}
