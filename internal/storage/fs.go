package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/sim"
)

// FS keeps one directory per run holding metadata.json, model.json and
// series.csv.
type FS struct {
	baseDir string
}

func NewFS(baseDir string) (*FS, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FS{baseDir: baseDir}, nil
}

func (s *FS) Close() error { return nil }

func (s *FS) Save(ctx context.Context, run *Run) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prepare(run)
	runDir := filepath.Join(s.baseDir, run.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), run.Metadata); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "model.json"), run.Model); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, "series.csv"), run.Series); err != nil {
		return "", err
	}
	return run.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSeries(path string, s export.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := make([]string, len(s.Labels))
	for i, l := range s.Labels {
		header[i] = l.Key()
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, p := range s.Points {
		row := make([]string, len(p))
		for i, v := range p {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *FS) List(ctx context.Context) ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.loadMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sortNewest(runs)
	return runs, nil
}

func (s *FS) loadMeta(id string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", id, err)
	}
	return &meta, nil
}

func (s *FS) Load(ctx context.Context, id string) (*Run, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	meta, err := s.loadMeta(id)
	if err != nil {
		return nil, err
	}
	run := &Run{Metadata: *meta}

	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "model.json"))
	if err != nil {
		return nil, err
	}
	if run.Model, err = sim.ParseDescription(data); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", id, err)
	}

	if run.Series, err = readSeries(filepath.Join(s.baseDir, id, "series.csv")); err != nil {
		return nil, err
	}
	return run, nil
}

func readSeries(path string) (export.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return export.Series{}, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return export.Series{}, err
	}
	if len(records) == 0 {
		return export.Series{}, nil
	}

	var s export.Series
	for _, h := range records[0] {
		s.Labels = append(s.Labels, export.ParseLabel(h))
	}
	for i, record := range records[1:] {
		p := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return export.Series{}, fmt.Errorf("series row %d column %d: %w", i+1, j, err)
			}
			p[j] = v
		}
		s.Points = append(s.Points, p)
	}
	return s, nil
}
