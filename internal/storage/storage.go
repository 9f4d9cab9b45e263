// Package storage persists finished runs: the canonical model form, the
// exported time series and summary metrics.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/labsim/internal/export"
	"github.com/san-kum/labsim/internal/sim"
)

var ErrNotFound = errors.New("storage: run not found")

type Metadata struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Preset    string             `json:"preset,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Ticks     int                `json:"ticks"`
	Time      float64            `json:"time"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

type Run struct {
	Metadata
	Model  sim.Description `json:"model"`
	Series export.Series   `json:"series"`
}

type Store interface {
	// Save stores run, assigning an ID and creation time when missing.
	Save(ctx context.Context, run *Run) (string, error)
	Load(ctx context.Context, id string) (*Run, error)
	// List returns the metadata of every run, newest first.
	List(ctx context.Context) ([]Metadata, error)
	Close() error
}

// Open returns the backend named by kind ("fs" or "sqlite") rooted at dir.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", "fs":
		return NewFS(dir)
	case "sqlite":
		return NewSQLite(filepath.Join(dir, "labsim.db"))
	}
	return nil, fmt.Errorf("unknown store %q (want fs or sqlite)", kind)
}

func prepare(run *Run) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
}

func sortNewest(runs []Metadata) {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return nil
}

// WriteJSON writes run as indented JSON.
func WriteJSON(w io.Writer, run *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
