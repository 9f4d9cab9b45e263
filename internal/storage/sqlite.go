package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite stores each run as one JSON payload row.
type SQLite struct {
	db   *sql.DB
	path string
}

func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "labsim.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		metadata BLOB NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Save(ctx context.Context, run *Run) (string, error) {
	prepare(run)
	meta, err := json.Marshal(run.Metadata)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs(id, created_at, kind, metadata, payload) VALUES(?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET metadata=excluded.metadata, payload=excluded.payload`,
		run.ID, run.CreatedAt.Format(time.RFC3339Nano), run.Kind, meta, payload)
	if err != nil {
		return "", fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

func (s *SQLite) Load(ctx context.Context, id string) (*Run, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select run %s: %w", id, err)
	}
	var run Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

func (s *SQLite) List(ctx context.Context) ([]Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metadata FROM runs`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Metadata, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var meta Metadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		runs = append(runs, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortNewest(runs)
	return runs, nil
}
