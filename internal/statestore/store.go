// Package statestore persists scm-data per material so the CLI can poll
// without an orchestrator.
package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned by Load for a material that was never saved.
var ErrNotFound = errors.New("material not found")

const schema = `
CREATE TABLE IF NOT EXISTS materials (
	name       TEXT PRIMARY KEY,
	scm_data   TEXT NOT NULL,
	revision   TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL DEFAULT '{}',
	updated_at TEXT NOT NULL
);`

// Record is the stored state of one material.
type Record struct {
	Name    string
	SCMData map[string]string
	// Revision and Data describe the last reported revision, so a later
	// checkout can use its data bag.
	Revision  string
	Data      map[string]string
	UpdatedAt time.Time
}

// Store is a SQLite-backed state store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	// A single connection keeps writers from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the record for name, or ErrNotFound.
func (s *Store) Load(ctx context.Context, name string) (*Record, error) {
	var scmData, data, updated string
	rec := &Record{Name: name}

	err := s.db.QueryRowContext(ctx,
		`SELECT scm_data, revision, data, updated_at FROM materials WHERE name = ?`, name,
	).Scan(&scmData, &rec.Revision, &data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}

	if err := json.Unmarshal([]byte(scmData), &rec.SCMData); err != nil {
		return nil, fmt.Errorf("decoding scm-data of %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, fmt.Errorf("decoding data of %s: %w", name, err)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return rec, nil
}

// Save inserts or replaces the record.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.Name == "" {
		return errors.New("saving state: material name is empty")
	}

	scmData, err := json.Marshal(nonNil(rec.SCMData))
	if err != nil {
		return fmt.Errorf("encoding scm-data: %w", err)
	}
	data, err := json.Marshal(nonNil(rec.Data))
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO materials (name, scm_data, revision, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			scm_data = excluded.scm_data,
			revision = excluded.revision,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		rec.Name, string(scmData), rec.Revision, string(data), rec.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving %s: %w", rec.Name, err)
	}
	return nil
}

// Delete removes the record for name. Deleting a missing record is not an
// error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// List returns the names of all stored materials, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM materials ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing materials: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
