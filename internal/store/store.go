// Package store is the tabular data-access layer over the single-file SQLite
// store: schema operations, chunked bulk insert, row-at-a-time upsert and
// update, and SELECT/JOIN queries with (table, column) tagging.
//
// Every operation opens its own handle on the file and closes it before
// returning, on success and on error. No handle, transaction, or cursor is
// shared between calls; concurrent writers are serialized by SQLite's file
// locking, and a lock that outlasts the busy timeout is returned as an error
// without retry.
//
// Writes are not atomic across a whole batch. InsertTable commits per chunk,
// UpsertTable and UpdateTable commit per row, and all three stop at the first
// failure, returning how many rows were durably applied before it.
//
// Table names, column names, column types, and WHERE clauses are trusted
// internal configuration and are not validated or escaped; see package
// sqlbuild. Row values are always bound parameters.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"gps-report/internal/db"
)

// Store runs data-access operations against the SQLite file at Path.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store for the file at path. The file is created by SQLite on
// first use if it does not exist.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// withHandle opens a dedicated handle, runs fn, and always closes the handle.
func (s *Store) withHandle(mode string, fn func(h *sql.DB) error) error {
	h, err := db.OpenSQLite(s.path, mode, 1)
	if err != nil {
		return err
	}
	defer h.Close() //nolint:errcheck

	return fn(h)
}

// Query runs an arbitrary read statement with bound args and materializes the
// result. It backs the small fixed-schema repositories (file_available,
// sync_history) that need ORDER BY/LIMIT.
func (s *Store) Query(ctx context.Context, stmt string, args ...any) (*Result, error) {
	var res *Result
	err := s.withHandle(db.ModeRead, func(h *sql.DB) error {
		rows, err := h.QueryContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		res, err = scanResult(rows)
		return err
	})
	return res, err
}

// Exec runs an arbitrary write statement with bound args and returns the
// number of affected rows.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	var n int64
	err := s.withHandle(db.ModeWrite, func(h *sql.DB) error {
		res, err := h.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		return nil
	})
	return n, err
}
