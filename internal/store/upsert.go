package store

import (
	"context"
	"database/sql"
	"fmt"

	"gps-report/internal/db"
	"gps-report/internal/domain"
	"gps-report/internal/sqlbuild"
)

// UpsertTable writes batch into table one row at a time: a row whose primary
// key is new is inserted, a row whose key already exists overwrites every
// non-key column it carries. Each row is its own commit. The first failing
// row halts the call; the returned count is the number of rows applied
// before it.
//
// The primary key is read from the catalog on every call. A table without
// one is a *domain.ValidationError.
func (s *Store) UpsertTable(ctx context.Context, table string, batch domain.RowBatch) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}

	applied := 0
	err := s.withHandle(db.ModeWrite, func(h *sql.DB) error {
		pk, err := writableKey(ctx, h, table, batch)
		if err != nil {
			return err
		}
		stmt, err := sqlbuild.Upsert(table, batch.Columns, pk)
		if err != nil {
			return err
		}

		for i, row := range batch.Rows {
			if _, err := h.ExecContext(ctx, stmt, row...); err != nil {
				return fmt.Errorf("upsert into %s: row %d: %w", table, i, err)
			}
			applied++
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("upsert stopped", "table", table, "applied", applied, "error", err)
		return applied, err
	}
	s.logger.Debug("rows upserted", "table", table, "rows", applied)
	return applied, nil
}

// UpdateTable updates existing rows of table matched by primary key, one row
// at a time. With no columns every batch column is assigned; otherwise only
// the named ones. Key values are taken from each row itself, so the batch
// must carry every key column. A row matching nothing is skipped silently.
//
// The returned count is the number of rows processed before the first
// failure, whether or not they matched.
func (s *Store) UpdateTable(ctx context.Context, table string, batch domain.RowBatch, columns ...string) (int, error) {
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	set := columns
	if len(set) == 0 {
		set = batch.Columns
	}
	setIdx := make([]int, len(set))
	for i, c := range set {
		if setIdx[i] = batch.Index(c); setIdx[i] < 0 {
			return 0, domain.ErrValidation("update %s: column %q is not in the batch", table, c)
		}
	}

	processed := 0
	var matched int64
	err := s.withHandle(db.ModeWrite, func(h *sql.DB) error {
		pk, err := writableKey(ctx, h, table, batch)
		if err != nil {
			return err
		}
		keyIdx := make([]int, len(pk))
		for i, k := range pk {
			if keyIdx[i] = batch.Index(k); keyIdx[i] < 0 {
				return domain.ErrValidation("update %s: batch is missing primary key column %q", table, k)
			}
		}
		stmt, err := sqlbuild.Update(table, set, pk)
		if err != nil {
			return err
		}

		args := make([]any, len(setIdx)+len(keyIdx))
		for i, row := range batch.Rows {
			for j, idx := range setIdx {
				args[j] = row[idx]
			}
			for j, idx := range keyIdx {
				args[len(setIdx)+j] = row[idx]
			}
			res, err := h.ExecContext(ctx, stmt, args...)
			if err != nil {
				return fmt.Errorf("update %s: row %d: %w", table, i, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				matched += n
			}
			processed++
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("update stopped", "table", table, "processed", processed, "error", err)
		return processed, err
	}
	s.logger.Debug("rows updated", "table", table, "rows", processed, "matched", matched)
	return processed, nil
}

// writableKey introspects table, checks the batch columns against it, and
// returns its primary key.
func writableKey(ctx context.Context, h *sql.DB, table string, batch domain.RowBatch) ([]string, error) {
	cols, err := tableInfo(ctx, h, table)
	if err != nil {
		return nil, err
	}
	if err := checkBatchColumns(table, cols, batch); err != nil {
		return nil, err
	}
	pk := primaryKey(cols)
	if len(pk) == 0 {
		return nil, domain.ErrValidation("table %s has no primary key", table)
	}
	return pk, nil
}
