package store

import (
	"context"
	"database/sql"
	"fmt"

	"gps-report/internal/db"
	"gps-report/internal/domain"
	"gps-report/internal/sqlbuild"
)

// DefaultChunkSize is the number of rows committed per transaction by
// InsertTable unless WithChunkSize says otherwise.
const DefaultChunkSize = 1000

type insertConfig struct {
	chunkSize int
	progress  func(done, total int)
}

// InsertOption configures InsertTable.
type InsertOption func(*insertConfig)

// WithChunkSize sets the number of rows per transaction.
func WithChunkSize(n int) InsertOption {
	return func(c *insertConfig) { c.chunkSize = n }
}

// WithProgress registers fn to be called after each committed chunk with the
// number of chunks committed so far and the total chunk count.
func WithProgress(fn func(done, total int)) InsertOption {
	return func(c *insertConfig) { c.progress = fn }
}

// InsertTable appends batch to table in order, in chunks of rows each
// committed in its own transaction. It returns the number of rows committed.
//
// When a chunk fails its transaction is rolled back, the failure is logged,
// and InsertTable returns the rows committed by earlier chunks together with
// the error; those chunks stay in the table. No deduplication is performed,
// so a primary-key collision fails the chunk that carries it.
func (s *Store) InsertTable(ctx context.Context, table string, batch domain.RowBatch, opts ...InsertOption) (int, error) {
	cfg := insertConfig{chunkSize: DefaultChunkSize}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.chunkSize <= 0 {
		return 0, domain.ErrValidation("insert into %s: chunk size must be positive, got %d", table, cfg.chunkSize)
	}
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	total := (batch.Len() + cfg.chunkSize - 1) / cfg.chunkSize
	perStmt := sqlbuild.RowsPerInsert(len(batch.Columns), cfg.chunkSize)

	committed := 0
	err := s.withHandle(db.ModeWrite, func(h *sql.DB) error {
		cols, err := tableInfo(ctx, h, table)
		if err != nil {
			return err
		}
		if err := checkBatchColumns(table, cols, batch); err != nil {
			return err
		}

		for n := 0; n < total; n++ {
			lo := n * cfg.chunkSize
			hi := min(lo+cfg.chunkSize, batch.Len())
			if err := insertChunk(ctx, h, table, batch.Slice(lo, hi), perStmt); err != nil {
				s.logger.Error("insert chunk failed",
					"table", table, "chunk", n+1, "chunks", total,
					"committed", committed, "error", err)
				return fmt.Errorf("insert into %s: chunk %d/%d: %w", table, n+1, total, err)
			}
			committed += hi - lo
			if cfg.progress != nil {
				cfg.progress(n+1, total)
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("rows inserted", "table", table, "rows", committed, "chunks", total)
	}
	return committed, err
}

// insertChunk writes chunk in one transaction, using as few multi-row
// statements as the bound-variable limit allows.
func insertChunk(ctx context.Context, h *sql.DB, table string, chunk domain.RowBatch, perStmt int) error {
	tx, err := h.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for lo := 0; lo < chunk.Len(); lo += perStmt {
		hi := min(lo+perStmt, chunk.Len())
		stmt, err := sqlbuild.Insert(table, chunk.Columns, hi-lo)
		if err != nil {
			return err
		}
		args := make([]any, 0, (hi-lo)*len(chunk.Columns))
		for _, row := range chunk.Rows[lo:hi] {
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
