package store

import (
	"context"
	"database/sql"
	"fmt"

	"gps-report/internal/db"
	"gps-report/internal/domain"
	"gps-report/internal/sqlbuild"
)

// SelectFrom runs SELECT <columns|*> FROM table [WHERE where]. where is an
// opaque SQL fragment from trusted code and is not checked.
func (s *Store) SelectFrom(ctx context.Context, table string, columns []string, where string) (*Result, error) {
	stmt, err := sqlbuild.Select(table, columns, where)
	if err != nil {
		return nil, err
	}

	var res *Result
	err = s.withHandle(db.ModeRead, func(h *sql.DB) error {
		rows, err := h.QueryContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("select from %s: %w", table, err)
		}
		res, err = scanResult(rows)
		return err
	})
	return res, err
}

// MakeJoin runs spec as a single SELECT and tags each result column with the
// table it came from. Column groups follow spec.Tables() order: the main
// table's columns, then each joined table's, each group in declaration
// order. Every table must exist; a missing one is a *domain.NotFoundError.
func (s *Store) MakeJoin(ctx context.Context, spec domain.JoinSpec) (*domain.TaggedResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var res *domain.TaggedResult
	err := s.withHandle(db.ModeRead, func(h *sql.DB) error {
		tables := spec.Tables()
		groups := make([][]string, len(tables))
		var tags []domain.ColumnTag
		for i, t := range tables {
			cols, err := tableInfo(ctx, h, t)
			if err != nil {
				return err
			}
			groups[i] = columnNames(cols)
			for _, c := range groups[i] {
				tags = append(tags, domain.ColumnTag{Table: t, Column: c})
			}
		}

		stmt, err := sqlbuild.Join(spec, groups)
		if err != nil {
			return err
		}
		rows, err := h.QueryContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("join on %s: %w", spec.Main, err)
		}
		defer rows.Close() //nolint:errcheck

		data, err := scanValues(rows, len(tags))
		if err != nil {
			return err
		}
		res = &domain.TaggedResult{Columns: tags, Rows: data}
		return nil
	})
	return res, err
}
