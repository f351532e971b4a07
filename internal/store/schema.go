package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"

	"gps-report/internal/db"
	"gps-report/internal/domain"
	"gps-report/internal/sqlbuild"
)

// TableExists reports whether a table named name exists. Absence is not an error.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.withHandle(db.ModeRead, func(h *sql.DB) error {
		var got string
		err := h.QueryRowContext(ctx, sqlbuild.TableExists(), name).Scan(&got)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup table %s: %w", name, err)
		}
		exists = true
		return nil
	})
	return exists, err
}

// ListTables returns the user tables in name order.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := s.withHandle(db.ModeRead, func(h *sql.DB) error {
		rows, err := h.QueryContext(ctx, sqlbuild.ListTables())
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		defer rows.Close() //nolint:errcheck
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return fmt.Errorf("scan table name: %w", err)
			}
			names = append(names, n)
		}
		return rows.Err()
	})
	return names, err
}

// CreateTable creates the table described by desc if it does not already
// exist. An existing table is left untouched, whatever its schema.
func (s *Store) CreateTable(ctx context.Context, desc domain.TableDescriptor) error {
	stmt, err := sqlbuild.CreateTable(desc)
	if err != nil {
		return err
	}
	return s.withHandle(db.ModeWrite, func(h *sql.DB) error {
		if _, err := h.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", desc.Name, err)
		}
		s.logger.Debug("table ensured", "table", desc.Name, "columns", len(desc.Columns))
		return nil
	})
}

// AddColumn adds column to table when it is absent and reports whether it
// did. An already-present column is a logged no-op.
func (s *Store) AddColumn(ctx context.Context, table, column, columnType string) (bool, error) {
	stmt, err := sqlbuild.AddColumn(table, column, columnType)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.withHandle(db.ModeWrite, func(h *sql.DB) error {
		cols, err := tableInfo(ctx, h, table)
		if err != nil {
			return err
		}
		if hasColumn(cols, column) {
			s.logger.Info("column already exists", "table", table, "column", column)
			return nil
		}
		if _, err := h.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, column, err)
		}
		added = true
		return nil
	})
	return added, err
}

// DropColumn drops column from table when it is present and reports whether
// it did. An absent column is a logged no-op.
func (s *Store) DropColumn(ctx context.Context, table, column string) (bool, error) {
	stmt, err := sqlbuild.DropColumn(table, column)
	if err != nil {
		return false, err
	}

	var dropped bool
	err = s.withHandle(db.ModeWrite, func(h *sql.DB) error {
		cols, err := tableInfo(ctx, h, table)
		if err != nil {
			return err
		}
		if !hasColumn(cols, column) {
			s.logger.Info("column does not exist", "table", table, "column", column)
			return nil
		}
		if _, err := h.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop column %s.%s: %w", table, column, err)
		}
		dropped = true
		return nil
	})
	return dropped, err
}

// Columns returns the table's columns in declaration order. A missing table
// is a *domain.NotFoundError.
func (s *Store) Columns(ctx context.Context, table string) ([]domain.ColumnInfo, error) {
	var cols []domain.ColumnInfo
	err := s.withHandle(db.ModeRead, func(h *sql.DB) error {
		var err error
		cols, err = tableInfo(ctx, h, table)
		return err
	})
	return cols, err
}

// PrimaryKey returns the table's primary-key columns in key order, or an
// empty slice when the table has none.
func (s *Store) PrimaryKey(ctx context.Context, table string) ([]string, error) {
	cols, err := s.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	return primaryKey(cols), nil
}

// Describe returns the table's descriptor as recorded in the catalog.
func (s *Store) Describe(ctx context.Context, table string) (domain.TableDescriptor, error) {
	cols, err := s.Columns(ctx, table)
	if err != nil {
		return domain.TableDescriptor{}, err
	}
	desc := domain.TableDescriptor{Name: table, PrimaryKey: primaryKey(cols)}
	for _, c := range cols {
		desc.Columns = append(desc.Columns, domain.ColumnDef{Name: c.Name, Type: c.Type})
	}
	return desc, nil
}

// tableInfo runs the table_info pragma on an open handle. SQLite returns no
// rows for an unknown table, which is reported as not found.
func tableInfo(ctx context.Context, h *sql.DB, table string) ([]domain.ColumnInfo, error) {
	rows, err := h.QueryContext(ctx, sqlbuild.TableInfo(table))
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close() //nolint:errcheck

	var cols []domain.ColumnInfo
	for rows.Next() {
		var (
			c    domain.ColumnInfo
			nn   int
			dflt sql.NullString
		)
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &nn, &dflt, &c.PKPosition); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		c.NotNull = nn != 0
		if dflt.Valid {
			c.Default = &dflt.String
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound("table %s does not exist", table)
	}
	return cols, nil
}

func hasColumn(cols []domain.ColumnInfo, name string) bool {
	return slices.ContainsFunc(cols, func(c domain.ColumnInfo) bool { return c.Name == name })
}

func columnNames(cols []domain.ColumnInfo) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func primaryKey(cols []domain.ColumnInfo) []string {
	var key []domain.ColumnInfo
	for _, c := range cols {
		if c.PKPosition > 0 {
			key = append(key, c)
		}
	}
	sort.Slice(key, func(i, j int) bool { return key[i].PKPosition < key[j].PKPosition })
	names := make([]string, 0, len(key))
	for _, c := range key {
		names = append(names, c.Name)
	}
	return names
}

// checkBatchColumns rejects batch columns the table does not declare.
func checkBatchColumns(table string, cols []domain.ColumnInfo, batch domain.RowBatch) error {
	for _, c := range batch.Columns {
		if !hasColumn(cols, c) {
			return domain.ErrValidation("table %s has no column %q", table, c)
		}
	}
	return nil
}
