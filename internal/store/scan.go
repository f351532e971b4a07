package store

import (
	"database/sql"
	"fmt"

	"gps-report/internal/domain"
)

// Result aliases the domain result so callers of the store need one import.
type Result = domain.Result

// scanResult materializes rows into a Result and closes rows.
func scanResult(rows *sql.Rows) (*Result, error) {
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	data, err := scanValues(rows, len(cols))
	if err != nil {
		return nil, err
	}
	return &Result{Columns: cols, Rows: data}, nil
}

// scanValues reads every remaining row as a slice of n driver values.
func scanValues(rows *sql.Rows, n int) ([][]any, error) {
	out := [][]any{}
	for rows.Next() {
		vals := make([]any, n)
		ptrs := make([]any, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out), err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
