package domain

import "slices"

// RowBatch is an ordered sequence of records sharing one schema. Values are
// scalars: string, int64, float64, bool, time.Time, []byte or nil.
type RowBatch struct {
	Columns []string
	Rows    [][]any
}

// NewRowBatch builds a batch from a column list and positional rows.
func NewRowBatch(columns []string, rows ...[]any) RowBatch {
	return RowBatch{Columns: columns, Rows: rows}
}

// RowBatchFromRecords builds a batch from column-keyed records. Columns fixes
// the column order; a record missing a column contributes nil for it.
func RowBatchFromRecords(columns []string, records ...map[string]any) RowBatch {
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	return RowBatch{Columns: columns, Rows: rows}
}

// Len returns the number of records.
func (b RowBatch) Len() int { return len(b.Rows) }

// Index returns the position of column, or -1.
func (b RowBatch) Index(column string) int {
	return slices.Index(b.Columns, column)
}

// Record returns row i keyed by column name.
func (b RowBatch) Record(i int) map[string]any {
	rec := make(map[string]any, len(b.Columns))
	for j, c := range b.Columns {
		rec[c] = b.Rows[i][j]
	}
	return rec
}

// Slice returns the records in [lo, hi) sharing the same columns.
func (b RowBatch) Slice(lo, hi int) RowBatch {
	return RowBatch{Columns: b.Columns, Rows: b.Rows[lo:hi]}
}

// Validate checks that every row has one value per column and that column
// names are unique.
func (b RowBatch) Validate() error {
	if len(b.Columns) == 0 {
		return ErrValidation("row batch has no columns")
	}
	seen := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		if seen[c] {
			return ErrValidation("row batch: duplicate column %q", c)
		}
		seen[c] = true
	}
	for i, r := range b.Rows {
		if len(r) != len(b.Columns) {
			return ErrValidation("row %d has %d values, want %d", i, len(r), len(b.Columns))
		}
	}
	return nil
}
