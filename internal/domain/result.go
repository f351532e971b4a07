package domain

import "slices"

// Result is a materialized query result with a flat column namespace.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.Rows) }

// Index returns the position of column, or -1.
func (r *Result) Index(column string) int {
	return slices.Index(r.Columns, column)
}

// Value returns the value of column in row i, or nil when the column is absent.
func (r *Result) Value(i int, column string) any {
	j := r.Index(column)
	if j < 0 {
		return nil
	}
	return r.Rows[i][j]
}

// Column returns every value of column, in row order.
func (r *Result) Column(column string) []any {
	j := r.Index(column)
	if j < 0 {
		return nil
	}
	out := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[j]
	}
	return out
}

// Records returns the rows keyed by column name.
func (r *Result) Records() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			rec[c] = row[j]
		}
		out[i] = rec
	}
	return out
}

// ColumnTag is the two-level (source table, column) key of a joined column.
type ColumnTag struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// TaggedResult is a join result whose columns carry their source table.
type TaggedResult struct {
	Columns []ColumnTag
	Rows    [][]any
}

// Len returns the number of rows.
func (r *TaggedResult) Len() int { return len(r.Rows) }

// Index returns the position of (table, column), or -1.
func (r *TaggedResult) Index(table, column string) int {
	return slices.Index(r.Columns, ColumnTag{Table: table, Column: column})
}

// Table projects the columns tagged with table into a flat Result.
func (r *TaggedResult) Table(table string) *Result {
	var idx []int
	out := &Result{}
	for j, tag := range r.Columns {
		if tag.Table == table {
			idx = append(idx, j)
			out.Columns = append(out.Columns, tag.Column)
		}
	}
	out.Rows = make([][]any, len(r.Rows))
	for i, row := range r.Rows {
		projected := make([]any, len(idx))
		for k, j := range idx {
			projected[k] = row[j]
		}
		out.Rows[i] = projected
	}
	return out
}
