package domain

import "slices"

// ColumnDef is a column name plus its declared storage type, e.g. "REAL".
type ColumnDef struct {
	Name string
	Type string
}

// ColumnInfo is one row of SQLite's table_info introspection.
// PKPosition is the 1-based position inside the primary key, 0 when the
// column is not part of it.
type ColumnInfo struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PKPosition int
}

// TableDescriptor describes a table: ordered columns and an optional ordered
// composite primary key. The key is fixed once the table is created.
type TableDescriptor struct {
	Name       string
	Columns    []ColumnDef
	PrimaryKey []string
}

// ColumnNames returns the declared column names in order.
func (t TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether name is a declared column.
func (t TableDescriptor) HasColumn(name string) bool {
	return slices.Contains(t.ColumnNames(), name)
}

// Validate checks that the descriptor has a name, at least one column, no
// duplicate columns, and a primary key drawn from the declared columns.
func (t TableDescriptor) Validate() error {
	if t.Name == "" {
		return ErrValidation("table name is required")
	}
	if len(t.Columns) == 0 {
		return ErrValidation("table %q: at least one column is required", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == "" {
			return ErrValidation("table %q: column name is required", t.Name)
		}
		if seen[c.Name] {
			return ErrValidation("table %q: duplicate column %q", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, k := range t.PrimaryKey {
		if !seen[k] {
			return ErrValidation("table %q: primary key column %q is not declared", t.Name, k)
		}
	}
	return nil
}
