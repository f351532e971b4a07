// Package sqlbuild renders the SQLite statements issued by the store.
//
// Identifiers (table names, column names, column types) and WHERE clauses are
// trusted input: they come from the application's own configuration, never
// from end users. They are not validated, and outside the quoted column lists
// noted on each function they are interpolated verbatim, so a name carrying
// SQL delimiters changes the statement. Row values are never interpolated;
// every builder that takes data emits "?" placeholders.
package sqlbuild

import (
	"fmt"
	"strings"

	"gps-report/internal/domain"
)

// MaxVariables is the bound-parameter limit assumed for one statement
// (SQLITE_MAX_VARIABLE_NUMBER in the bundled SQLite).
const MaxVariables = 32766

// TableExists returns the catalog lookup for a table name; the name is bound.
func TableExists() string {
	return "SELECT name FROM sqlite_master WHERE type='table' AND name = ?"
}

// ListTables returns the catalog listing of user tables, excluding goose's
// bookkeeping table and SQLite internals.
func ListTables() string {
	return "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name != 'goose_db_version' ORDER BY name"
}

// TableInfo returns the column introspection pragma for table.
func TableInfo(table string) string {
	return fmt.Sprintf("PRAGMA table_info(%s)", table)
}

// CreateTable returns
// CREATE TABLE IF NOT EXISTS "<table>" ("<col>" TYPE, ..., PRIMARY KEY ("<k1>", ...)).
// Columns and key columns keep the descriptor's order.
func CreateTable(desc domain.TableDescriptor) (string, error) {
	if err := desc.Validate(); err != nil {
		return "", err
	}

	defs := make([]string, 0, len(desc.Columns)+1)
	for _, c := range desc.Columns {
		def := QuoteIdentifier(c.Name)
		if c.Type != "" {
			def += " " + c.Type
		}
		defs = append(defs, def)
	}
	if len(desc.PrimaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoteAll(desc.PrimaryKey), ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", QuoteIdentifier(desc.Name), strings.Join(defs, ", ")), nil
}

// AddColumn returns ALTER TABLE <table> ADD COLUMN <column> <type>.
func AddColumn(table, column, columnType string) (string, error) {
	if table == "" || column == "" {
		return "", domain.ErrValidation("add column: table and column names are required")
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, column)
	if columnType != "" {
		stmt += " " + columnType
	}
	return stmt, nil
}

// DropColumn returns ALTER TABLE <table> DROP COLUMN <column>.
func DropColumn(table, column string) (string, error) {
	if table == "" || column == "" {
		return "", domain.ErrValidation("drop column: table and column names are required")
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column), nil
}

// Insert returns a multi-row INSERT INTO "<table>" ("<c1>", ...) VALUES (?, ...), ...
// with rows value groups.
func Insert(table string, columns []string, rows int) (string, error) {
	if table == "" {
		return "", domain.ErrValidation("insert: table name is required")
	}
	if len(columns) == 0 {
		return "", domain.ErrValidation("insert into %s: no columns", table)
	}
	if rows <= 0 {
		return "", domain.ErrValidation("insert into %s: no rows", table)
	}

	group := "(" + placeholders(len(columns)) + ")"
	groups := make([]string, rows)
	for i := range groups {
		groups[i] = group
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		QuoteIdentifier(table),
		strings.Join(quoteAll(columns), ", "),
		strings.Join(groups, ", "),
	), nil
}

// RowsPerInsert returns how many value groups of width columns fit in one
// statement under MaxVariables, capped at want.
func RowsPerInsert(columns, want int) int {
	if columns <= 0 {
		return want
	}
	n := MaxVariables / columns
	if n < 1 {
		n = 1
	}
	if want > 0 && want < n {
		return want
	}
	return n
}

// Upsert returns a single-row
// INSERT INTO "<table>" (...) VALUES (...) ON CONFLICT ("<k>", ...) DO UPDATE SET "<c>" = excluded."<c>", ...
// Every non-key column of the row is overwritten on conflict. When the row
// carries only key columns the conflict action is DO NOTHING.
func Upsert(table string, columns, primaryKey []string) (string, error) {
	if table == "" {
		return "", domain.ErrValidation("upsert: table name is required")
	}
	if len(columns) == 0 {
		return "", domain.ErrValidation("upsert into %s: no columns", table)
	}
	if len(primaryKey) == 0 {
		return "", domain.ErrValidation("upsert into %s: table has no primary key", table)
	}

	isKey := make(map[string]bool, len(primaryKey))
	for _, k := range primaryKey {
		isKey[k] = true
	}
	var sets []string
	for _, c := range columns {
		if isKey[c] {
			continue
		}
		q := QuoteIdentifier(c)
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", q, q))
	}

	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		QuoteIdentifier(table),
		strings.Join(quoteAll(columns), ", "),
		placeholders(len(columns)),
		strings.Join(quoteAll(primaryKey), ", "),
		action,
	), nil
}

// Update returns UPDATE "<table>" SET "<c>" = ?, ... WHERE "<k>" = ? AND ...
// Arguments bind the SET values first, then the key values, both in the
// order given.
func Update(table string, setColumns, primaryKey []string) (string, error) {
	if table == "" {
		return "", domain.ErrValidation("update: table name is required")
	}
	if len(setColumns) == 0 {
		return "", domain.ErrValidation("update %s: no columns to set", table)
	}
	if len(primaryKey) == 0 {
		return "", domain.ErrValidation("update %s: table has no primary key", table)
	}

	sets := make([]string, len(setColumns))
	for i, c := range setColumns {
		sets[i] = QuoteIdentifier(c) + " = ?"
	}
	preds := make([]string, len(primaryKey))
	for i, k := range primaryKey {
		preds[i] = QuoteIdentifier(k) + " = ?"
	}

	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		QuoteIdentifier(table),
		strings.Join(sets, ", "),
		strings.Join(preds, " AND "),
	), nil
}

// Select returns SELECT <columns|*> FROM <table> [WHERE <where>]. Columns
// and where are emitted verbatim.
func Select(table string, columns []string, where string) (string, error) {
	if table == "" {
		return "", domain.ErrValidation("select: table name is required")
	}
	cols := "*"
	if len(columns) > 0 {
		cols = strings.Join(columns, ", ")
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", cols, table)
	if strings.TrimSpace(where) != "" {
		stmt += " WHERE " + where
	}
	return stmt, nil
}

// Join returns one SELECT over spec. columns[i] lists the columns of the
// i-th table of spec.Tables(); each is selected as "<table>"."<column>" in
// that order, so result positions map back to (table, column) without any
// marker column. Table names in FROM/JOIN/ON are emitted verbatim.
func Join(spec domain.JoinSpec, columns [][]string) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	tables := spec.Tables()
	if len(columns) != len(tables) {
		return "", domain.ErrValidation("join: got column lists for %d tables, want %d", len(columns), len(tables))
	}

	var sel []string
	for i, t := range tables {
		if len(columns[i]) == 0 {
			return "", domain.ErrValidation("join: table %s has no columns", t)
		}
		for _, c := range columns[i] {
			sel = append(sel, QuoteIdentifier(t)+"."+QuoteIdentifier(c))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(sel, ", "), spec.Main)
	for _, j := range spec.Joins {
		conds := make([]string, len(j.On))
		for i, c := range j.On {
			conds[i] = fmt.Sprintf("%s.%s = %s.%s", j.Table, c.Column, c.OtherTable, c.OtherColumn)
		}
		fmt.Fprintf(&b, " %s JOIN %s ON %s", j.Type, j.Table, strings.Join(conds, " AND "))
	}
	return b.String(), nil
}
