package domain

import "strings"

// JoinType is the SQL join flavour used for one joined table.
type JoinType string

// Supported join types.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// ParseJoinType normalizes s (case-insensitive) into a JoinType.
func ParseJoinType(s string) (JoinType, error) {
	jt := JoinType(strings.ToUpper(strings.TrimSpace(s)))
	if !jt.Valid() {
		return "", ErrValidation("unsupported join type %q: use INNER, LEFT, RIGHT or FULL", s)
	}
	return jt, nil
}

// Valid reports whether jt is one of the supported join types.
func (jt JoinType) Valid() bool {
	switch jt {
	case JoinInner, JoinLeft, JoinRight, JoinFull:
		return true
	}
	return false
}

// JoinCondition is the equality Table.Column = OtherTable.OtherColumn, where
// Table is the joined table owning the condition.
type JoinCondition struct {
	Column      string
	OtherTable  string
	OtherColumn string
}

// JoinClause joins one table onto the running result. Its conditions are
// ANDed together.
type JoinClause struct {
	Table string
	Type  JoinType
	On    []JoinCondition
}

// JoinSpec is a main table plus joined tables in iteration order.
type JoinSpec struct {
	Main  string
	Joins []JoinClause
}

// Tables returns the main table followed by the joined tables, in order.
// This is the order result column groups are tagged in.
func (s JoinSpec) Tables() []string {
	tables := make([]string, 0, len(s.Joins)+1)
	tables = append(tables, s.Main)
	for _, j := range s.Joins {
		tables = append(tables, j.Table)
	}
	return tables
}

// Validate checks the structure of s. Table existence is
// checked at execution time by the store.
func (s JoinSpec) Validate() error {
	if s.Main == "" {
		return ErrValidation("join: main table is required")
	}
	if len(s.Joins) == 0 {
		return ErrValidation("join: at least one joined table is required")
	}
	for _, j := range s.Joins {
		if j.Table == "" {
			return ErrValidation("join: joined table name is required")
		}
		if !j.Type.Valid() {
			return ErrValidation("join %q: unsupported join type %q", j.Table, j.Type)
		}
		if len(j.On) == 0 {
			return ErrValidation("join %q: at least one condition is required", j.Table)
		}
		for _, c := range j.On {
			if c.Column == "" || c.OtherTable == "" || c.OtherColumn == "" {
				return ErrValidation("join %q: incomplete condition %+v", j.Table, c)
			}
		}
	}
	return nil
}
