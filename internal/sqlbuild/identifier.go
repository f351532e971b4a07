package sqlbuild

import "strings"

// QuoteIdentifier wraps a SQL identifier in double quotes so names with
// spaces or symbols ("Dist > 25 km/h") stay one token. Embedded double
// quotes are left as they are: identifiers are trusted configuration, and a
// name containing the delimiter yields broken SQL rather than being escaped.
//
// It is used where the store has always quoted names (CREATE TABLE and the
// INSERT/UPSERT/UPDATE column lists).
func QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

// QuoteLiteral wraps a string value in single quotes, doubling any embedded
// single-quote characters (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = QuoteIdentifier(n)
	}
	return out
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
