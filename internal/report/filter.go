package report

import (
	"fmt"
	"strings"
)

// TeamAverage is the Player value of the per-session team average row in
// the stats table.
const TeamAverage = "Team Average"

// Filter selects stats rows. Dates holds zero, one (from), or two (from, to)
// inclusive YYYY-MM-DD bounds. Empty fields do not filter.
type Filter struct {
	Dates    []string `json:"dates,omitempty"`
	Types    []string `json:"types,omitempty"`
	Category string   `json:"category,omitempty"`
	Players  []string `json:"players,omitempty"`
}

// Where renders the filter as a WHERE fragment for the stats table, or ""
// when nothing is selected. Values are quoted as SQL literals; they come from
// the selectors, which only offer values read from the store.
func (f Filter) Where() string {
	var b strings.Builder

	if len(f.Dates) > 0 {
		fmt.Fprintf(&b, "date >= %s", quote(f.Dates[0]))
		if len(f.Dates) > 1 {
			fmt.Fprintf(&b, " AND date <= %s", quote(f.Dates[1]))
		}
	}
	if len(f.Types) > 0 {
		if b.Len() > 0 {
			b.WriteString(" AND")
		}
		fmt.Fprintf(&b, " type IN (%s)", quoteList(f.Types))
	}
	if f.Category != "" {
		if b.Len() > 0 {
			b.WriteString(" AND")
		}
		fmt.Fprintf(&b, " category = %s", quote(f.Category))
	}
	if len(f.Players) > 0 {
		if b.Len() > 0 {
			b.WriteString(" AND")
		}
		fmt.Fprintf(&b, " Player IN (%s)", quoteList(f.Players))
	}
	return b.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(values []string) string {
	q := make([]string, len(values))
	for i, v := range values {
		q[i] = quote(v)
	}
	return strings.Join(q, ", ")
}
