package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Where(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"empty", Filter{}, ""},
		{"from date", Filter{Dates: []string{"2024-03-01"}}, "date >= '2024-03-01'"},
		{"date range", Filter{Dates: []string{"2024-03-01", "2024-03-31"}}, "date >= '2024-03-01' AND date <= '2024-03-31'"},
		{"types only", Filter{Types: []string{"Full Match"}}, " type IN ('Full Match')"},
		{"category only", Filter{Category: "First Team"}, " category = 'First Team'"},
		{
			"session",
			Filter{
				Dates:    []string{"2024-03-01", "2024-03-01"},
				Types:    []string{"Full Match", "Full Training"},
				Category: "First Team",
			},
			"date >= '2024-03-01' AND date <= '2024-03-01' AND type IN ('Full Match', 'Full Training') AND category = 'First Team'",
		},
		{
			"players",
			Filter{Dates: []string{"2024-03-01"}, Players: []string{"Ana", "Ben"}},
			"date >= '2024-03-01' AND Player IN ('Ana', 'Ben')",
		},
		{"quote in value", Filter{Category: "U'19"}, " category = 'U''19'"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Where())
		})
	}
}
