package report

import (
	"fmt"
	"math"
	"os"

	json "github.com/goccy/go-json"
)

// Metric is one entry of the metrics glossary. Color holds RGB components in
// [0, 1].
type Metric struct {
	Name        string    `json:"name"`
	Color       []float64 `json:"color"`
	Unit        string    `json:"unit,omitempty"`
	Description string    `json:"description,omitempty"`
}

// RGB renders Color as a CSS rgb() value, or "" when Color is not a triple.
func (m Metric) RGB() string {
	if len(m.Color) != 3 {
		return ""
	}
	return fmt.Sprintf("rgb(%d, %d, %d)",
		int(math.Round(m.Color[0]*255)),
		int(math.Round(m.Color[1]*255)),
		int(math.Round(m.Color[2]*255)))
}

// Glossary is the ordered list of known metrics.
type Glossary []Metric

// Names returns the metric names in glossary order.
func (g Glossary) Names() []string {
	names := make([]string, len(g))
	for i, m := range g {
		names[i] = m.Name
	}
	return names
}

// Lookup returns the metric called name.
func (g Glossary) Lookup(name string) (Metric, bool) {
	for _, m := range g {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// LoadGlossary reads a JSON metrics glossary from path.
func LoadGlossary(path string) (Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics glossary: %w", err)
	}
	var g Glossary
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse metrics glossary %s: %w", path, err)
	}
	return g, nil
}
