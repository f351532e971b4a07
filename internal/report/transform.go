package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Velocity bands and the stats columns that carry them, in band order.
var (
	VelocityBands = []string{"0-5 km/h", "5-10 km/h", "10-15 km/h", "15-20 km/h", "20-25 km/h", "> 25 km/h"}

	VelocityDistanceColumns = []string{
		"Dist 0-5 km/h", "Dist 5-10 km/h", "Dist 10-15 km/h",
		"Dist 15-20 km/h", "Dist 20-25 km/h", "Dist > 25 km/h",
	}
	VelocityTimeColumns = []string{
		"T 0-5 km/h", "T 5-10 km/h", "T 10-15 km/h",
		"T 15-20 km/h", "T 20-25 km/h", "T>25 km/h",
	}
)

// Acceleration and deceleration bands and their distance (D) and time (T)
// stats columns.
var (
	AccelBands = []string{"1-2 m/s2", "2-3 m/s2", "3-4 m/s2", "> 4 m/s2", "> 5 m/s2"}
	DecelBands = []string{"-2 & -1 m/s2", "-3 & -2 m/s2", "-4 & -3 m/s2", "< -4 m/s2", "< -5 m/s2"}
)

func accelColumns(prefix string) []string {
	cols := make([]string, len(AccelBands))
	for i, b := range AccelBands {
		cols[i] = prefix + " acc " + b
	}
	return cols
}

func decelColumns(prefix string) []string {
	cols := make([]string, len(DecelBands))
	for i, b := range DecelBands {
		cols[i] = prefix + " dec " + b
	}
	return cols
}

// ParseClock converts "HH:MM:SS" to seconds.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04:05", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}

// FormatClock renders seconds as "H:MM:SS", prefixed with a day count
// ("1 day, 2:03:04") past 24 hours.
func FormatClock(seconds int) string {
	days := seconds / 86400
	rem := seconds % 86400
	if rem < 0 {
		rem += 86400
		days--
	}
	clock := fmt.Sprintf("%d:%02d:%02d", rem/3600, rem%3600/60, rem%60)
	switch {
	case days == 0:
		return clock
	case days == 1 || days == -1:
		return fmt.Sprintf("%d day, %s", days, clock)
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}

// SumClock adds up "HH:MM:SS" durations and returns the total in seconds.
func SumClock(values []string) (int, error) {
	total := 0
	for _, v := range values {
		s, err := ParseClock(v)
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total, nil
}

// SortVelocityBands orders band labels such as "5-10 km/h" or "> 25 km/h"
// by their lower bound.
func SortVelocityBands(bands []string) ([]string, error) {
	type keyed struct {
		band  string
		lower int
	}
	ks := make([]keyed, len(bands))
	for i, b := range bands {
		lo, err := bandLowerBound(b)
		if err != nil {
			return nil, err
		}
		ks[i] = keyed{b, lo}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].lower < ks[j].lower })

	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.band
	}
	return out, nil
}

func bandLowerBound(band string) (int, error) {
	head, _, _ := strings.Cut(band, "-")
	head = strings.Trim(head, ">")
	head = strings.Trim(head, "< ")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return 0, fmt.Errorf("velocity band %q has no lower bound", band)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("velocity band %q: %w", band, err)
	}
	return n, nil
}

// BandColumn names the stats column that carries one band.
type BandColumn struct {
	Band   string
	Column string
}

// FilterVelocityColumns returns, for each band in order, the distance and
// time columns that carry it. A column carries a band when its name, with
// spaces removed, is a letter prefix followed by the band, so "> 25 km/h"
// selects both "Dist > 25 km/h" and "T>25 km/h" and "0-5 km/h" never
// selects "Dist 10-15 km/h". Bands with no column are left out.
func FilterVelocityColumns(bands, distanceCols, timeCols []string) (distance, timing []BandColumn) {
	for _, band := range bands {
		if c, ok := columnForBand(band, distanceCols); ok {
			distance = append(distance, BandColumn{Band: band, Column: c})
		}
		if c, ok := columnForBand(band, timeCols); ok {
			timing = append(timing, BandColumn{Band: band, Column: c})
		}
	}
	return distance, timing
}

func columnForBand(band string, columns []string) (string, bool) {
	b := stripSpaces(band)
	for _, c := range columns {
		sc := stripSpaces(c)
		prefix, ok := strings.CutSuffix(sc, b)
		if !ok || prefix == "" {
			continue
		}
		last := prefix[len(prefix)-1]
		if (last >= 'A' && last <= 'Z') || (last >= 'a' && last <= 'z') {
			return c, true
		}
	}
	return "", false
}

// pairBands zips bands with the columns that carry them, in order.
func pairBands(bands, columns []string) []BandColumn {
	out := make([]BandColumn, 0, len(bands))
	for i := range min(len(bands), len(columns)) {
		out = append(out, BandColumn{Band: bands[i], Column: columns[i]})
	}
	return out
}

func stripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// ParseCommaFloat converts a number that may use a comma as decimal
// separator ("5,4") to a float64. Numeric inputs are returned as is.
func ParseCommaFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case []byte:
		return ParseCommaFloat(string(x))
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("parse number %q: %w", x, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("parse number: null value")
	default:
		return 0, fmt.Errorf("parse number: unsupported type %T", v)
	}
}

// numeric reads a stats cell as a number. Clock strings become seconds.
func numeric(v any) (float64, bool) {
	if s, ok := v.(string); ok && strings.Count(s, ":") == 2 {
		secs, err := ParseClock(s)
		if err != nil {
			return 0, false
		}
		return float64(secs), true
	}
	f, err := ParseCommaFloat(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// text reads a stats cell as a string.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.DateOnly)
	default:
		return fmt.Sprint(x)
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
