package report

import (
	"context"
	"strings"

	"gps-report/internal/domain"
	"gps-report/internal/store"
)

// DefaultProfileTypes are the session types load profiles are built for
// when a query names none.
var DefaultProfileTypes = []string{"Full Training", "Full Match"}

// BandValue is the value of one band column.
type BandValue struct {
	Band   string  `json:"band"`
	Column string  `json:"column"`
	Value  float64 `json:"value"`
}

// AccelProfile sums a player's acceleration and deceleration bands over all
// sessions of one type, by distance and by time.
type AccelProfile struct {
	Type          string      `json:"type"`
	Sessions      int         `json:"sessions"`
	AccelDistance []BandValue `json:"accel_distance"`
	DecelDistance []BandValue `json:"decel_distance"`
	AccelTime     []BandValue `json:"accel_time"`
	DecelTime     []BandValue `json:"decel_time"`
}

// VelocityProfile lists a player's distance and time per velocity band on
// each session date of one type.
type VelocityProfile struct {
	Type   string          `json:"type"`
	Bands  []string        `json:"bands"`
	Points []VelocityPoint `json:"points"`
}

// VelocityPoint is one session date of a VelocityProfile.
type VelocityPoint struct {
	Date     string      `json:"date"`
	Distance []BandValue `json:"distance"`
	Time     []BandValue `json:"time"`
}

// AccelProfiles builds one AccelProfile per session type. Types with no
// session for the player are omitted. Band columns missing from the stats
// table are skipped.
func (s *Service) AccelProfiles(ctx context.Context, q PlayerQuery) ([]AccelProfile, error) {
	rows, mine, err := s.playerRows(ctx, q)
	if err != nil {
		return nil, err
	}

	var out []AccelProfile
	for _, typ := range profileTypes(q) {
		idx := ofType(rows, mine, typ)
		if len(idx) == 0 {
			continue
		}
		out = append(out, AccelProfile{
			Type:          typ,
			Sessions:      len(idx),
			AccelDistance: sumBands(rows, idx, pairBands(AccelBands, accelColumns("D"))),
			DecelDistance: sumBands(rows, idx, pairBands(DecelBands, decelColumns("D"))),
			AccelTime:     sumBands(rows, idx, pairBands(AccelBands, accelColumns("T"))),
			DecelTime:     sumBands(rows, idx, pairBands(DecelBands, decelColumns("T"))),
		})
	}
	return out, nil
}

// VelocityProfiles builds one VelocityProfile per session type over the
// selected bands (all bands when none are given), in lower-bound order. A
// band that is not one of VelocityBands is a ValidationError.
func (s *Service) VelocityProfiles(ctx context.Context, q PlayerQuery, bands []string) ([]VelocityProfile, error) {
	if len(bands) == 0 {
		bands = VelocityBands
	}
	sorted, err := SortVelocityBands(bands)
	if err != nil {
		return nil, domain.ErrValidation("%s", err.Error())
	}
	distCols, timeCols := FilterVelocityColumns(sorted, VelocityDistanceColumns, VelocityTimeColumns)
	known := make(map[string]bool, len(distCols)+len(timeCols))
	for _, bc := range distCols {
		known[bc.Band] = true
	}
	for _, bc := range timeCols {
		known[bc.Band] = true
	}
	for _, b := range sorted {
		if !known[b] {
			return nil, domain.ErrValidation("unknown velocity band %q: use one of %s", b, strings.Join(VelocityBands, ", "))
		}
	}

	rows, mine, err := s.playerRows(ctx, q)
	if err != nil {
		return nil, err
	}

	var out []VelocityProfile
	for _, typ := range profileTypes(q) {
		idx := ofType(rows, mine, typ)
		if len(idx) == 0 {
			continue
		}
		p := VelocityProfile{Type: typ, Bands: sorted, Points: make([]VelocityPoint, 0, len(idx))}
		for _, i := range idx {
			p.Points = append(p.Points, VelocityPoint{
				Date:     text(rows.Value(i, "date")),
				Distance: sumBands(rows, []int{i}, distCols),
				Time:     sumBands(rows, []int{i}, timeCols),
			})
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) playerRows(ctx context.Context, q PlayerQuery) (*store.Result, []int, error) {
	if q.Player == "" {
		return nil, nil, domain.ErrValidation("player is required")
	}
	rows, err := s.Stats(ctx, Filter{Dates: q.Dates})
	if err != nil {
		return nil, nil, err
	}
	if err := requireColumns(rows, []string{"Player", "date", "type"}); err != nil {
		return nil, nil, err
	}
	mine, _ := splitPlayer(rows, q.Player)
	if len(mine) == 0 {
		return nil, nil, domain.ErrNotFound("player %q has no sessions in the selected dates", q.Player)
	}
	return rows, mine, nil
}

func profileTypes(q PlayerQuery) []string {
	if len(q.Types) > 0 {
		return q.Types
	}
	return DefaultProfileTypes
}

func ofType(rows *store.Result, idx []int, typ string) []int {
	var out []int
	for _, i := range idx {
		if text(rows.Value(i, "type")) == typ {
			out = append(out, i)
		}
	}
	return out
}

// sumBands sums each band's column over the rows in idx. Columns missing
// from rows are skipped.
func sumBands(rows *store.Result, idx []int, pairs []BandColumn) []BandValue {
	out := []BandValue{}
	for _, bc := range pairs {
		if rows.Index(bc.Column) < 0 {
			continue
		}
		var sum float64
		for _, i := range idx {
			if v, ok := numeric(rows.Value(i, bc.Column)); ok {
				sum += v
			}
		}
		out = append(out, BandValue{Band: bc.Band, Column: bc.Column, Value: round2(sum)})
	}
	return out
}
