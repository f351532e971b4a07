package report

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"gps-report/internal/domain"
	"gps-report/internal/store"
)

// Sort orders for SessionQuery.SortBy.
const (
	SortByMetric = "metric"
	SortByPlayer = "player"
)

// SessionQuery selects one session and the metrics to compare across its
// players.
type SessionQuery struct {
	Category  string
	Type      string
	Date      string
	Metrics   []string
	SortBy    string
	Ascending bool
}

// SessionOverview compares the players of one session.
type SessionOverview struct {
	Category        string         `json:"category"`
	Type            string         `json:"type"`
	Date            string         `json:"date"`
	PlayersInvolved int            `json:"players_involved"`
	SessionMinutes  float64        `json:"session_minutes"`
	Panels          []SessionPanel `json:"panels"`
}

// SessionPanel holds one metric's per-player values.
type SessionPanel struct {
	Metric  string       `json:"metric"`
	Unit    string       `json:"unit,omitempty"`
	Color   string       `json:"color,omitempty"`
	Average float64      `json:"average"`
	Bars    []SessionBar `json:"bars"`
}

// SessionBar is one player's value and its deviation from the session
// average in percent.
type SessionBar struct {
	Player   string  `json:"player"`
	Value    float64 `json:"value"`
	DeltaPct float64 `json:"delta_pct"`
}

// SessionOverview builds per-player bars for the selected metrics of one
// session. Players are ordered by value or by name as requested.
func (s *Service) SessionOverview(ctx context.Context, q SessionQuery) (*SessionOverview, error) {
	if q.Category == "" || q.Type == "" || q.Date == "" {
		return nil, domain.ErrValidation("session overview: category, type and date are required")
	}
	if len(q.Metrics) == 0 {
		return nil, domain.ErrValidation("session overview: select at least one metric")
	}
	if q.SortBy == "" {
		q.SortBy = SortByMetric
	}
	if q.SortBy != SortByMetric && q.SortBy != SortByPlayer {
		return nil, domain.ErrValidation("session overview: unknown sort order %q", q.SortBy)
	}

	rows, glossary, err := s.loadWithGlossary(ctx, Filter{
		Dates:    []string{q.Date, q.Date},
		Types:    []string{q.Type},
		Category: q.Category,
	})
	if err != nil {
		return nil, err
	}
	if err := requireColumns(rows, append([]string{"Player"}, q.Metrics...)); err != nil {
		return nil, err
	}

	out := &SessionOverview{Category: q.Category, Type: q.Type, Date: q.Date}
	for i := range rows.Rows {
		if text(rows.Value(i, "Player")) != TeamAverage {
			out.PlayersInvolved++
		}
		if m, ok := numeric(rows.Value(i, "Minutes")); ok && m > out.SessionMinutes {
			out.SessionMinutes = m
		}
	}

	for _, metric := range q.Metrics {
		panel := SessionPanel{Metric: metric, Bars: []SessionBar{}}
		if m, ok := glossary.Lookup(metric); ok {
			panel.Unit, panel.Color = m.Unit, m.RGB()
		}

		var values []float64
		for i := range rows.Rows {
			player := text(rows.Value(i, "Player"))
			v, ok := numeric(rows.Value(i, metric))
			if player == TeamAverage || !ok {
				continue
			}
			panel.Bars = append(panel.Bars, SessionBar{Player: player, Value: v})
			values = append(values, v)
		}
		panel.Average = mean(values)
		for i := range panel.Bars {
			panel.Bars[i].DeltaPct = deltaPct(panel.Bars[i].Value, panel.Average)
		}
		sortBars(panel.Bars, q.SortBy, q.Ascending)
		out.Panels = append(out.Panels, panel)
	}
	return out, nil
}

func sortBars(bars []SessionBar, by string, ascending bool) {
	less := func(i, j int) bool {
		if by == SortByPlayer {
			return bars[i].Player < bars[j].Player
		}
		return bars[i].Value < bars[j].Value
	}
	if ascending {
		sort.SliceStable(bars, less)
		return
	}
	sort.SliceStable(bars, func(i, j int) bool { return less(j, i) })
}

// PlayerQuery selects one player's sessions over a date range.
type PlayerQuery struct {
	Player  string
	Dates   []string
	Types   []string
	Metrics []string
}

// PlayerOverview compares a player with the team average, session by session.
type PlayerOverview struct {
	Player string        `json:"player"`
	Dates  []string      `json:"dates"`
	Panels []PlayerPanel `json:"panels"`
}

// PlayerPanel holds one metric for one session type. DeltaPct is the mean
// per-session deviation of the player from the team average in percent.
type PlayerPanel struct {
	Metric     string        `json:"metric"`
	Type       string        `json:"type"`
	Unit       string        `json:"unit,omitempty"`
	Color      string        `json:"color,omitempty"`
	PlayerMean float64       `json:"player_mean"`
	TeamMean   float64       `json:"team_mean"`
	DeltaPct   float64       `json:"delta_pct"`
	Points     []PlayerPoint `json:"points"`
}

// PlayerPoint is one session date. Team fields are nil when the session has
// no team average row.
type PlayerPoint struct {
	Date        string   `json:"date"`
	Value       float64  `json:"value"`
	Minutes     float64  `json:"minutes"`
	TeamAverage *float64 `json:"team_average"`
	TeamMinutes *float64 `json:"team_minutes"`
}

// PlayerOverview builds, per session type and metric, the player's value on
// each session date next to the team average of that session.
func (s *Service) PlayerOverview(ctx context.Context, q PlayerQuery) (*PlayerOverview, error) {
	if q.Player == "" {
		return nil, domain.ErrValidation("player overview: player is required")
	}
	if len(q.Metrics) == 0 {
		return nil, domain.ErrValidation("player overview: select at least one metric")
	}

	rows, glossary, err := s.loadWithGlossary(ctx, Filter{Dates: q.Dates})
	if err != nil {
		return nil, err
	}
	if err := requireColumns(rows, append([]string{"Player", "date", "type"}, q.Metrics...)); err != nil {
		return nil, err
	}
	playerRows, teamRows := splitPlayer(rows, q.Player)
	if len(playerRows) == 0 {
		return nil, domain.ErrNotFound("player %q has no sessions in the selected dates", q.Player)
	}

	types := q.Types
	if len(types) == 0 {
		types = distinctValues(rows, playerRows, "type")
	}

	out := &PlayerOverview{Player: q.Player, Dates: distinctValues(rows, playerRows, "date")}
	for _, typ := range types {
		for _, metric := range q.Metrics {
			panel := PlayerPanel{Metric: metric, Type: typ, Points: []PlayerPoint{}}
			if m, ok := glossary.Lookup(metric); ok {
				panel.Unit, panel.Color = m.Unit, m.RGB()
			}

			var mine, team, deltas []float64
			for _, i := range playerRows {
				if text(rows.Value(i, "type")) != typ {
					continue
				}
				v, ok := numeric(rows.Value(i, metric))
				if !ok {
					continue
				}
				date := text(rows.Value(i, "date"))
				pt := PlayerPoint{Date: date, Value: v}
				pt.Minutes, _ = numeric(rows.Value(i, "Minutes"))
				mine = append(mine, v)

				if j, ok := teamRows[sessionKey{date, typ}]; ok {
					if tv, ok := numeric(rows.Value(j, metric)); ok {
						pt.TeamAverage = &tv
						team = append(team, tv)
						if tv != 0 {
							deltas = append(deltas, (tv-v)/tv*-100)
						}
					}
					if tm, ok := numeric(rows.Value(j, "Minutes")); ok {
						pt.TeamMinutes = &tm
					}
				}
				panel.Points = append(panel.Points, pt)
			}
			if len(panel.Points) == 0 {
				continue
			}
			panel.PlayerMean = round2(mean(mine))
			panel.TeamMean = round2(mean(team))
			panel.DeltaPct = round2(mean(deltas))
			out.Panels = append(out.Panels, panel)
		}
	}
	return out, nil
}

type sessionKey struct {
	date string
	typ  string
}

// splitPlayer returns the row indexes of player and the team average row of
// each (date, type) session.
func splitPlayer(rows *store.Result, player string) ([]int, map[sessionKey]int) {
	var mine []int
	team := make(map[sessionKey]int)
	for i := range rows.Rows {
		switch text(rows.Value(i, "Player")) {
		case player:
			mine = append(mine, i)
		case TeamAverage:
			team[sessionKey{text(rows.Value(i, "date")), text(rows.Value(i, "type"))}] = i
		}
	}
	return mine, team
}

func distinctValues(rows *store.Result, idx []int, column string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, i := range idx {
		v := text(rows.Value(i, column))
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// loadWithGlossary loads the stats rows for f and the metrics glossary
// concurrently.
func (s *Service) loadWithGlossary(ctx context.Context, f Filter) (*store.Result, Glossary, error) {
	var (
		rows     *store.Result
		glossary Glossary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.Stats(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		glossary, err = s.Metrics()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rows, glossary, nil
}

func requireColumns(rows *store.Result, columns []string) error {
	for _, c := range columns {
		if rows.Index(c) < 0 {
			return domain.ErrValidation("stats have no column %q", c)
		}
	}
	return nil
}

// deltaPct is the deviation of v from avg in percent, 0 when avg is 0.
func deltaPct(v, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return round2((v/avg - 1) * 100)
}
