package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gps-report/internal/domain"
	"gps-report/internal/report"
)

var errTooManyDates = domain.ErrValidation("date: at most two values (from, to) are allowed")

func filterFromQuery(r *http.Request) report.Filter {
	return report.Filter{
		Dates:    queryList(r, "date"),
		Types:    queryList(r, "type"),
		Category: r.URL.Query().Get("category"),
		Players:  queryList(r, "player"),
	}
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.reports.Files(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	if len(f.Dates) > 2 {
		writeError(w, r, h.logger, errTooManyDates)
		return
	}
	res, err := h.reports.Stats(r.Context(), f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resultToAPI(res))
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	g, err := h.reports.Metrics()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	type metric struct {
		report.Metric
		RGB string `json:"rgb"`
	}
	out := make([]metric, len(g))
	for i, m := range g {
		out[i] = metric{Metric: m, RGB: m.RGB()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": out})
}

// getFilters narrows the selector options: types depend on ?category,
// dates on ?category and ?type, players on the full filter.
func (h *Handler) getFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := r.URL.Query().Get("category")
	sessionType := r.URL.Query().Get("type")

	var out Filters
	var err error
	if out.Categories, err = h.reports.Categories(ctx); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out.Types, err = h.reports.SessionTypes(ctx, category); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out.Dates, err = h.reports.SessionDates(ctx, category, sessionType); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out.From, out.To, err = h.reports.DateRange(ctx); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out.Players, err = h.reports.Players(ctx, filterFromQuery(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if out.Players == nil {
		out.Players = []string{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) sessionOverview(w http.ResponseWriter, r *http.Request) {
	asc, err := queryBool(r, "ascending")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q := report.SessionQuery{
		Category:  r.URL.Query().Get("category"),
		Type:      r.URL.Query().Get("type"),
		Date:      r.URL.Query().Get("date"),
		Metrics:   queryList(r, "metric"),
		SortBy:    r.URL.Query().Get("sort"),
		Ascending: asc,
	}
	out, err := h.reports.SessionOverview(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func playerQuery(r *http.Request) report.PlayerQuery {
	return report.PlayerQuery{
		Player:  chi.URLParam(r, "player"),
		Dates:   queryList(r, "date"),
		Types:   queryList(r, "type"),
		Metrics: queryList(r, "metric"),
	}
}

func (h *Handler) playerOverview(w http.ResponseWriter, r *http.Request) {
	out, err := h.reports.PlayerOverview(r.Context(), playerQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) accelProfiles(w http.ResponseWriter, r *http.Request) {
	out, err := h.reports.AccelProfiles(r.Context(), playerQuery(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

func (h *Handler) velocityProfiles(w http.ResponseWriter, r *http.Request) {
	out, err := h.reports.VelocityProfiles(r.Context(), playerQuery(r), queryList(r, "band"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

func (h *Handler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.reports.CacheStats())
}

func (h *Handler) invalidateCache(w http.ResponseWriter, _ *http.Request) {
	h.reports.Invalidate()
	writeJSON(w, http.StatusOK, h.reports.CacheStats())
}
