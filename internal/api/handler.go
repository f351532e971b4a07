// Package api provides the HTTP handlers of the GPS report API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gps-report/internal/cloudsync"
	"gps-report/internal/report"
	"gps-report/internal/store"
)

// Handler serves the report, table, and sync endpoints.
type Handler struct {
	reports *report.Service
	store   *store.Store
	syncer  *cloudsync.Syncer
	logger  *slog.Logger
}

// NewHandler creates a Handler. syncer may be nil when the binary is built
// without sync; the sync endpoints then answer 503.
func NewHandler(reports *report.Service, st *store.Store, syncer *cloudsync.Syncer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reports: reports, store: st, syncer: syncer, logger: logger}
}

// Routes mounts the endpoints on r. Callers mount it under /v1.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.healthz)

	r.Get("/files", h.listFiles)
	r.Get("/stats", h.getStats)
	r.Get("/metrics", h.getMetrics)
	r.Get("/filters", h.getFilters)
	r.Get("/sessions/overview", h.sessionOverview)
	r.Route("/players/{player}", func(r chi.Router) {
		r.Get("/overview", h.playerOverview)
		r.Get("/acceleration", h.accelProfiles)
		r.Get("/velocity", h.velocityProfiles)
	})
	r.Get("/cache", h.cacheStats)
	r.Post("/cache/invalidate", h.invalidateCache)

	r.Get("/tables", h.listTables)
	r.Get("/tables/{table}", h.describeTable)

	r.Route("/sync", func(r chi.Router) {
		r.Post("/push", h.syncPush)
		r.Post("/pull", h.syncPull)
		r.Get("/history", h.syncHistory)
		r.Get("/files", h.syncFiles)
		r.Delete("/files/{name}", h.syncDeleteFile)
		r.Get("/tree", h.syncTree)
		r.Get("/folders", h.syncFolders)
		r.Delete("/folders", h.syncDeleteFolder)
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.TableExists(r.Context(), report.FilesTable); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
