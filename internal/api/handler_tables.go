package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListTables(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, TableList{Tables: tables})
}

func (h *Handler) describeTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	cols, err := h.store.Columns(r.Context(), name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	pk, err := h.store.PrimaryKey(r.Context(), name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tableDetailToAPI(name, cols, pk))
}
