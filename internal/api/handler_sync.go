package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gps-report/internal/cloudsync"
	"gps-report/internal/domain"
)

func (h *Handler) syncAvailable(w http.ResponseWriter, r *http.Request) bool {
	if h.syncer == nil {
		writeError(w, r, h.logger, domain.ErrUnavailable("cloud sync is not configured"))
		return false
	}
	return true
}

func (h *Handler) syncPush(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	rec, err := h.syncer.Push(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) syncPull(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	rec, err := h.syncer.Pull(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) syncHistory(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	runs, next, err := h.syncer.History(r.Context(), page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncHistory{Runs: runs, NextPageToken: next})
}

func (h *Handler) syncFiles(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	files, err := h.syncer.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoteListing{RemoteDir: h.syncer.RemoteDir(), Files: files})
}

func (h *Handler) syncDeleteFile(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	name := chi.URLParam(r, "name")
	found, err := h.syncer.Delete(r.Context(), name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResult{Path: cloudsync.ObjectKey(h.syncer.RemoteDir(), name), Found: found})
}

func (h *Handler) syncTree(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	entries, err := h.syncer.Tree(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoteTree{RemoteDir: h.syncer.RemoteDir(), Entries: entries})
}

func (h *Handler) syncFolders(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	folders, err := h.syncer.Folders(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RemoteListing{RemoteDir: h.syncer.RemoteDir(), Files: folders})
}

// syncDeleteFolder removes ?path=, relative to the remote directory.
func (h *Handler) syncDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if !h.syncAvailable(w, r) {
		return
	}
	sub := r.URL.Query().Get("path")
	found, err := h.syncer.DeleteFolder(r.Context(), sub)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResult{Path: cloudsync.ObjectKey(h.syncer.RemoteDir(), sub), Found: found})
}
