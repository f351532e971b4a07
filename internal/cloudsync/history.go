package cloudsync

import (
	"context"
	"fmt"
	"time"

	"gps-report/internal/domain"
	"gps-report/internal/store"
)

const historyTable = "sync_history"

var historyColumns = []string{
	"id", "direction", "backend", "remote_path", "remote_id",
	"bytes", "status", "message", "started_at", "finished_at",
}

// History records sync runs in the sync_history table of the store.
type History struct {
	store *store.Store
}

// NewHistory creates a History backed by st.
func NewHistory(st *store.Store) *History {
	return &History{store: st}
}

// Record appends rec.
func (h *History) Record(ctx context.Context, rec domain.SyncRecord) error {
	batch := domain.NewRowBatch(historyColumns, []any{
		rec.ID, string(rec.Direction), rec.Backend, rec.RemotePath, rec.RemoteID,
		rec.Bytes, string(rec.Status), rec.Message,
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	})
	if _, err := h.store.InsertTable(ctx, historyTable, batch); err != nil {
		return fmt.Errorf("record sync run %s: %w", rec.ID, err)
	}
	return nil
}

// List returns one page of records, newest first.
func (h *History) List(ctx context.Context, page domain.PageRequest) ([]domain.SyncRecord, string, error) {
	res, err := h.store.Query(ctx,
		`SELECT id, direction, backend, remote_path, remote_id, bytes, status, message, started_at, finished_at
		FROM sync_history ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, "", fmt.Errorf("list sync history: %w", err)
	}

	out := make([]domain.SyncRecord, 0, res.Len())
	for _, row := range res.Rows {
		rec := domain.SyncRecord{
			ID:         asString(row[0]),
			Direction:  domain.SyncDirection(asString(row[1])),
			Backend:    asString(row[2]),
			RemotePath: asString(row[3]),
			RemoteID:   asString(row[4]),
			Status:     domain.SyncStatus(asString(row[6])),
			Message:    asString(row[7]),
			StartedAt:  parseTime(row[8]),
			FinishedAt: parseTime(row[9]),
		}
		if n, ok := row[5].(int64); ok {
			rec.Bytes = n
		}
		out = append(out, rec)
	}
	return out, page.NextPageToken(len(out)), nil
}

// Prune deletes records started before cutoff and returns how many were removed.
func (h *History) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := h.store.Exec(ctx, "DELETE FROM sync_history WHERE started_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune sync history: %w", err)
	}
	return n, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v any) time.Time {
	t, err := time.Parse(timeLayout, asString(v))
	if err != nil {
		return time.Time{}
	}
	return t
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
