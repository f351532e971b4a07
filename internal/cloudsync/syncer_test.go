package cloudsync

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gps-report/internal/db"
	"gps-report/internal/domain"
	"gps-report/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestSyncer(t *testing.T, remote Remote) (*Syncer, *store.Store) {
	t.Helper()
	st := store.New(db.TestDBPath(t), discardLogger())
	return NewSyncer(remote, st, "club/gps", discardLogger()), st
}

func seedKV(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.CreateTable(ctx, domain.TableDescriptor{
		Name:       "kv",
		Columns:    []domain.ColumnDef{{Name: "k", Type: "INTEGER"}, {Name: "v", Type: "TEXT"}},
		PrimaryKey: []string{"k"},
	}))
	_, err := st.InsertTable(ctx, "kv", domain.NewRowBatch([]string{"k", "v"},
		[]any{int64(1), "a"}, []any{int64(2), "b"}))
	require.NoError(t, err)
}

func TestSyncer_PushRecordsHistory(t *testing.T) {
	remote := newMemRemote()
	s, st := newTestSyncer(t, remote)
	seedKV(t, st)

	rec, err := s.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPush, rec.Direction)
	assert.Equal(t, domain.SyncSucceeded, rec.Status)
	assert.Equal(t, "club/gps/test.db", rec.RemotePath)
	assert.Equal(t, "mem://club/gps/test.db", rec.RemoteID)
	assert.Positive(t, rec.Bytes)
	assert.NotEmpty(t, rec.ID)

	files, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "test.db", files[0].Name)

	hist, next, err := s.History(context.Background(), domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, hist, 1)
	assert.Equal(t, rec.ID, hist[0].ID)
	assert.Equal(t, "mem", hist[0].Backend)
	assert.Equal(t, rec.Bytes, hist[0].Bytes)
	assert.WithinDuration(t, rec.StartedAt, hist[0].StartedAt, time.Millisecond)
}

func TestSyncer_PushFailureIsRecorded(t *testing.T) {
	remote := newMemRemote()
	remote.failErr = errRemoteDown
	s, _ := newTestSyncer(t, remote)

	rec, err := s.Push(context.Background())
	require.ErrorIs(t, err, errRemoteDown)
	assert.Equal(t, domain.SyncFailed, rec.Status)

	hist, _, err := s.History(context.Background(), domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.SyncFailed, hist[0].Status)
	assert.Contains(t, hist[0].Message, "remote unreachable")
}

func TestSyncer_PullReplacesStoreFile(t *testing.T) {
	remote := newMemRemote()
	src, srcStore := newTestSyncer(t, remote)
	seedKV(t, srcStore)
	_, err := src.Push(context.Background())
	require.NoError(t, err)

	dst, dstStore := newTestSyncer(t, remote)
	pulled := 0
	dst.OnPull(func() { pulled++ })

	rec, err := dst.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSucceeded, rec.Status)
	assert.Equal(t, 1, pulled)

	res, err := dstStore.SelectFrom(context.Background(), "kv", []string{"k", "v"}, "")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), "b"}}, res.Rows)

	hist, _, err := dst.History(context.Background(), domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, domain.SyncPull, hist[0].Direction)
}

func TestSyncer_PullMissingIsSkipped(t *testing.T) {
	s, st := newTestSyncer(t, newMemRemote())
	seedKV(t, st)
	pulled := 0
	s.OnPull(func() { pulled++ })

	rec, err := s.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSkipped, rec.Status)
	assert.Zero(t, pulled)

	ok, err := st.TableExists(context.Background(), "kv")
	require.NoError(t, err)
	assert.True(t, ok, "local store must be untouched")

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(st.Path()), "*.pull-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSyncer_NotConfigured(t *testing.T) {
	s, _ := newTestSyncer(t, nil)
	assert.False(t, s.Enabled())

	_, err := s.Push(context.Background())
	var unavailable *domain.UnavailableError
	require.ErrorAs(t, err, &unavailable)

	_, err = s.Pull(context.Background())
	require.ErrorAs(t, err, &unavailable)

	_, err = s.List(context.Background(), 10)
	require.ErrorAs(t, err, &unavailable)

	_, err = s.Delete(context.Background(), "")
	require.ErrorAs(t, err, &unavailable)

	_, err = s.Tree(context.Background())
	require.ErrorAs(t, err, &unavailable)

	_, err = s.DeleteFolder(context.Background(), "2024")
	require.ErrorAs(t, err, &unavailable)

	hist, _, err := s.History(context.Background(), domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestSyncer_Delete(t *testing.T) {
	remote := newMemRemote()
	s, st := newTestSyncer(t, remote)
	seedKV(t, st)
	ctx := context.Background()

	_, err := s.Push(ctx)
	require.NoError(t, err)
	remote.objects["club/gps/old.db"] = []byte("x")

	found, err := s.Delete(ctx, "old.db")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotContains(t, remote.objects, "club/gps/old.db")

	found, err = s.Delete(ctx, "old.db")
	require.NoError(t, err)
	assert.False(t, found)

	// An empty name is the store file.
	found, err = s.Delete(ctx, "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, remote.objects)
}

func TestSyncer_DeleteRejectsNestedName(t *testing.T) {
	remote := newMemRemote()
	remote.objects["club/gps/a/b.db"] = []byte("x")
	s, _ := newTestSyncer(t, remote)

	_, err := s.Delete(context.Background(), "a/b.db")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, remote.objects, "club/gps/a/b.db")
}

func TestSyncer_FoldersNeedBrowser(t *testing.T) {
	s, _ := newTestSyncer(t, newMemRemote())
	ctx := context.Background()
	var validation *domain.ValidationError

	_, err := s.Tree(ctx)
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Message, "mem remote has no folders")

	_, err = s.Folders(ctx)
	require.ErrorAs(t, err, &validation)

	_, err = s.DeleteFolder(ctx, "2024")
	require.ErrorAs(t, err, &validation)

	_, err = s.DeleteFolder(ctx, " / ")
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "folder path is required", validation.Message)
}

func TestSyncer_ConcurrentRunConflicts(t *testing.T) {
	remote := newMemRemote()
	remote.block = make(chan struct{})
	remote.entered = make(chan struct{})
	s, _ := newTestSyncer(t, remote)

	done := make(chan error, 1)
	go func() {
		_, err := s.Push(context.Background())
		done <- err
	}()

	<-remote.entered

	_, err := s.Pull(context.Background())
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)

	close(remote.block)
	require.NoError(t, <-done)
}

func TestHistory_Paging(t *testing.T) {
	st := store.New(db.TestDBPath(t), discardLogger())
	h := NewHistory(st)
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, h.Record(context.Background(), domain.SyncRecord{
			ID:         string(rune('a' + i)),
			Direction:  domain.SyncPush,
			Backend:    BackendS3,
			RemotePath: "gps/gps_data.db",
			Status:     domain.SyncSucceeded,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}))
	}

	page, next, err := h.List(context.Background(), domain.PageRequest{MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].ID)
	assert.Equal(t, "d", page[1].ID)
	require.NotEmpty(t, next)

	page, _, err = h.List(context.Background(), domain.PageRequest{MaxResults: 2, PageToken: next})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
	assert.True(t, base.Add(2*time.Minute).Equal(page[0].StartedAt))
}

func TestHistory_Prune(t *testing.T) {
	st := store.New(db.TestDBPath(t), discardLogger())
	s := NewSyncer(nil, st, "club/gps", discardLogger())
	h := NewHistory(st)
	ctx := context.Background()
	now := time.Now()
	for i, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, time.Hour} {
		require.NoError(t, h.Record(ctx, domain.SyncRecord{
			ID:        string(rune('a' + i)),
			Direction: domain.SyncPush,
			Status:    domain.SyncSucceeded,
			StartedAt: now.Add(-age),
		}))
	}

	n, err := s.PruneHistory(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	runs, _, err := s.History(ctx, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "c", runs[0].ID)

	n, err = s.PruneHistory(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.PruneHistory(ctx, 0)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}
