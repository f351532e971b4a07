package cloudsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gps-report/internal/db"
	"gps-report/internal/domain"
	"gps-report/internal/store"
)

// Syncer pushes the store file to a remote directory and pulls it back.
// One push or pull runs at a time; a second concurrent call fails with a
// ConflictError.
type Syncer struct {
	remote    Remote
	history   *History
	dbPath    string
	remoteDir string
	logger    *slog.Logger

	mu     sync.Mutex
	onPull []func()
}

// NewSyncer creates a Syncer for st's file. remote may be nil, in which case
// transfers fail with an UnavailableError while History still works.
func NewSyncer(remote Remote, st *store.Store, remoteDir string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		remote:    remote,
		history:   NewHistory(st),
		dbPath:    st.Path(),
		remoteDir: remoteDir,
		logger:    logger,
	}
}

// OnPull registers fn to run after a successful pull replaced the store file.
// Register hooks before the first pull.
func (s *Syncer) OnPull(fn func()) {
	s.onPull = append(s.onPull, fn)
}

// Enabled reports whether a remote is configured.
func (s *Syncer) Enabled() bool { return s.remote != nil }

// RemoteDir returns the remote directory the store file is synced to.
func (s *Syncer) RemoteDir() string { return s.remoteDir }

// Push checkpoints the store file and uploads it.
func (s *Syncer) Push(ctx context.Context) (*domain.SyncRecord, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	rec := s.newRecord(domain.SyncPush)
	remoteID, size, err := s.push(ctx)
	rec.RemoteID = remoteID
	rec.Bytes = size
	return s.finish(ctx, rec, err)
}

func (s *Syncer) push(ctx context.Context) (string, int64, error) {
	if err := db.Checkpoint(ctx, s.dbPath); err != nil {
		return "", 0, err
	}
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return "", 0, fmt.Errorf("stat store file: %w", err)
	}
	id, err := s.remote.Upload(ctx, s.dbPath, s.remoteDir)
	if err != nil {
		return "", 0, err
	}
	return id, info.Size(), nil
}

// Pull downloads the remote copy of the store file and swaps it in place of
// the local one. The local file is untouched when the download fails or the
// remote copy does not exist; the latter is recorded as skipped.
func (s *Syncer) Pull(ctx context.Context) (*domain.SyncRecord, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	rec := s.newRecord(domain.SyncPull)
	found, size, err := s.pull(ctx)
	rec.Bytes = size
	if err == nil && !found {
		rec.Status = domain.SyncSkipped
		rec.Message = fmt.Sprintf("%s not found in %s", rec.RemotePath, s.remote.Backend())
		s.logger.Info("nothing to pull", "remote_path", rec.RemotePath)
	}
	out, err := s.finish(ctx, rec, err)
	if err == nil && found {
		for _, fn := range s.onPull {
			fn()
		}
	}
	return out, err
}

func (s *Syncer) pull(ctx context.Context) (bool, int64, error) {
	dir := filepath.Dir(s.dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, 0, fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.dbPath)+".pull-*")
	if err != nil {
		return false, 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath) //nolint:errcheck

	found, err := s.remote.Download(ctx, filepath.Base(s.dbPath), s.remoteDir, tmpPath)
	if err != nil || !found {
		return false, 0, err
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		return false, 0, fmt.Errorf("stat downloaded file: %w", err)
	}

	// Stale WAL frames would be replayed onto the new file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(s.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return false, 0, fmt.Errorf("remove %s: %w", suffix, err)
		}
	}
	if err := os.Rename(tmpPath, s.dbPath); err != nil {
		return false, 0, fmt.Errorf("replace store file: %w", err)
	}
	// An older remote copy may predate the latest migrations.
	if err := db.Migrate(s.dbPath); err != nil {
		return true, info.Size(), fmt.Errorf("migrate pulled store: %w", err)
	}
	return true, info.Size(), nil
}

// List returns the entries of the remote directory.
func (s *Syncer) List(ctx context.Context, limit int) ([]domain.RemoteFile, error) {
	if s.remote == nil {
		return nil, domain.ErrUnavailable("cloud sync is not configured")
	}
	return s.remote.List(ctx, s.remoteDir, limit)
}

// Delete removes the file name from the remote directory and reports
// whether it was found. An empty name means the store file.
func (s *Syncer) Delete(ctx context.Context, name string) (bool, error) {
	if name == "" {
		name = filepath.Base(s.dbPath)
	}
	if strings.Contains(name, "/") {
		return false, domain.ErrValidation("remote file name %q must not contain '/'", name)
	}
	if err := s.acquire(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	key := ObjectKey(s.remoteDir, name)
	found, err := s.remote.Delete(ctx, name, s.remoteDir)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	s.logger.Info("remote file deleted", "backend", s.remote.Backend(), "remote_path", key, "found", found)
	return found, nil
}

// Tree lists everything under the remote directory, depth first. Only
// remotes with folders support it.
func (s *Syncer) Tree(ctx context.Context) ([]TreeEntry, error) {
	b, err := s.browser()
	if err != nil {
		return nil, err
	}
	return b.Tree(ctx, s.remoteDir)
}

// Folders lists the folders directly inside the remote directory.
func (s *Syncer) Folders(ctx context.Context) ([]domain.RemoteFile, error) {
	b, err := s.browser()
	if err != nil {
		return nil, err
	}
	return b.Folders(ctx, s.remoteDir)
}

// DeleteFolder removes the folder at the relative path sub inside the remote
// directory, with everything in it, and reports whether it was found.
func (s *Syncer) DeleteFolder(ctx context.Context, sub string) (bool, error) {
	segs := SplitPath(sub)
	if len(segs) == 0 {
		return false, domain.ErrValidation("folder path is required")
	}
	b, err := s.browser()
	if err != nil {
		return false, err
	}
	if !s.mu.TryLock() {
		return false, domain.ErrConflict("a sync run is already in progress")
	}
	defer s.mu.Unlock()

	dir := ObjectKey(s.remoteDir, strings.Join(segs, "/"))
	found, err := b.DeleteFolder(ctx, dir)
	if err != nil {
		return false, fmt.Errorf("delete folder %s: %w", dir, err)
	}
	s.logger.Info("remote folder deleted", "backend", s.remote.Backend(), "remote_path", dir, "found", found)
	return found, nil
}

func (s *Syncer) browser() (Browser, error) {
	if s.remote == nil {
		return nil, domain.ErrUnavailable("cloud sync is not configured")
	}
	b, ok := s.remote.(Browser)
	if !ok {
		return nil, domain.ErrValidation("the %s remote has no folders", s.remote.Backend())
	}
	return b, nil
}

// History returns one page of past sync runs, newest first.
func (s *Syncer) History(ctx context.Context, page domain.PageRequest) ([]domain.SyncRecord, string, error) {
	return s.history.List(ctx, page)
}

// PruneHistory removes sync runs started more than olderThan ago.
func (s *Syncer) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, domain.ErrValidation("prune age must be positive, got %s", olderThan)
	}
	n, err := s.history.Prune(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	s.logger.Info("sync history pruned", "older_than", olderThan.String(), "removed", n)
	return n, nil
}

func (s *Syncer) acquire() error {
	if s.remote == nil {
		return domain.ErrUnavailable("cloud sync is not configured")
	}
	if !s.mu.TryLock() {
		return domain.ErrConflict("a sync run is already in progress")
	}
	return nil
}

func (s *Syncer) newRecord(dir domain.SyncDirection) domain.SyncRecord {
	return domain.SyncRecord{
		ID:         uuid.NewString(),
		Direction:  dir,
		Backend:    s.remote.Backend(),
		RemotePath: ObjectKey(s.remoteDir, filepath.Base(s.dbPath)),
		Status:     domain.SyncSucceeded,
		StartedAt:  time.Now(),
	}
}

// finish stamps rec with the outcome of runErr and records it. A history
// write failure is logged, not returned.
func (s *Syncer) finish(ctx context.Context, rec domain.SyncRecord, runErr error) (*domain.SyncRecord, error) {
	rec.FinishedAt = time.Now()
	if runErr != nil {
		rec.Status = domain.SyncFailed
		rec.Message = runErr.Error()
	}

	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn("record sync history", "id", rec.ID, "error", err)
	}

	attrs := []any{
		"id", rec.ID,
		"direction", rec.Direction,
		"backend", rec.Backend,
		"remote_path", rec.RemotePath,
		"bytes", rec.Bytes,
		"duration", rec.FinishedAt.Sub(rec.StartedAt),
	}
	if runErr != nil {
		s.logger.Error("sync failed", append(attrs, "error", runErr)...)
		return &rec, fmt.Errorf("%s %s: %w", rec.Direction, rec.RemotePath, runErr)
	}
	s.logger.Info("sync finished", append(attrs, "status", rec.Status)...)
	return &rec, nil
}
