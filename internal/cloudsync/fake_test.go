package cloudsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gps-report/internal/domain"
)

// memRemote is an in-memory Remote keyed by object key.
type memRemote struct {
	mu      sync.Mutex
	objects map[string][]byte
	failErr error

	// When block is set, Upload signals entered and waits for block to close.
	block   chan struct{}
	entered chan struct{}
}

func newMemRemote() *memRemote {
	return &memRemote{objects: make(map[string][]byte)}
}

func (m *memRemote) Backend() string { return "mem" }

func (m *memRemote) Upload(_ context.Context, localPath, remoteDir string) (string, error) {
	if m.block != nil {
		close(m.entered)
		<-m.block
	}
	if m.failErr != nil {
		return "", m.failErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	key := ObjectKey(remoteDir, filepath.Base(localPath))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "mem://" + key, nil
}

func (m *memRemote) Download(_ context.Context, name, remoteDir, localPath string) (bool, error) {
	if m.failErr != nil {
		return false, m.failErr
	}
	m.mu.Lock()
	data, ok := m.objects[ObjectKey(remoteDir, name)]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, os.WriteFile(localPath, data, 0o644)
}

func (m *memRemote) Delete(_ context.Context, name, remoteDir string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ObjectKey(remoteDir, name)
	if _, ok := m.objects[key]; !ok {
		return false, nil
	}
	delete(m.objects, key)
	return true, nil
}

func (m *memRemote) List(_ context.Context, remoteDir string, limit int) ([]domain.RemoteFile, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := keyPrefix(remoteDir)
	out := []domain.RemoteFile{}
	for key, data := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, domain.RemoteFile{ID: key, Name: baseName(key), Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var errRemoteDown = errors.New("remote unreachable")
