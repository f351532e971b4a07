package cloudsync

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeGCS serves the JSON API object endpoints of one bucket from memory.
type fakeGCS struct {
	mu       sync.Mutex
	objects  map[string]string
	requests []string
}

const gcsObjectsPath = "/storage/v1/b/gps-bucket/o"

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, gcsObjectsPath)
	if !ok {
		writeGCSError(w, http.StatusNotFound, "no such bucket")
		return
	}
	key := strings.TrimPrefix(rest, "/")
	if key == "" && r.Method == http.MethodGet {
		f.list(w, r.URL.Query().Get("prefix"))
		return
	}
	f.requests = append(f.requests, r.Method+" "+key)

	body, exists := f.objects[key]
	if !exists {
		writeGCSError(w, http.StatusNotFound, "No such object: gps-bucket/"+key)
		return
	}
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeGCSError(w, http.StatusMethodNotAllowed, r.Method)
	}
}

// list always returns a next page token so callers must stop on their own.
func (f *fakeGCS) list(w http.ResponseWriter, prefix string) {
	f.requests = append(f.requests, "LIST "+prefix)
	items := []map[string]string{}
	for _, key := range slices.Sorted(maps.Keys(f.objects)) {
		if strings.HasPrefix(key, prefix) {
			items = append(items, map[string]string{
				"kind":    "storage#object",
				"bucket":  "gps-bucket",
				"name":    key,
				"size":    fmt.Sprint(len(f.objects[key])),
				"updated": "2024-03-01T10:00:00Z",
			})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"kind":          "storage#objects",
		"items":         items,
		"nextPageToken": "more",
	})
}

func (f *fakeGCS) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func writeGCSError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, msg)
}

func newFakeGCS(t *testing.T, objects map[string]string) (*GCSRemote, *fakeGCS) {
	t.Helper()
	fake := &fakeGCS{objects: objects}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	g, err := NewGCSRemoteWithOptions(context.Background(), "gps-bucket",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
		storage.WithJSONReads(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g, fake
}

func TestNewGCSRemote_RequiresBucket(t *testing.T) {
	_, err := NewGCSRemoteWithOptions(context.Background(), "")
	require.ErrorContains(t, err, "bucket is required")
}

func TestGCSRemote_Download(t *testing.T) {
	g, fake := newFakeGCS(t, map[string]string{"club/gps/gps_data.db": "sqlite"})
	ctx := context.Background()
	local := filepath.Join(t.TempDir(), "out.db")

	found, err := g.Download(ctx, "gps_data.db", "club/gps", local)
	require.NoError(t, err)
	assert.True(t, found)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", string(data))

	missing := filepath.Join(t.TempDir(), "missing.db")
	found, err = g.Download(ctx, "missing.db", "club/gps", missing)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoFileExists(t, missing)

	assert.Equal(t, []string{"GET club/gps/gps_data.db", "GET club/gps/missing.db"}, fake.Requests())
}

func TestGCSRemote_DeleteMissingIsFalse(t *testing.T) {
	g, fake := newFakeGCS(t, map[string]string{"club/gps/old.db": "x"})
	ctx := context.Background()

	found, err := g.Delete(ctx, "old.db", "club/gps")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = g.Delete(ctx, "old.db", "club/gps")
	require.NoError(t, err)
	assert.False(t, found)

	assert.Equal(t, []string{"DELETE club/gps/old.db", "DELETE club/gps/old.db"}, fake.Requests())
}

func TestGCSRemote_ListStopsAtLimit(t *testing.T) {
	g, fake := newFakeGCS(t, map[string]string{
		"club/gps/a.db":   "a",
		"club/gps/b.db":   "bb",
		"club/gps/c.db":   "ccc",
		"club/other/x.db": "x",
	})

	files, err := g.List(context.Background(), "/club/gps", 2)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "club/gps/a.db", files[0].ID)
	assert.Equal(t, "b.db", files[1].Name)
	assert.Equal(t, int64(2), files[1].Size)
	assert.False(t, files[0].Modified.IsZero())

	assert.Equal(t, []string{"LIST club/gps/"}, fake.Requests())
}
