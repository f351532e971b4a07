package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"gps-report/internal/domain"
)

var _ Remote = (*GCSRemote)(nil)

// GCSRemote stores files as objects in a Google Cloud Storage bucket; the
// remote directory is a key prefix.
type GCSRemote struct {
	client *storage.Client
	bucket string
}

// NewGCSRemote creates a GCS remote for bucket. With an empty keyFile the
// client uses application default credentials.
func NewGCSRemote(ctx context.Context, bucket, keyFile string) (*GCSRemote, error) {
	var opts []option.ClientOption
	if keyFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, keyFile))
	}
	return NewGCSRemoteWithOptions(ctx, bucket, opts...)
}

// NewGCSRemoteWithOptions creates a GCS remote from explicit client options,
// such as a custom endpoint.
func NewGCSRemoteWithOptions(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSRemote, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSRemote{client: client, bucket: bucket}, nil
}

// Backend implements Remote.
func (g *GCSRemote) Backend() string { return BackendGCS }

// Upload implements Remote.
func (g *GCSRemote) Upload(ctx context.Context, localPath, remoteDir string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("gcs: open %s: %w", localPath, err)
	}
	defer f.Close() //nolint:errcheck

	key := ObjectKey(remoteDir, filepath.Base(localPath))
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: upload %s: %w", key, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, key), nil
}

// Download implements Remote.
func (g *GCSRemote) Download(ctx context.Context, name, remoteDir, localPath string) (bool, error) {
	key := ObjectKey(remoteDir, name)
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gcs: download %s: %w", key, err)
	}
	defer r.Close() //nolint:errcheck

	if err := writeFile(localPath, r); err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements Remote.
func (g *GCSRemote) Delete(ctx context.Context, name, remoteDir string) (bool, error) {
	key := ObjectKey(remoteDir, name)
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gcs: delete %s: %w", key, err)
	}
	return true, nil
}

// List implements Remote.
func (g *GCSRemote) List(ctx context.Context, remoteDir string, limit int) ([]domain.RemoteFile, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: keyPrefix(remoteDir)})
	out := []domain.RemoteFile{}
	for limit <= 0 || len(out) < limit {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", remoteDir, err)
		}
		out = append(out, domain.RemoteFile{
			ID:       attrs.Name,
			Name:     baseName(attrs.Name),
			Size:     attrs.Size,
			Modified: attrs.Updated,
		})
	}
	return out, nil
}

// Close releases the client.
func (g *GCSRemote) Close() error { return g.client.Close() }
