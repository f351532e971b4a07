// Package cloudsync copies the SQLite store file to and from a remote folder
// (Google Drive, GCS, S3, or Azure Blob) and records each transfer.
//
// Remotes are thin sequential wrappers: no retry, rate limiting, or conflict
// resolution. An absent file or folder is reported as false or an empty
// listing, not as an error.
package cloudsync

import (
	"context"

	"gps-report/internal/domain"
)

// Backend names accepted by New.
const (
	BackendDrive = "drive"
	BackendGCS   = "gcs"
	BackendS3    = "s3"
	BackendAzure = "azure"
	BackendNone  = "none"
)

// Remote stores whole files under a slash-separated remote directory.
type Remote interface {
	// Backend returns the backend name recorded in sync history.
	Backend() string
	// Upload creates or replaces the file named after localPath's base name
	// inside remoteDir and returns its remote identifier.
	Upload(ctx context.Context, localPath, remoteDir string) (string, error)
	// Download writes the remote file name in remoteDir to localPath and
	// reports whether it was found.
	Download(ctx context.Context, name, remoteDir, localPath string) (bool, error)
	// Delete removes the remote file name in remoteDir and reports whether
	// it was found.
	Delete(ctx context.Context, name, remoteDir string) (bool, error)
	// List returns up to limit entries of remoteDir (all when limit <= 0).
	List(ctx context.Context, remoteDir string, limit int) ([]domain.RemoteFile, error)
}

// Browser is implemented by remotes with real folders (Drive). Object
// stores only have key prefixes and do not implement it.
type Browser interface {
	// Tree lists everything under remoteDir, depth first.
	Tree(ctx context.Context, remoteDir string) ([]TreeEntry, error)
	// Folders lists the folders directly inside remoteDir.
	Folders(ctx context.Context, remoteDir string) ([]domain.RemoteFile, error)
	// DeleteFolder removes remoteDir with everything inside it and reports
	// whether it was found.
	DeleteFolder(ctx context.Context, remoteDir string) (bool, error)
}

// TreeEntry is one item of a folder tree with its path relative to the
// listed folder.
type TreeEntry struct {
	Path string            `json:"path"`
	File domain.RemoteFile `json:"file"`
}
