package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gps-report/internal/domain"
)

const (
	driveFolderMime = "application/vnd.google-apps.folder"
	driveRoot       = "root"
)

var (
	_ Remote  = (*DriveRemote)(nil)
	_ Browser = (*DriveRemote)(nil)
)

// DriveRemote stores files in Google Drive folders. Remote directories are
// resolved one folder name at a time. The first segment is looked up
// anywhere the account can see, so folders shared with a service account
// resolve; missing folders are created under the account's root.
type DriveRemote struct {
	svc    *drive.Service
	logger *slog.Logger
}

// NewDriveRemote creates a Drive client authenticated with the service
// account key at credentialsFile.
func NewDriveRemote(ctx context.Context, credentialsFile string, logger *slog.Logger) (*DriveRemote, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("drive: credentials file is required")
	}
	return NewDriveRemoteWithOptions(ctx, logger,
		option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile),
		option.WithScopes(drive.DriveScope),
	)
}

// NewDriveRemoteWithOptions creates a Drive client from explicit client options.
func NewDriveRemoteWithOptions(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*DriveRemote, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveRemote{svc: svc, logger: logger}, nil
}

// Backend implements Remote.
func (d *DriveRemote) Backend() string { return BackendDrive }

// FolderID returns the ID of the folder called name, inside parentID when it
// is not empty, or "" when there is none.
func (d *DriveRemote) FolderID(ctx context.Context, name, parentID string) (string, error) {
	res, err := d.svc.Files.List().
		Q(folderQuery(name, parentID)).
		Fields("files(id, name)").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive: lookup folder %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return "", nil
	}
	return res.Files[0].Id, nil
}

// EnsureFolder returns the ID of the folder called name inside parentID,
// creating it when absent.
func (d *DriveRemote) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	id, err := d.FolderID(ctx, name, parentID)
	if err != nil || id != "" {
		return id, err
	}

	meta := &drive.File{Name: name, MimeType: driveFolderMime}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := d.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive: create folder %q: %w", name, err)
	}
	d.logger.Info("drive folder created", "name", name, "id", f.Id)
	return f.Id, nil
}

// resolveDir walks remoteDir and returns the ID of its last folder. An empty
// remoteDir is the root. With create, missing folders are created;
// otherwise a missing folder yields "".
func (d *DriveRemote) resolveDir(ctx context.Context, remoteDir string, create bool) (string, error) {
	segs := SplitPath(remoteDir)
	if len(segs) == 0 {
		return driveRoot, nil
	}

	parent := ""
	for i, name := range segs {
		id, err := d.FolderID(ctx, name, parent)
		if err != nil {
			return "", err
		}
		if id == "" {
			if !create {
				d.logger.Info("drive folder not found", "folder", name, "path", remoteDir)
				return "", nil
			}
			if i == 0 {
				parent = driveRoot
			}
			if id, err = d.EnsureFolder(ctx, name, parent); err != nil {
				return "", err
			}
		}
		parent = id
	}
	return parent, nil
}

// findFile returns the first non-trashed file called name in parentID.
func (d *DriveRemote) findFile(ctx context.Context, name, parentID string) (*drive.File, error) {
	res, err := d.svc.Files.List().
		Q(fileQuery(name, parentID)).
		Fields("files(id, name, parents)").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("drive: lookup file %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return nil, nil
	}
	return res.Files[0], nil
}

// Upload implements Remote. An existing file of the same name in the folder
// gets its content replaced; otherwise a new file is created.
func (d *DriveRemote) Upload(ctx context.Context, localPath, remoteDir string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("drive: open %s: %w", localPath, err)
	}
	defer f.Close() //nolint:errcheck

	parent, err := d.resolveDir(ctx, remoteDir, true)
	if err != nil {
		return "", err
	}
	name := filepath.Base(localPath)
	existing, err := d.findFile(ctx, name, parent)
	if err != nil {
		return "", err
	}

	if existing != nil {
		updated, err := d.svc.Files.Update(existing.Id, &drive.File{Name: name}).
			Media(f).Fields("id").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("drive: update %q: %w", name, err)
		}
		d.logger.Info("drive file updated", "name", name, "path", remoteDir, "id", updated.Id)
		return updated.Id, nil
	}

	created, err := d.svc.Files.Create(&drive.File{Name: name, Parents: []string{parent}}).
		Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive: upload %q: %w", name, err)
	}
	d.logger.Info("drive file uploaded", "name", name, "path", remoteDir, "id", created.Id)
	return created.Id, nil
}

// Download implements Remote.
func (d *DriveRemote) Download(ctx context.Context, name, remoteDir, localPath string) (bool, error) {
	parent, err := d.resolveDir(ctx, remoteDir, false)
	if err != nil || parent == "" {
		return false, err
	}
	file, err := d.findFile(ctx, name, parent)
	if err != nil {
		return false, err
	}
	if file == nil {
		d.logger.Info("drive file not found", "name", name, "path", remoteDir)
		return false, nil
	}

	resp, err := d.svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		if isDriveNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("drive: download %q: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := writeFile(localPath, resp.Body); err != nil {
		return false, err
	}
	d.logger.Info("drive file downloaded", "name", name, "to", localPath)
	return true, nil
}

// Delete implements Remote.
func (d *DriveRemote) Delete(ctx context.Context, name, remoteDir string) (bool, error) {
	parent, err := d.resolveDir(ctx, remoteDir, false)
	if err != nil || parent == "" {
		return false, err
	}
	file, err := d.findFile(ctx, name, parent)
	if err != nil || file == nil {
		return false, err
	}
	if err := d.svc.Files.Delete(file.Id).Context(ctx).Do(); err != nil {
		if isDriveNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("drive: delete %q: %w", name, err)
	}
	d.logger.Info("drive file deleted", "name", name, "path", remoteDir)
	return true, nil
}

// DeleteFolder implements Browser. The root cannot be deleted.
func (d *DriveRemote) DeleteFolder(ctx context.Context, remoteDir string) (bool, error) {
	if len(SplitPath(remoteDir)) == 0 {
		return false, domain.ErrValidation("drive: refusing to delete the root folder")
	}
	id, err := d.resolveDir(ctx, remoteDir, false)
	if err != nil || id == "" {
		return false, err
	}
	if err := d.deleteFolderByID(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DriveRemote) deleteFolderByID(ctx context.Context, folderID string) error {
	children, err := d.children(ctx, folderID, 0)
	if err != nil {
		return err
	}
	for _, c := range children {
		if c.MimeType == driveFolderMime {
			if err := d.deleteFolderByID(ctx, c.Id); err != nil {
				return err
			}
			continue
		}
		if err := d.svc.Files.Delete(c.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("drive: delete %q: %w", c.Name, err)
		}
		d.logger.Debug("drive file deleted", "name", c.Name)
	}
	if err := d.svc.Files.Delete(folderID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive: delete folder %s: %w", folderID, err)
	}
	d.logger.Info("drive folder deleted", "id", folderID)
	return nil
}

// children lists the non-trashed items directly inside folderID, up to
// limit (all when limit <= 0).
func (d *DriveRemote) children(ctx context.Context, folderID string, limit int) ([]*drive.File, error) {
	var out []*drive.File
	call := d.svc.Files.List().
		Q(childrenQuery(folderID)).
		Fields("nextPageToken, files(id, name, mimeType, size, modifiedTime)")
	err := call.Pages(ctx, func(page *drive.FileList) error {
		out = append(out, page.Files...)
		if limit > 0 && len(out) >= limit {
			out = out[:limit]
			return errStopPaging
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return nil, fmt.Errorf("drive: list folder %s: %w", folderID, err)
	}
	return out, nil
}

var errStopPaging = errors.New("stop paging")

// List implements Remote.
func (d *DriveRemote) List(ctx context.Context, remoteDir string, limit int) ([]domain.RemoteFile, error) {
	parent, err := d.resolveDir(ctx, remoteDir, false)
	if err != nil || parent == "" {
		return []domain.RemoteFile{}, err
	}
	files, err := d.children(ctx, parent, limit)
	if err != nil {
		return nil, err
	}
	return toRemoteFiles(files), nil
}

// ListFolders returns the folders directly inside the folder with ID parentID.
func (d *DriveRemote) ListFolders(ctx context.Context, parentID string) ([]domain.RemoteFile, error) {
	files, err := d.children(ctx, parentID, 0)
	if err != nil {
		return nil, err
	}
	out := []domain.RemoteFile{}
	for _, rf := range toRemoteFiles(files) {
		if rf.IsFolder {
			out = append(out, rf)
		}
	}
	return out, nil
}

// Folders implements Browser.
func (d *DriveRemote) Folders(ctx context.Context, remoteDir string) ([]domain.RemoteFile, error) {
	id, err := d.resolveDir(ctx, remoteDir, false)
	if err != nil || id == "" {
		return []domain.RemoteFile{}, err
	}
	return d.ListFolders(ctx, id)
}

// Tree implements Browser.
func (d *DriveRemote) Tree(ctx context.Context, remoteDir string) ([]TreeEntry, error) {
	id, err := d.resolveDir(ctx, remoteDir, false)
	if err != nil || id == "" {
		return []TreeEntry{}, err
	}
	out := []TreeEntry{}
	err = d.walk(ctx, id, "", &out)
	return out, err
}

func (d *DriveRemote) walk(ctx context.Context, folderID, prefix string, out *[]TreeEntry) error {
	files, err := d.children(ctx, folderID, 0)
	if err != nil {
		return err
	}
	for _, rf := range toRemoteFiles(files) {
		p := strings.TrimPrefix(prefix+"/"+rf.Name, "/")
		*out = append(*out, TreeEntry{Path: p, File: rf})
		if rf.IsFolder {
			if err := d.walk(ctx, rf.ID, p, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// AbsolutePath returns the "/"-separated path of the file with ID fileID,
// following first parents up to, and excluding, the drive root.
func (d *DriveRemote) AbsolutePath(ctx context.Context, fileID string) (string, error) {
	var names []string
	id := fileID
	for depth := 0; id != ""; depth++ {
		if depth > 64 {
			return "", fmt.Errorf("drive: folder chain of %s is too deep", fileID)
		}
		f, err := d.svc.Files.Get(id).Fields("id, name, parents").Context(ctx).Do()
		if err != nil {
			if isDriveNotFound(err) {
				return "", domain.ErrNotFound("drive file %s not found", id)
			}
			return "", fmt.Errorf("drive: get %s: %w", id, err)
		}
		if len(f.Parents) == 0 {
			if id == fileID {
				names = append(names, f.Name)
			}
			break
		}
		names = append(names, f.Name)
		id = f.Parents[0]
	}

	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteString("/")
		b.WriteString(names[i])
	}
	return b.String(), nil
}

func toRemoteFiles(files []*drive.File) []domain.RemoteFile {
	out := make([]domain.RemoteFile, 0, len(files))
	for _, f := range files {
		rf := domain.RemoteFile{
			ID:       f.Id,
			Name:     f.Name,
			IsFolder: f.MimeType == driveFolderMime,
			Size:     f.Size,
		}
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			rf.Modified = t
		}
		out = append(out, rf)
	}
	return out
}

// escapeQuery escapes a value for a single-quoted Drive query string.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func folderQuery(name, parentID string) string {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), driveFolderMime)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return q
}

func fileQuery(name, parentID string) string {
	return fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQuery(name), escapeQuery(parentID))
}

func childrenQuery(parentID string) string {
	return fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(parentID))
}

func isDriveNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// writeFile copies r into a new file at path.
func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
