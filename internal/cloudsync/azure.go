package cloudsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"gps-report/internal/domain"
)

var _ Remote = (*AzureRemote)(nil)

// AzureRemote stores files as blobs in an Azure Blob Storage container; the
// remote directory is a blob name prefix.
type AzureRemote struct {
	client    *azblob.Client
	container string
}

// NewAzureRemote creates an Azure remote using shared-key authentication.
// An empty serviceURL means https://<account>.blob.core.windows.net.
func NewAzureRemote(serviceURL, accountName, accountKey, container string) (*AzureRemote, error) {
	if accountName == "" || accountKey == "" || container == "" {
		return nil, fmt.Errorf("azure: account name, account key and container are required")
	}
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureRemote{client: client, container: container}, nil
}

// Backend implements Remote.
func (a *AzureRemote) Backend() string { return BackendAzure }

// Upload implements Remote.
func (a *AzureRemote) Upload(ctx context.Context, localPath, remoteDir string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("azure: open %s: %w", localPath, err)
	}
	defer f.Close() //nolint:errcheck

	blob := ObjectKey(remoteDir, filepath.Base(localPath))
	if _, err := a.client.UploadFile(ctx, a.container, blob, f, nil); err != nil {
		return "", fmt.Errorf("azure: upload %s: %w", blob, err)
	}
	return fmt.Sprintf("az://%s/%s", a.container, blob), nil
}

// Download implements Remote.
func (a *AzureRemote) Download(ctx context.Context, name, remoteDir, localPath string) (bool, error) {
	blob := ObjectKey(remoteDir, name)
	resp, err := a.client.DownloadStream(ctx, a.container, blob, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("azure: download %s: %w", blob, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := writeFile(localPath, resp.Body); err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements Remote.
func (a *AzureRemote) Delete(ctx context.Context, name, remoteDir string) (bool, error) {
	blob := ObjectKey(remoteDir, name)
	_, err := a.client.DeleteBlob(ctx, a.container, blob, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("azure: delete %s: %w", blob, err)
	}
	return true, nil
}

// List implements Remote.
func (a *AzureRemote) List(ctx context.Context, remoteDir string, limit int) ([]domain.RemoteFile, error) {
	prefix := keyPrefix(remoteDir)
	pager := a.client.NewListBlobsFlatPager(a.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	out := []domain.RemoteFile{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure: list %s: %w", remoteDir, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			rf := domain.RemoteFile{ID: *item.Name, Name: baseName(*item.Name)}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					rf.Size = *item.Properties.ContentLength
				}
				if item.Properties.LastModified != nil {
					rf.Modified = *item.Properties.LastModified
				}
			}
			out = append(out, rf)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}
