package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"gps-report/internal/domain"
)

var _ Remote = (*S3Remote)(nil)

// S3Options configures an S3-compatible remote.
type S3Options struct {
	Endpoint  string // host[:port], without scheme; empty for AWS
	Region    string
	KeyID     string
	Secret    string
	Bucket    string
	PathStyle bool
}

// S3Remote stores files as objects in an S3-compatible bucket; the remote
// directory is a key prefix.
type S3Remote struct {
	client *s3.Client
	bucket string
}

// NewS3Remote creates an S3 remote with static credentials.
func NewS3Remote(o S3Options) (*S3Remote, error) {
	if o.Bucket == "" || o.KeyID == "" || o.Secret == "" {
		return nil, fmt.Errorf("s3: bucket, key id and secret are required")
	}
	if o.Region == "" {
		o.Region = "us-east-1"
	}

	opts := s3.Options{
		Region:       o.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(o.KeyID, o.Secret, ""),
		UsePathStyle: o.PathStyle,
	}
	if o.Endpoint != "" {
		endpoint := o.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return &S3Remote{client: s3.New(opts), bucket: o.Bucket}, nil
}

// Backend implements Remote.
func (r *S3Remote) Backend() string { return BackendS3 }

// Upload implements Remote.
func (r *S3Remote) Upload(ctx context.Context, localPath, remoteDir string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("s3: open %s: %w", localPath, err)
	}
	defer f.Close() //nolint:errcheck

	key := ObjectKey(remoteDir, filepath.Base(localPath))
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("s3: upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", r.bucket, key), nil
}

// Download implements Remote.
func (r *S3Remote) Download(ctx context.Context, name, remoteDir, localPath string) (bool, error) {
	key := ObjectKey(remoteDir, name)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return false, nil
		}
		return false, fmt.Errorf("s3: download %s: %w", key, err)
	}
	defer out.Body.Close() //nolint:errcheck

	if err := writeFile(localPath, out.Body); err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements Remote. S3 deletes are idempotent, so the object is
// looked up first to report whether it existed.
func (r *S3Remote) Delete(ctx context.Context, name, remoteDir string) (bool, error) {
	key := ObjectKey(remoteDir, name)
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("s3: head %s: %w", key, err)
	}

	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return false, fmt.Errorf("s3: delete %s: %w", key, err)
	}
	return true, nil
}

// List implements Remote.
func (r *S3Remote) List(ctx context.Context, remoteDir string, limit int) ([]domain.RemoteFile, error) {
	out := []domain.RemoteFile{}
	p := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(keyPrefix(remoteDir)),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", remoteDir, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			out = append(out, domain.RemoteFile{
				ID:       key,
				Name:     baseName(key),
				Size:     aws.ToInt64(obj.Size),
				Modified: aws.ToTime(obj.LastModified),
			})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}
