package cloudsync

import (
	"context"
	"fmt"
	"log/slog"

	"gps-report/internal/config"
)

// New builds the Remote selected by cfg.Backend. It returns nil, nil when
// sync is disabled.
func New(ctx context.Context, cfg config.SyncConfig, logger *slog.Logger) (Remote, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		r   Remote
		err error
	)
	switch cfg.Backend {
	case BackendDrive:
		r, err = NewDriveRemote(ctx, cfg.DriveCredentialsFile, logger)
	case BackendGCS:
		r, err = NewGCSRemote(ctx, cfg.GCSBucket, cfg.GCSKeyFile)
	case BackendS3:
		o := S3Options{
			KeyID:     *cfg.S3KeyID,
			Secret:    *cfg.S3Secret,
			Bucket:    *cfg.S3Bucket,
			PathStyle: cfg.S3PathStyle,
		}
		if cfg.S3Endpoint != nil {
			o.Endpoint = *cfg.S3Endpoint
		}
		if cfg.S3Region != nil {
			o.Region = *cfg.S3Region
		}
		r, err = NewS3Remote(o)
	case BackendAzure:
		r, err = NewAzureRemote(cfg.AzureEndpoint, cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer)
	case BackendNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown sync backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
