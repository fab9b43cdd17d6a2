// Package blob opens the configured blob.Store backend.
package blob

import (
	"context"
	"fmt"
	"mycelium/internal/blob/core"
	"mycelium/internal/config"
	"mycelium/internal/infra/blob/fs"
	"mycelium/internal/infra/blob/memory"
	"mycelium/internal/infra/blob/s3"
)

// Store is the interface for blob storage backends.
type Store = core.Store

// Open selects a blob store implementation from configuration.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch cfg.Driver {
	case config.BlobFilesystem, "":
		return fs.New(cfg.FSRoot)
	case config.BlobS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case config.BlobMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
