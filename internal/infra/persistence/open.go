// Package persistence selects the snapshot store backend from configuration.
package persistence

import (
	"context"
	"fmt"
	"mycelium/internal/blob"
	"mycelium/internal/config"
	"mycelium/internal/infra/persistence/blobstore"
	"mycelium/internal/infra/persistence/memory"
	"mycelium/internal/infra/persistence/postgres"
	"mycelium/internal/infra/persistence/sqlite"
	"mycelium/pkg/domain"
)

// Store is a snapshot store that may hold resources such as database handles.
type Store interface {
	domain.SnapshotStore
	Close() error
}

type nopCloser struct{ domain.SnapshotStore }

func (nopCloser) Close() error { return nil }

// Open builds the configured backend.
//
//	memory:   process-local, lost on exit
//	sqlite:   Storage.SQLitePath (default ./mycelium.db)
//	postgres: Storage.PostgresDSN
//	blob:     JSON objects in the configured blob store (fs|s3|memory)
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return nopCloser{memory.NewStore()}, nil
	case config.StorageSQLite, "":
		return sqlite.NewStore(cfg.Storage.SQLitePath)
	case config.StoragePostgres:
		return postgres.NewStore(ctx, cfg.Storage.PostgresDSN)
	case config.StorageBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return nopCloser{blobstore.New(blobs, blobstore.WithPrefix(cfg.Blob.Prefix), blobstore.WithRetain(cfg.Blob.Retain))}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Storage.Driver)
	}
}
