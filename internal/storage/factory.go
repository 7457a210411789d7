package storage

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/sitetrack/internal/config"
)

// NewFromConfig creates the ObjectStore selected by cfg.Backend.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemoryStore(cfg.PublicBaseURL), nil
	case config.StorageS3:
		return NewS3Store(ctx, cfg)
	case config.StorageGCS:
		return NewGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
