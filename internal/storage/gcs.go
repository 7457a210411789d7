package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/stwalsh4118/sitetrack/internal/config"
)

// GCSStore writes objects to a Google Cloud Storage bucket.
type GCSStore struct {
	publicURLs
	client *storage.Client
	bucket string
}

// NewGCSStore uses application default credentials unless a credentials file is configured.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig) (*GCSStore, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		publicURLs: publicURLs{base: cfg.PublicBaseURL},
		client:     client,
		bucket:     cfg.Bucket,
	}, nil
}

func (g *GCSStore) Upload(ctx context.Context, key string, obj Object) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeOf(obj)

	if _, err := io.Copy(w, obj.Body); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s to gcs: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close gcs writer for %s: %w", key, err)
	}
	return nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s from gcs: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
