package services

import (
	"context"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/storage"
)

func validateFile(field string, file storage.Object, verr *ValidationError) {
	if file.Body == nil || file.Name == "" {
		verr.add(field, "is required")
		return
	}
	if file.Size == 0 {
		verr.add(field, "must not be empty")
	}
}

// removeObjects deletes stored objects behind urls. Failures are logged
// and never returned; URLs the store did not produce are skipped.
func removeObjects(ctx context.Context, store storage.ObjectStore, log *logger.Logger, urls []string) {
	for _, url := range urls {
		key, ok := store.KeyFromURL(url)
		if !ok {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			log.Warn("Failed to delete replaced object", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			continue
		}
		log.Debug("Replaced object deleted", map[string]interface{}{"key": key})
	}
}
