// Package service holds the template, generation and generated-document
// operations used by the HTTP handlers.
package service

import (
	"context"
	"errors"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/document/repository"
	"github.com/insuredocs/docgen/internal/storage"
	"github.com/insuredocs/docgen/pkg/logger"
	"github.com/insuredocs/docgen/pkg/metrics"
)

// withRetry runs op and retries it once when it fails with a storage error.
func withRetry(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err != nil && apperr.Retryable(err) && ctx.Err() == nil {
		logger.Warnf("retrying after storage error: %v", err)
		err = op(ctx)
	}
	return err
}

func putBlob(ctx context.Context, blobs storage.BlobStore, key string, data []byte) error {
	return withRetry(ctx, func(ctx context.Context) error {
		return blobs.Put(ctx, key, data, storage.DocxContentType)
	})
}

func getBlob(ctx context.Context, blobs storage.BlobStore, key string) ([]byte, error) {
	var data []byte
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		data, err = blobs.Get(ctx, key)
		return err
	})
	return data, err
}

// discardBlob removes a blob whose record is gone or was never written.
// Failures leave an orphan, which is logged and counted but not returned.
func discardBlob(ctx context.Context, blobs storage.BlobStore, key string) {
	if err := blobs.Delete(ctx, key); err != nil {
		metrics.BlobCleanupFailures.Inc()
		logger.With("blob", key).Warnf("blob cleanup failed: %v", err)
	}
}

// recordErr maps a repository failure to the error taxonomy.
func recordErr(op, id string, err error, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return &apperr.StorageError{Op: op, Key: id, Err: err}
}
