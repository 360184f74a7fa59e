// Package storage implements domain.SnapshotStore backends. Every backend
// hands out a dataset once: Get removes what it returns.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"

	"debugbar/internal/domain"
)

// Backend is a snapshot store that can be pruned and closed.
type Backend interface {
	domain.SnapshotStore
	// Prune removes datasets stored before the cutoff and reports how
	// many were removed.
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Compile-time interface checks.
var (
	_ Backend = (*FileStore)(nil)
	_ Backend = (*SQLiteStore)(nil)
	_ Backend = (*S3Store)(nil)
	_ Backend = (*GCSStore)(nil)
	_ Backend = (*AzureStore)(nil)
	_ Backend = (*MultiStore)(nil)
)

const objectSuffix = ".json.zst"

var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

func compress(data []byte) []byte {
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func decompress(data []byte) ([]byte, error) {
	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress dataset: %w", err)
	}
	return out, nil
}

func notFound(id string) error {
	return domain.ErrNotFound("dataset %q not found", id)
}

// objectKey maps an ID to an object name under prefix.
func objectKey(prefix, id string) string {
	return prefix + id + objectSuffix
}

// discardDeleteError logs a failed post-read delete. The dataset was
// already returned, so the caller never sees the failure.
func discardDeleteError(logger *slog.Logger, id string, err error) {
	if err != nil {
		logger.Debug("delete dataset after read", "id", id, "error", err)
	}
}

func componentLogger(logger *slog.Logger, backend string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With("component", "storage", "backend", backend)
}
