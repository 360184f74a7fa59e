package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"debugbar/internal/domain"
)

// FileStore keeps zstd-compressed datasets as <id>.json.zst files in one
// directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, logger: componentLogger(logger, "file")}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+objectSuffix)
}

// Put writes the dataset atomically through a temp file and rename.
func (s *FileStore) Put(_ context.Context, id string, data []byte) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(compress(data)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write dataset %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		return fmt.Errorf("rename dataset %s: %w", id, err)
	}
	return nil
}

// Get reads and removes the dataset.
func (s *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", id, err)
	}
	discardDeleteError(s.logger, id, os.Remove(s.path(id)))
	return decompress(raw)
}

// Prune removes dataset files last modified before the cutoff.
func (s *FileStore) Prune(ctx context.Context, before time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list storage dir: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), objectSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(before) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("prune dataset", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
