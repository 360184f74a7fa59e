package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"debugbar/internal/domain"
)

// MultiStore writes every dataset to all of its backends.
type MultiStore struct {
	backends []Backend
	limit    int
	logger   *slog.Logger
}

// NewMultiStore fans out over backends, running at most limit calls at
// once. A non-positive limit means one call per backend.
func NewMultiStore(limit int, logger *slog.Logger, backends ...Backend) *MultiStore {
	if limit <= 0 {
		limit = len(backends)
	}
	return &MultiStore{backends: backends, limit: limit, logger: componentLogger(logger, "multi")}
}

func (m *MultiStore) group(ctx context.Context) (*errgroup.Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.limit))
	return g, gctx
}

// Put writes to every backend and fails if any backend fails.
func (m *MultiStore) Put(ctx context.Context, id string, data []byte) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	g, gctx := m.group(ctx)
	for _, b := range m.backends {
		g.Go(func() error { return b.Put(gctx, id, data) })
	}
	return g.Wait()
}

// Get reads the dataset from every backend, so no copy survives, and
// returns the first backend's copy in order.
func (m *MultiStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	data := make([][]byte, len(m.backends))
	errs := make([]error, len(m.backends))

	// Lookups never fail the group; a miss in one backend is expected.
	g, gctx := m.group(ctx)
	for i, b := range m.backends {
		g.Go(func() error {
			data[i], errs[i] = b.Get(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	var failure error
	for i := range m.backends {
		if errs[i] == nil {
			return data[i], nil
		}
		var nf *domain.NotFoundError
		if !errors.As(errs[i], &nf) && failure == nil {
			failure = errs[i]
		}
	}
	if failure != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, failure)
	}
	return nil, notFound(id)
}

// Prune prunes every backend and sums the removals.
func (m *MultiStore) Prune(ctx context.Context, before time.Time) (int, error) {
	counts := make([]int, len(m.backends))
	g, gctx := m.group(ctx)
	for i, b := range m.backends {
		g.Go(func() error {
			n, err := b.Prune(gctx, before)
			counts[i] = n
			return err
		})
	}
	err := g.Wait()
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, err
}

// Close closes every backend.
func (m *MultiStore) Close() error {
	var errs []error
	for _, b := range m.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
