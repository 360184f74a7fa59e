package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"debugbar/internal/domain"
)

// SQLiteStore keeps datasets in the debugbar_snapshots table. The schema
// comes from db.Migrate.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
	owned  bool
}

// NewSQLiteStore wraps a migrated database. The caller keeps ownership of
// db unless the store was built by FromConfig.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, logger: componentLogger(logger, "sqlite"), now: time.Now}
}

// Put stores or replaces the dataset.
func (s *SQLiteStore) Put(ctx context.Context, id string, data []byte) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO debugbar_snapshots (id, data, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		id, data, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert dataset %s: %w", id, err)
	}
	return nil
}

// Get reads and removes the dataset.
func (s *SQLiteStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM debugbar_snapshots WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("select dataset %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM debugbar_snapshots WHERE id = ?`, id)
	discardDeleteError(s.logger, id, err)
	return data, nil
}

// Prune deletes rows created before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM debugbar_snapshots WHERE created_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune datasets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune datasets: %w", err)
	}
	return int(n), nil
}

// Close closes the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
