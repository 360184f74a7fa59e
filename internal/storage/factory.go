package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"debugbar/internal/config"
	"debugbar/internal/db"
)

// FromConfig builds the backend selected by cfg.Drivers. Several drivers
// are combined into a MultiStore.
func FromConfig(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	backends := make([]Backend, 0, len(cfg.Drivers))
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}
	for _, driver := range cfg.Drivers {
		b, err := newBackend(ctx, driver, cfg, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		backends = append(backends, b)
	}

	switch len(backends) {
	case 0:
		return nil, errors.New("no storage driver configured")
	case 1:
		return backends[0], nil
	default:
		return NewMultiStore(0, logger, backends...), nil
	}
}

func newBackend(ctx context.Context, driver string, cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	switch driver {
	case config.DriverFile:
		return NewFileStore(cfg.Dir, logger)
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(cfg.SQLitePath, db.ModeWrite, 0)
		if err != nil {
			return nil, err
		}
		if _, err := db.Migrate(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("migrate snapshot db: %w", err)
		}
		s := NewSQLiteStore(conn, logger)
		s.owned = true
		return s, nil
	case config.DriverS3:
		if !cfg.HasS3Config() {
			return nil, errors.New("s3 storage is not fully configured")
		}
		return NewS3Store(S3Options{
			Endpoint:  *cfg.S3Endpoint,
			Region:    *cfg.S3Region,
			KeyID:     *cfg.S3KeyID,
			Secret:    *cfg.S3Secret,
			Bucket:    *cfg.S3Bucket,
			Prefix:    cfg.Prefix,
			PathStyle: cfg.S3URLStyle != "vhost",
		}, logger)
	case config.DriverGCS:
		return NewGCSStore(ctx, GCSOptions{
			Bucket:          cfg.GCSBucket,
			Prefix:          cfg.Prefix,
			CredentialsFile: cfg.GCSCredentialsFile,
			Endpoint:        cfg.GCSEndpoint,
		}, logger)
	case config.DriverAzure:
		return NewAzureStore(AzureOptions{
			AccountName: cfg.AzureAccountName,
			AccountKey:  cfg.AzureAccountKey,
			Container:   cfg.AzureContainer,
			Prefix:      cfg.Prefix,
			Endpoint:    cfg.AzureEndpoint,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
