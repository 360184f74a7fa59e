package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"debugbar/internal/domain"
)

// GCSOptions configures a Google Cloud Storage bucket.
type GCSOptions struct {
	Bucket string
	Prefix string
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string
	// Endpoint points the client at an emulator; authentication is then
	// disabled.
	Endpoint string
}

// GCSStore keeps zstd-compressed datasets as objects in a GCS bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *slog.Logger
}

// NewGCSStore creates a client for the bucket.
func NewGCSStore(ctx context.Context, opts GCSOptions, logger *slog.Logger) (*GCSStore, error) {
	if opts.Bucket == "" {
		return nil, domain.ErrValidation("gcs bucket is required")
	}
	var clientOpts []option.ClientOption
	switch {
	case opts.Endpoint != "":
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint), option.WithoutAuthentication())
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithAuthCredentialsFile(option.ServiceAccount, opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(opts.Bucket),
		prefix: opts.Prefix,
		logger: componentLogger(logger, "gcs"),
	}, nil
}

// Put uploads the compressed dataset.
func (s *GCSStore) Put(ctx context.Context, id string, data []byte) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	w := s.bucket.Object(objectKey(s.prefix, id)).NewWriter(ctx)
	w.ContentType = "application/json"
	w.ContentEncoding = "zstd"
	if _, err := w.Write(compress(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", id, err)
	}
	return nil
}

// Get downloads and deletes the dataset.
func (s *GCSStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	obj := s.bucket.Object(objectKey(s.prefix, id))
	// Stored bytes are already compressed; skip transcoding.
	r, err := obj.ReadCompressed(true).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", id, err)
	}
	raw, err := io.ReadAll(r)
	_ = r.Close()
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", id, err)
	}
	discardDeleteError(s.logger, id, obj.Delete(ctx))
	return decompress(raw)
}

// Prune deletes dataset objects created before the cutoff.
func (s *GCSStore) Prune(ctx context.Context, before time.Time) (int, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})
	removed := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("list objects: %w", err)
		}
		if !strings.HasSuffix(attrs.Name, objectSuffix) || !attrs.Created.Before(before) {
			continue
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil {
			s.logger.Debug("prune object", "key", attrs.Name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Close releases the client.
func (s *GCSStore) Close() error { return s.client.Close() }
