package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"debugbar/internal/domain"
)

// S3Options configures an S3-compatible bucket.
type S3Options struct {
	Endpoint string // host or URL; a bare host gets https://
	Region   string
	KeyID    string
	Secret   string
	Bucket   string
	Prefix   string
	// PathStyle selects path-style addressing, required by most
	// S3-compatible providers.
	PathStyle bool
}

// S3Store keeps zstd-compressed datasets as objects in an S3 bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Store builds a client from static credentials.
func NewS3Store(opts S3Options, logger *slog.Logger) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, domain.ErrValidation("s3 bucket is required")
	}
	if opts.Endpoint == "" || opts.Region == "" {
		return nil, domain.ErrValidation("s3 endpoint and region are required")
	}

	endpoint := opts.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	client := s3.New(s3.Options{
		Region: opts.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.KeyID, opts.Secret, "",
		),
		BaseEndpoint:               aws.String(endpoint),
		UsePathStyle:               opts.PathStyle,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return &S3Store{
		client: client,
		bucket: opts.Bucket,
		prefix: opts.Prefix,
		logger: componentLogger(logger, "s3"),
	}, nil
}

// Put uploads the compressed dataset.
func (s *S3Store) Put(ctx context.Context, id string, data []byte) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(objectKey(s.prefix, id)),
		Body:            bytes.NewReader(compress(data)),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("zstd"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", id, err)
	}
	return nil
}

// Get downloads and deletes the dataset.
func (s *S3Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	key := objectKey(s.prefix, id)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}
	defer out.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", id, err)
	}
	discardDeleteError(s.logger, id, s.delete(ctx, key))
	return decompress(raw)
}

func (s *S3Store) delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Prune deletes dataset objects last modified before the cutoff.
func (s *S3Store) Prune(ctx context.Context, before time.Time) (int, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	removed := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, objectSuffix) || obj.LastModified == nil || !obj.LastModified.Before(before) {
				continue
			}
			if err := s.delete(ctx, key); err != nil {
				s.logger.Debug("prune object", "key", key, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op.
func (s *S3Store) Close() error { return nil }
