package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"debugbar/internal/domain"
)

// AzureOptions configures an Azure Blob Storage container with shared-key
// authentication.
type AzureOptions struct {
	AccountName string
	AccountKey  string
	Container   string
	Prefix      string
	// Endpoint overrides https://{account}.blob.core.windows.net, e.g. for
	// Azurite.
	Endpoint string
}

// AzureStore keeps zstd-compressed datasets as blobs in one container.
type AzureStore struct {
	client    *azblob.Client
	container string
	prefix    string
	logger    *slog.Logger
}

// NewAzureStore creates a client for the container.
func NewAzureStore(opts AzureOptions, logger *slog.Logger) (*AzureStore, error) {
	if opts.AccountName == "" || opts.AccountKey == "" || opts.Container == "" {
		return nil, domain.ErrValidation("azure account name, key and container are required")
	}
	cred, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := opts.Endpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", opts.AccountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureStore{
		client:    client,
		container: opts.Container,
		prefix:    opts.Prefix,
		logger:    componentLogger(logger, "azure"),
	}, nil
}

// Put uploads the compressed dataset.
func (s *AzureStore) Put(ctx context.Context, id string, data []byte) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	_, err := s.client.UploadBuffer(ctx, s.container, objectKey(s.prefix, id), compress(data), nil)
	if err != nil {
		return fmt.Errorf("upload blob %s: %w", id, err)
	}
	return nil
}

// Get downloads and deletes the dataset.
func (s *AzureStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	key := objectKey(s.prefix, id)
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("download blob %s: %w", id, err)
	}
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}
	_, err = s.client.DeleteBlob(ctx, s.container, key, nil)
	discardDeleteError(s.logger, id, err)
	return decompress(buf.Bytes())
}

// Prune deletes dataset blobs last modified before the cutoff.
func (s *AzureStore) Prune(ctx context.Context, before time.Time) (int, error) {
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &s.prefix,
	})
	removed := 0
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return removed, fmt.Errorf("list blobs: %w", err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil || !strings.HasSuffix(*item.Name, objectSuffix) {
				continue
			}
			if item.Properties == nil || item.Properties.LastModified == nil ||
				!item.Properties.LastModified.Before(before) {
				continue
			}
			if _, err := s.client.DeleteBlob(ctx, s.container, *item.Name, nil); err != nil {
				s.logger.Debug("prune blob", "key", *item.Name, "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op.
func (s *AzureStore) Close() error { return nil }
