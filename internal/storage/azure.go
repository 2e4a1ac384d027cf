package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
	"github.com/jittakal/jpostcode/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*AzureWriter)(nil)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Prefix        string
	Endpoint      string
}

// Validate checks required Azure settings.
func (c AzureConfig) Validate() error {
	if c.AccountName == "" {
		return fmt.Errorf("azure account name is required")
	}
	if c.AccountKey == "" {
		return fmt.Errorf("azure account key is required")
	}
	if c.ContainerName == "" {
		return fmt.Errorf("azure container name is required")
	}
	return nil
}

// connectionString builds the shared-key connection string. A custom
// endpoint (Azurite, sovereign clouds) replaces the public suffix.
func (c AzureConfig) connectionString() string {
	if c.Endpoint != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			c.AccountName, c.AccountKey, c.Endpoint)
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		c.AccountName, c.AccountKey)
}

// AzureWriter implements storage.Writer for Azure Blob Storage.
type AzureWriter struct {
	client        *azblob.Client
	containerName string
	prefix        string
	logger        *slog.Logger
	metrics       MetricsCollector
}

// NewAzureWriter creates a new Azure Blob storage writer.
func NewAzureWriter(cfg AzureConfig, logger *slog.Logger, metrics MetricsCollector) (*AzureWriter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := azblob.NewClientFromConnectionString(cfg.connectionString(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	logger.Info("Azure writer created",
		"container", cfg.ContainerName,
		"account", cfg.AccountName,
		"prefix", cfg.Prefix,
	)

	return &AzureWriter{
		client:        client,
		containerName: cfg.ContainerName,
		prefix:        cfg.Prefix,
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// Prepare checks that the container exists and is reachable.
func (w *AzureWriter) Prepare(ctx context.Context) error {
	container := w.client.ServiceClient().NewContainerClient(w.containerName)
	if _, err := container.GetProperties(ctx, nil); err != nil {
		w.incErrors("container_properties")
		return &apperrors.StorageError{
			Operation: "prepare",
			Path:      w.containerName,
			Err:       fmt.Errorf("%w: %v", apperrors.ErrRootNotWritable, err),
		}
	}
	return nil
}

// Write encodes records and uploads them to container/prefix/relPath.
func (w *AzureWriter) Write(
	ctx context.Context,
	records []postal.Record,
	relPath string,
	enc encoder.Encoder,
) (*postal.FileStats, error) {
	startTime := time.Now()
	blobPath := objectKey(w.prefix, relPath)

	tmpPath, stats, err := encodeTemp(records, relPath, enc)
	if err != nil {
		w.incErrors("encode")
		return nil, err
	}
	defer os.Remove(tmpPath)

	file, err := openTemp(tmpPath, relPath)
	if err != nil {
		w.incErrors("file_open")
		return nil, err
	}
	defer file.Close()

	ct := contentType(enc.Format())
	_, err = w.client.UploadFile(ctx, w.containerName, blobPath, file, &azblob.UploadFileOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		w.incErrors("upload")
		return nil, &apperrors.StorageError{Operation: "upload", Path: blobPath, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Debug("wrote records to Azure Blob",
		"container", w.containerName,
		"blob", blobPath,
		"record_count", stats.RecordCount,
		"file_size", stats.SizeBytes,
		"format", enc.Format(),
		"duration_ms", duration.Milliseconds(),
	)

	if w.metrics != nil {
		w.metrics.ObserveFileWriteDuration(w.Backend(), string(enc.Format()), duration.Seconds())
	}

	return stats, nil
}

// Backend returns "azure".
func (w *AzureWriter) Backend() string {
	return "azure"
}

// Close closes the Azure writer.
func (w *AzureWriter) Close() error {
	w.logger.Debug("Azure writer closed")
	return nil
}

func (w *AzureWriter) incErrors(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors(w.Backend(), operation)
	}
}
