package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
	pkgstorage "github.com/jittakal/jpostcode/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ pkgstorage.Writer = (*GCSWriter)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	Prefix               string
	ProjectID            string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// Validate checks required GCS settings.
func (c GCSConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("gcs bucket is required")
	}
	return nil
}

// clientOptions selects the authentication method. Explicit JSON wins over
// a credentials file; otherwise Application Default Credentials apply.
func (c GCSConfig) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}

	switch {
	case c.UseDefaultCredential:
	case c.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	case c.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}

	return opts
}

// GCSWriter implements storage.Writer for Google Cloud Storage.
type GCSWriter struct {
	client  *storage.Client
	bucket  string
	prefix  string
	logger  *slog.Logger
	metrics MetricsCollector
}

// NewGCSWriter creates a new Google Cloud Storage writer.
func NewGCSWriter(ctx context.Context, cfg GCSConfig, logger *slog.Logger, metrics MetricsCollector) (*GCSWriter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	logger.Info("GCS writer created",
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"project_id", cfg.ProjectID,
	)

	return &GCSWriter{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Prepare checks that the bucket exists and is reachable.
func (w *GCSWriter) Prepare(ctx context.Context) error {
	if _, err := w.client.Bucket(w.bucket).Attrs(ctx); err != nil {
		w.incErrors("bucket_attrs")
		return &apperrors.StorageError{
			Operation: "prepare",
			Path:      "gs://" + w.bucket,
			Err:       fmt.Errorf("%w: %v", apperrors.ErrRootNotWritable, err),
		}
	}
	return nil
}

// Write encodes records and uploads them to bucket/prefix/relPath.
func (w *GCSWriter) Write(
	ctx context.Context,
	records []postal.Record,
	relPath string,
	enc encoder.Encoder,
) (*postal.FileStats, error) {
	startTime := time.Now()
	objectPath := objectKey(w.prefix, relPath)

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

	gcsWriter := w.client.Bucket(w.bucket).Object(objectPath).NewWriter(ctx)
	gcsWriter.ContentType = contentType(enc.Format())

	if _, err := io.Copy(gcsWriter, file); err != nil {
		w.incErrors("upload")
		gcsWriter.Close()
		return nil, &apperrors.StorageError{Operation: "upload", Path: objectPath, Err: err}
	}

	// Close finalizes the upload.
	if err := gcsWriter.Close(); err != nil {
		w.incErrors("close")
		return nil, &apperrors.StorageError{Operation: "close", Path: objectPath, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Debug("wrote records to GCS",
		"bucket", w.bucket,
		"object", objectPath,
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

// Backend returns "gcs".
func (w *GCSWriter) Backend() string {
	return "gcs"
}

// Close closes the GCS writer.
func (w *GCSWriter) Close() error {
	w.logger.Debug("closing GCS writer")
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

func (w *GCSWriter) incErrors(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors(w.Backend(), operation)
	}
}
