package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
	"github.com/jittakal/jpostcode/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*S3Writer)(nil)

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	SSEEnabled   bool
	SSEKMSKeyID  string

	// Static credentials for S3-compatible stores. When empty the default
	// AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// Validate checks required S3 settings.
func (c S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("s3 access key id and secret access key must be set together")
	}
	return nil
}

// S3Writer implements storage.Writer for AWS S3 storage.
// Each file is encoded to a temporary file and uploaded with the multipart
// upload manager.
type S3Writer struct {
	client      *s3.Client
	uploader    *manager.Uploader
	bucket      string
	prefix      string
	sseEnabled  bool
	sseKMSKeyID string
	logger      *slog.Logger
	metrics     MetricsCollector
}

// NewS3Writer creates a new S3 storage writer.
func NewS3Writer(ctx context.Context, cfg S3Config, logger *slog.Logger, metrics MetricsCollector) (*S3Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 5
	})

	logger.Info("S3 writer created",
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"region", cfg.Region,
		"sse_enabled", cfg.SSEEnabled,
	)

	return &S3Writer{
		client:      s3Client,
		uploader:    uploader,
		bucket:      cfg.Bucket,
		prefix:      cfg.Prefix,
		sseEnabled:  cfg.SSEEnabled,
		sseKMSKeyID: cfg.SSEKMSKeyID,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Prepare checks that the bucket exists and is reachable.
func (w *S3Writer) Prepare(ctx context.Context) error {
	_, err := w.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(w.bucket)})
	if err != nil {
		w.incErrors("head_bucket")
		return &apperrors.StorageError{
			Operation: "prepare",
			Path:      "s3://" + w.bucket,
			Err:       fmt.Errorf("%w: %v", apperrors.ErrRootNotWritable, err),
		}
	}
	return nil
}

// Write encodes records and uploads them to bucket/prefix/relPath.
func (w *S3Writer) Write(
	ctx context.Context,
	records []postal.Record,
	relPath string,
	enc encoder.Encoder,
) (*postal.FileStats, error) {
	startTime := time.Now()
	key := objectKey(w.prefix, relPath)

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

	uploadInput := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(enc.Format())),
	}
	w.applySSE(uploadInput)

	if _, err := w.uploader.Upload(ctx, uploadInput); err != nil {
		w.incErrors("upload")
		return nil, &apperrors.StorageError{Operation: "upload", Path: key, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Debug("wrote records to S3",
		"bucket", w.bucket,
		"key", key,
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

func (w *S3Writer) applySSE(input *s3.PutObjectInput) {
	if !w.sseEnabled {
		return
	}
	if w.sseKMSKeyID != "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(w.sseKMSKeyID)
		return
	}
	input.ServerSideEncryption = types.ServerSideEncryptionAes256
}

// Backend returns "s3".
func (w *S3Writer) Backend() string {
	return "s3"
}

// Close closes the S3 writer.
func (w *S3Writer) Close() error {
	w.logger.Debug("closing S3 writer")
	return nil
}

func (w *S3Writer) incErrors(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors(w.Backend(), operation)
	}
}
