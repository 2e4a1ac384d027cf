// Package storage implements storage writer implementations.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
	"github.com/jittakal/jpostcode/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var (
	_ storage.Writer  = (*FileWriter)(nil)
	_ storage.Locator = (*FileWriter)(nil)
)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	ObserveFileWriteDuration(backend string, format string, duration float64)
	IncStorageErrors(backend string, operation string)
}

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string
}

// FileWriter implements storage.Writer for local filesystem storage.
// Encoders write straight to their final path; distinct paths never share
// state, so Write needs no locking.
type FileWriter struct {
	basePath string
	logger   *slog.Logger
	metrics  MetricsCollector
}

// NewFileWriter creates a new filesystem storage writer.
func NewFileWriter(cfg FileConfig, logger *slog.Logger, metrics MetricsCollector) (*FileWriter, error) {
	if strings.TrimSpace(cfg.BasePath) == "" {
		return nil, fmt.Errorf("base path is required")
	}

	basePath := strings.TrimPrefix(cfg.BasePath, "file://")

	logger.Info("filesystem writer created", "base_path", basePath)

	return &FileWriter{
		basePath: basePath,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Prepare creates the base path and checks that files can be created in it.
func (w *FileWriter) Prepare(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(w.basePath, 0755); err != nil {
		w.incErrors("mkdir")
		return &apperrors.StorageError{
			Operation: "prepare",
			Path:      w.basePath,
			Err:       fmt.Errorf("%w: %v", apperrors.ErrRootNotWritable, err),
		}
	}

	probe, err := os.CreateTemp(w.basePath, ".write-probe-*")
	if err != nil {
		w.incErrors("probe")
		return &apperrors.StorageError{
			Operation: "prepare",
			Path:      w.basePath,
			Err:       fmt.Errorf("%w: %v", apperrors.ErrRootNotWritable, err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// Write encodes records into basePath/relPath, creating parent directories.
func (w *FileWriter) Write(
	ctx context.Context,
	records []postal.Record,
	relPath string,
	enc encoder.Encoder,
) (*postal.FileStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	fullPath := w.Locate(relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		w.incErrors("mkdir")
		return nil, &apperrors.StorageError{Operation: "mkdir", Path: relPath, Err: err}
	}

	stats, err := enc.Encode(fullPath, records)
	if err != nil {
		w.incErrors("encode")
		return nil, &apperrors.EncodeError{Format: string(enc.Format()), Path: relPath, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Debug("wrote records to file",
		"path", fullPath,
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

// Locate returns the absolute-or-relative local path for relPath.
func (w *FileWriter) Locate(relPath string) string {
	return filepath.Join(w.basePath, filepath.FromSlash(relPath))
}

// Backend returns "file".
func (w *FileWriter) Backend() string {
	return "file"
}

// Close closes the writer.
func (w *FileWriter) Close() error {
	w.logger.Debug("closing filesystem writer")
	return nil
}

func (w *FileWriter) incErrors(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors(w.Backend(), operation)
	}
}
