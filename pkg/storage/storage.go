// Package storage defines interfaces for publishing encoded postal files.
//
// This package provides abstractions for writing the output tree to various
// storage backends (local filesystem, S3, Google Cloud Storage, Azure Blob).
// Paths passed to a Writer are slash-separated and relative to the
// destination root the writer was configured with.
package storage

import (
	"context"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Writer writes encoded postal records to storage.
// All implementations must be safe for concurrent use.
type Writer interface {
	// Prepare makes sure the destination root exists and accepts writes.
	// A Prepare failure aborts the whole run.
	Prepare(ctx context.Context) error

	// Write encodes records with enc and stores the file at relPath,
	// replacing any existing file.
	Write(ctx context.Context, records []postal.Record, relPath string, enc encoder.Encoder) (*postal.FileStats, error)

	// Backend returns the backend name used in logs and metrics.
	Backend() string

	// Close closes the writer and releases resources.
	Close() error
}

// Locator is implemented by writers whose files can be read back locally.
type Locator interface {
	// Locate returns the local filesystem path of relPath.
	Locate(relPath string) string
}

// Layout determines the relative path of every output file.
type Layout interface {
	// AllData returns the path of the whole-dataset file.
	AllData(ext string) string

	// Prefix returns the path of the file holding every record under prefix.
	Prefix(prefix, ext string) string

	// Suffix returns the path of the file holding one postal code.
	Suffix(prefix, suffix, ext string) string
}
