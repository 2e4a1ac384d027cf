// Package encoder defines interfaces for encoding postal records to file formats.
package encoder

import "github.com/jittakal/jpostcode/pkg/postal"

// Encoder encodes records to a specific file format.
// Implementations must be safe for concurrent use: one encoder serves every
// file of its format.
type Encoder interface {
	// Encode writes records to a file and returns file statistics.
	// The file is created or truncated; its parent directory must exist.
	Encode(filePath string, records []postal.Record) (*postal.FileStats, error)

	// Format returns the file format this encoder produces.
	Format() postal.FileFormat

	// FileExtension returns the file extension (e.g., ".parquet", ".db").
	FileExtension() string
}

// Decoder reads back a file written by the matching Encoder.
type Decoder interface {
	// Decode returns the records stored in filePath in file order.
	Decode(filePath string) ([]postal.Record, error)
}

// Prober reports whether an encoder can run in the current environment.
// Probe is called once when the sink registry is built.
type Prober interface {
	Probe() error
}

// Codec is an encoder that can also decode its own output.
type Codec interface {
	Encoder
	Decoder
}
