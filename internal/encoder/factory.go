package encoder

import (
	"fmt"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Factory creates encoders based on format and configuration.
type Factory struct {
	format      postal.FileFormat
	compression string
}

// NewFactory creates a new encoder factory.
// An empty compression selects DefaultCompression for the format.
func NewFactory(format postal.FileFormat, compression string) *Factory {
	if compression == "" {
		compression = DefaultCompression(format)
	}
	return &Factory{
		format:      format,
		compression: compression,
	}
}

// CreateEncoder creates an encoder based on the configured format.
func (f *Factory) CreateEncoder() (encoder.Encoder, error) {
	switch f.format {
	case postal.FormatCSV:
		return NewCSVEncoder(), nil
	case postal.FormatJSON:
		return NewJSONEncoder(), nil
	case postal.FormatNDJSON:
		return NewNDJSONEncoder(), nil
	case postal.FormatXML:
		return NewXMLEncoder(), nil
	case postal.FormatYAML:
		return NewYAMLEncoder(), nil
	case postal.FormatTOML:
		return NewTOMLEncoder(), nil
	case postal.FormatParquet:
		return NewParquetEncoder(f.compression), nil
	case postal.FormatFeather:
		return NewFeatherEncoder(f.compression), nil
	case postal.FormatAvro:
		return NewAvroEncoder(f.compression)
	case postal.FormatMsgpack:
		return NewMsgpackEncoder(), nil
	case postal.FormatBSON:
		return NewBSONEncoder(), nil
	case postal.FormatSQLite:
		return NewSQLiteEncoder(), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownFormat, f.format)
	}
}

// SupportedFormats returns a list of supported file formats.
func SupportedFormats() []postal.FileFormat {
	return postal.AllFormats()
}

// SupportedCompressions returns supported compression codecs for a given format.
func SupportedCompressions(format postal.FileFormat) []string {
	switch format {
	case postal.FormatParquet:
		return []string{"uncompressed", "snappy", "gzip", "lz4", "zstd"}
	case postal.FormatFeather:
		return []string{"uncompressed", "lz4", "zstd"}
	case postal.FormatAvro:
		return []string{"uncompressed", "deflate", "snappy"}
	default:
		return []string{"uncompressed"}
	}
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format postal.FileFormat) string {
	switch format {
	case postal.FormatParquet:
		return "snappy"
	case postal.FormatFeather:
		return "lz4"
	case postal.FormatAvro:
		return "deflate"
	default:
		return "uncompressed"
	}
}

// DefaultConcurrency returns the per-format cap on concurrent file writes.
// Columnar formats build the whole table in memory, so they get half.
func DefaultConcurrency(format postal.FileFormat) int {
	switch format {
	case postal.FormatParquet, postal.FormatFeather:
		return 50
	default:
		return 100
	}
}

// IsSupportedCompression reports whether compression is valid for format.
func IsSupportedCompression(format postal.FileFormat, compression string) bool {
	for _, c := range SupportedCompressions(format) {
		if c == compression {
			return true
		}
	}
	return false
}
