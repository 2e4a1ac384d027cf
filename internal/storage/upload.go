package storage

import (
	"fmt"
	"os"
	"path"
	"strings"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// objectKey joins the configured key prefix and a relative output path.
func objectKey(prefix, relPath string) string {
	prefix = strings.Trim(prefix, "/")
	relPath = strings.TrimPrefix(relPath, "/")
	if prefix == "" {
		return relPath
	}
	return path.Join(prefix, relPath)
}

// contentType returns the MIME type published with an object of format.
func contentType(format postal.FileFormat) string {
	switch format {
	case postal.FormatCSV:
		return "text/csv; charset=utf-8"
	case postal.FormatJSON:
		return "application/json"
	case postal.FormatNDJSON:
		return "application/x-ndjson"
	case postal.FormatXML:
		return "application/xml"
	case postal.FormatYAML:
		return "application/yaml"
	case postal.FormatTOML:
		return "application/toml"
	case postal.FormatAvro:
		return "application/avro"
	case postal.FormatMsgpack:
		return "application/msgpack"
	case postal.FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}

// encodeTemp encodes records into a temporary file ready for upload.
// The caller removes the returned path.
func encodeTemp(records []postal.Record, relPath string, enc encoder.Encoder) (string, *postal.FileStats, error) {
	tmp, err := os.CreateTemp("", "jpostcode-upload-*"+enc.FileExtension())
	if err != nil {
		return "", nil, &apperrors.StorageError{Operation: "temp_file", Path: relPath, Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()

	stats, err := enc.Encode(tmpPath, records)
	if err != nil {
		os.Remove(tmpPath)
		return "", nil, &apperrors.EncodeError{Format: string(enc.Format()), Path: relPath, Err: err}
	}

	return tmpPath, stats, nil
}

// openTemp opens an encoded temp file for upload.
func openTemp(tmpPath, relPath string) (*os.File, error) {
	file, err := os.Open(tmpPath)
	if err != nil {
		return nil, &apperrors.StorageError{
			Operation: "file_open",
			Path:      relPath,
			Err:       fmt.Errorf("failed to open encoded file: %w", err),
		}
	}
	return file, nil
}
