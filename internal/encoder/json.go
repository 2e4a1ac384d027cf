package encoder

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementations satisfy interface at compile time.
var (
	_ encoder.Codec = (*JSONEncoder)(nil)
	_ encoder.Codec = (*NDJSONEncoder)(nil)
)

// JSONEncoder writes one pretty-printed JSON array of record objects.
// Non-ASCII text is written as-is, not escaped.
type JSONEncoder struct{}

// NewJSONEncoder creates a new JSON encoder.
func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

// Encode writes records to a JSON file.
func (e *JSONEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	err := writeBuffered(filePath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(convertToDocumentRows(records))
	})
	if err != nil {
		return nil, err
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a JSON file written by Encode.
func (e *JSONEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var rows []documentRow
	if err := json.NewDecoder(bufio.NewReader(file)).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	return convertFromDocumentRows(rows), nil
}

// Format returns the file format.
func (e *JSONEncoder) Format() postal.FileFormat {
	return postal.FormatJSON
}

// FileExtension returns the file extension.
func (e *JSONEncoder) FileExtension() string {
	return ".json"
}

// NDJSONEncoder writes one compact JSON object per line.
type NDJSONEncoder struct{}

// NewNDJSONEncoder creates a new newline-delimited JSON encoder.
func NewNDJSONEncoder() *NDJSONEncoder {
	return &NDJSONEncoder{}
}

// Encode writes records to an NDJSON file.
func (e *NDJSONEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	err := writeBuffered(filePath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for i, row := range convertToDocumentRows(records) {
			if err := enc.Encode(row); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return statFile(filePath, len(records))
}

// Decode reads records from an NDJSON file written by Encode.
func (e *NDJSONEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(bufio.NewReader(file))
	var rows []documentRow
	for {
		var row documentRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode line %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	return convertFromDocumentRows(rows), nil
}

// Format returns the file format.
func (e *NDJSONEncoder) Format() postal.FileFormat {
	return postal.FormatNDJSON
}

// FileExtension returns the file extension.
func (e *NDJSONEncoder) FileExtension() string {
	return ".ndjson"
}

// writeBuffered creates filePath and runs write against a buffered writer,
// flushing and closing the file afterwards.
func writeBuffered(filePath string, write func(w io.Writer) error) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	bw := bufio.NewWriter(file)
	if err := write(bw); err != nil {
		file.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
