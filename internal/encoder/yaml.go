package encoder

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Codec = (*YAMLEncoder)(nil)

// YAMLEncoder writes a YAML sequence of record mappings.
type YAMLEncoder struct{}

// NewYAMLEncoder creates a new YAML encoder.
func NewYAMLEncoder() *YAMLEncoder {
	return &YAMLEncoder{}
}

// Encode writes records to a YAML file.
func (e *YAMLEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	err := writeBuffered(filePath, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(convertToDocumentRows(records)); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return nil, err
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a YAML file written by Encode.
func (e *YAMLEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var rows []documentRow
	if err := yaml.NewDecoder(bufio.NewReader(file)).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	return convertFromDocumentRows(rows), nil
}

// Format returns the file format.
func (e *YAMLEncoder) Format() postal.FileFormat {
	return postal.FormatYAML
}

// FileExtension returns the file extension.
func (e *YAMLEncoder) FileExtension() string {
	return ".yaml"
}
