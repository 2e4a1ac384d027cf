package encoder

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Codec = (*TOMLEncoder)(nil)

// TOMLEncoder writes records as a [[postal_codes]] array of tables.
// TOML has no null, so an absent old postal code is omitted from its table.
type TOMLEncoder struct{}

// NewTOMLEncoder creates a new TOML encoder.
func NewTOMLEncoder() *TOMLEncoder {
	return &TOMLEncoder{}
}

// Encode writes records to a TOML file.
func (e *TOMLEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	doc := postalCodesDocument{PostalCodes: convertToDocumentRows(records)}
	err := writeBuffered(filePath, func(w io.Writer) error {
		return toml.NewEncoder(w).Encode(doc)
	})
	if err != nil {
		return nil, err
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a TOML file written by Encode.
func (e *TOMLEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var doc postalCodesDocument
	if err := toml.NewDecoder(bufio.NewReader(file)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode toml: %w", err)
	}
	return convertFromDocumentRows(doc.PostalCodes), nil
}

// Format returns the file format.
func (e *TOMLEncoder) Format() postal.FileFormat {
	return postal.FormatTOML
}

// FileExtension returns the file extension.
func (e *TOMLEncoder) FileExtension() string {
	return ".toml"
}
