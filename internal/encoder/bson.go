package encoder

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Codec = (*BSONEncoder)(nil)

// BSONEncoder writes one BSON document holding every record under
// the postal_codes key.
type BSONEncoder struct{}

// NewBSONEncoder creates a new BSON encoder.
func NewBSONEncoder() *BSONEncoder {
	return &BSONEncoder{}
}

// Encode writes records to a BSON file.
func (e *BSONEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	data, err := bson.Marshal(postalCodesDocument{PostalCodes: convertToDocumentRows(records)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bson: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a BSON file written by Encode.
func (e *BSONEncoder) Decode(filePath string) ([]postal.Record, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc postalCodesDocument
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bson: %w", err)
	}
	return convertFromDocumentRows(doc.PostalCodes), nil
}

// Format returns the file format.
func (e *BSONEncoder) Format() postal.FileFormat {
	return postal.FormatBSON
}

// FileExtension returns the file extension.
func (e *BSONEncoder) FileExtension() string {
	return ".bson"
}
