package encoder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var _ encoder.Codec = (*CSVEncoder)(nil)

// CSVEncoder writes a header row followed by one line per record.
type CSVEncoder struct{}

// NewCSVEncoder creates a new CSV encoder.
func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{}
}

// Encode writes records to a CSV file.
func (e *CSVEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	bw := bufio.NewWriter(file)
	w := csv.NewWriter(bw)

	if err := w.Write(postal.FieldNames); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, record := range records {
		if err := w.Write(record.Values()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to flush csv writer: %w", err)
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to flush file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a CSV file written by Encode.
func (e *CSVEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(bufio.NewReader(file))
	r.FieldsPerRecord = postal.FieldCount

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	records := make([]postal.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := postal.FromValues(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Format returns the file format.
func (e *CSVEncoder) Format() postal.FileFormat {
	return postal.FormatCSV
}

// FileExtension returns the file extension.
func (e *CSVEncoder) FileExtension() string {
	return ".csv"
}
