package encoder

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var (
	_ encoder.Codec  = (*FeatherEncoder)(nil)
	_ encoder.Prober = (*FeatherEncoder)(nil)
)

// FeatherEncoder writes records as an Arrow IPC file (Feather v2).
// Every column is utf8; only old_postal_code is nullable.
type FeatherEncoder struct {
	compressionName string
	schema          *arrow.Schema
}

// NewFeatherEncoder creates a new Feather encoder.
// Supported compression: lz4 (default), zstd, uncompressed.
func NewFeatherEncoder(compression string) *FeatherEncoder {
	return &FeatherEncoder{
		compressionName: compression,
		schema:          featherSchema(),
	}
}

func featherSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(postal.FieldNames))
	for i, name := range postal.FieldNames {
		fields[i] = arrow.Field{
			Name:     name,
			Type:     arrow.BinaryTypes.String,
			Nullable: name == postal.FieldOldPostalCode,
		}
	}
	return arrow.NewSchema(fields, nil)
}

func (e *FeatherEncoder) writerOptions(mem memory.Allocator) []ipc.Option {
	opts := []ipc.Option{ipc.WithSchema(e.schema), ipc.WithAllocator(mem)}
	switch e.compressionName {
	case "lz4", "LZ4":
		opts = append(opts, ipc.WithLZ4())
	case "zstd", "ZSTD":
		opts = append(opts, ipc.WithZstd())
	}
	return opts
}

// Probe builds and releases an empty record to check the Arrow runtime.
func (e *FeatherEncoder) Probe() error {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, e.schema)
	defer b.Release()

	rec := b.NewRecord()
	defer rec.Release()

	if int(rec.NumCols()) != postal.FieldCount {
		return fmt.Errorf("arrow schema has %d columns, want %d", rec.NumCols(), postal.FieldCount)
	}
	return nil
}

// Encode writes records to a Feather file as a single record batch.
func (e *FeatherEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, e.schema)
	defer b.Release()

	builders := make([]*array.StringBuilder, postal.FieldCount)
	for i := range builders {
		builders[i] = b.Field(i).(*array.StringBuilder)
		builders[i].Reserve(len(records))
	}

	for _, record := range records {
		for i, v := range record.Values() {
			if i == oldPostalCodeColumn && v == "" {
				builders[i].AppendNull()
				continue
			}
			builders[i].Append(v)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	writer, err := ipc.NewFileWriter(file, e.writerOptions(mem)...)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create ipc writer: %w", err)
	}

	if err := writer.Write(rec); err != nil {
		writer.Close()
		file.Close()
		return nil, fmt.Errorf("failed to write record batch: %w", err)
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a Feather file written by Encode.
func (e *FeatherEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader, err := ipc.NewFileReader(file, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to open ipc reader: %w", err)
	}
	defer reader.Close()

	var records []postal.Record
	for i := 0; i < reader.NumRecords(); i++ {
		batch, err := reader.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", i, err)
		}
		if int(batch.NumCols()) != postal.FieldCount {
			return nil, fmt.Errorf("record batch %d has %d columns, want %d", i, batch.NumCols(), postal.FieldCount)
		}

		columns := make([]*array.String, postal.FieldCount)
		for c := range columns {
			col, ok := batch.Column(c).(*array.String)
			if !ok {
				return nil, fmt.Errorf("column %s is %s, want utf8", postal.FieldNames[c], batch.Column(c).DataType())
			}
			columns[c] = col
		}

		for row := 0; row < int(batch.NumRows()); row++ {
			values := make([]string, postal.FieldCount)
			for c, col := range columns {
				if col.IsNull(row) {
					continue
				}
				values[c] = col.Value(row)
			}
			rec, _ := postal.FromValues(values)
			records = append(records, rec)
		}
	}
	return records, nil
}

// Format returns the file format.
func (e *FeatherEncoder) Format() postal.FileFormat {
	return postal.FormatFeather
}

// FileExtension returns the file extension.
func (e *FeatherEncoder) FileExtension() string {
	return ".feather"
}
