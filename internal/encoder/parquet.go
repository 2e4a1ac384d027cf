package encoder

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var (
	_ encoder.Codec  = (*ParquetEncoder)(nil)
	_ encoder.Prober = (*ParquetEncoder)(nil)
)

// PostalParquet represents the Parquet schema for registry rows.
// Every column is a string; low-cardinality name columns are dictionary encoded.
type PostalParquet struct {
	LocalGovernmentCode  string  `parquet:"local_government_code,dict"`
	OldPostalCode        *string `parquet:"old_postal_code,optional"`
	PostalCode           string  `parquet:"postal_code"`
	PrefectureNameKana   string  `parquet:"prefecture_name_kana,dict"`
	CityNameKana         string  `parquet:"city_name_kana,dict"`
	TownNameKana         string  `parquet:"town_name_kana"`
	PrefectureName       string  `parquet:"prefecture_name,dict"`
	CityName             string  `parquet:"city_name,dict"`
	TownName             string  `parquet:"town_name"`
	MultiplePostalCodes  string  `parquet:"multiple_postal_codes_per_town,dict"`
	KoazaNumbering       string  `parquet:"koaza_numbering,dict"`
	HasChome             string  `parquet:"has_chome,dict"`
	MultipleTownsPerCode string  `parquet:"multiple_towns_per_postal_code,dict"`
	UpdateStatus         string  `parquet:"update_status,dict"`
	ChangeReason         string  `parquet:"change_reason,dict"`
}

// ParquetEncoder implements encoder.Encoder for Apache Parquet columnar format.
// Supports multiple compression codecs: SNAPPY (default), GZIP, LZ4, ZSTD.
type ParquetEncoder struct {
	compressionName string
}

// NewParquetEncoder creates a new Parquet encoder with specified compression.
func NewParquetEncoder(compression string) *ParquetEncoder {
	return &ParquetEncoder{
		compressionName: compression,
	}
}

// compressionCodec converts string compression name to parquet WriterOption.
func compressionCodec(compression string) parquet.WriterOption {
	switch compression {
	case "snappy", "SNAPPY":
		return parquet.Compression(&parquet.Snappy)
	case "gzip", "GZIP":
		return parquet.Compression(&parquet.Gzip)
	case "lz4", "LZ4":
		return parquet.Compression(&parquet.Lz4Raw)
	case "zstd", "ZSTD":
		return parquet.Compression(&parquet.Zstd)
	case "uncompressed", "UNCOMPRESSED", "none", "NONE":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// Probe checks that the row schema can be derived.
func (e *ParquetEncoder) Probe() error {
	schema := parquet.SchemaOf(new(PostalParquet))
	if len(schema.Fields()) != postal.FieldCount {
		return fmt.Errorf("parquet schema has %d columns, want %d", len(schema.Fields()), postal.FieldCount)
	}
	return nil
}

// Encode writes records to a Parquet file as a single table.
func (e *ParquetEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	parquetRecords := make([]PostalParquet, len(records))
	for i, record := range records {
		parquetRecords[i] = convertToParquetRecord(record)
	}

	writer := parquet.NewGenericWriter[PostalParquet](
		file,
		compressionCodec(e.compressionName),
		parquet.CreatedBy("jpostcode", "1.0", "0"),
	)

	if _, err := writer.Write(parquetRecords); err != nil {
		writer.Close()
		file.Close()
		return nil, fmt.Errorf("failed to write records: %w", err)
	}

	if err := writer.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	// Close file before getting stats to ensure all data is flushed
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return statFile(filePath, len(records))
}

// Decode reads records from a Parquet file written by Encode.
func (e *ParquetEncoder) Decode(filePath string) ([]postal.Record, error) {
	rows, err := parquet.ReadFile[PostalParquet](filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet: %w", err)
	}

	records := make([]postal.Record, len(rows))
	for i, row := range rows {
		records[i] = convertFromParquetRecord(row)
	}
	return records, nil
}

func convertToParquetRecord(r postal.Record) PostalParquet {
	return PostalParquet{
		LocalGovernmentCode:  r.LocalGovernmentCode,
		OldPostalCode:        optional(r.OldPostalCode),
		PostalCode:           r.PostalCode,
		PrefectureNameKana:   r.PrefectureNameKana,
		CityNameKana:         r.CityNameKana,
		TownNameKana:         r.TownNameKana,
		PrefectureName:       r.PrefectureName,
		CityName:             r.CityName,
		TownName:             r.TownName,
		MultiplePostalCodes:  r.MultiplePostalCodes,
		KoazaNumbering:       r.KoazaNumbering,
		HasChome:             r.HasChome,
		MultipleTownsPerCode: r.MultipleTownsPerCode,
		UpdateStatus:         r.UpdateStatus,
		ChangeReason:         r.ChangeReason,
	}
}

func convertFromParquetRecord(p PostalParquet) postal.Record {
	return postal.Record{
		LocalGovernmentCode:  p.LocalGovernmentCode,
		OldPostalCode:        deref(p.OldPostalCode),
		PostalCode:           p.PostalCode,
		PrefectureNameKana:   p.PrefectureNameKana,
		CityNameKana:         p.CityNameKana,
		TownNameKana:         p.TownNameKana,
		PrefectureName:       p.PrefectureName,
		CityName:             p.CityName,
		TownName:             p.TownName,
		MultiplePostalCodes:  p.MultiplePostalCodes,
		KoazaNumbering:       p.KoazaNumbering,
		HasChome:             p.HasChome,
		MultipleTownsPerCode: p.MultipleTownsPerCode,
		UpdateStatus:         p.UpdateStatus,
		ChangeReason:         p.ChangeReason,
	}
}

// Format returns the file format.
func (e *ParquetEncoder) Format() postal.FileFormat {
	return postal.FormatParquet
}

// FileExtension returns the file extension.
func (e *ParquetEncoder) FileExtension() string {
	return ".parquet"
}
