package encoder

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/linkedin/goavro/v2"

	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Ensure implementation satisfies interface at compile time.
var (
	_ encoder.Codec  = (*AvroEncoder)(nil)
	_ encoder.Prober = (*AvroEncoder)(nil)
)

// AvroEncoder implements encoder.Encoder for Apache Avro object container files.
// Block compression is handled by the container itself: null, deflate or snappy.
//
// Output is not byte-identical across runs. Each container gets a random
// sync marker, so two encodings of the same records differ in bytes but
// decode to the same records.
type AvroEncoder struct {
	codec       *goavro.Codec
	compression string
}

// NewAvroEncoder creates a new Avro encoder with specified compression.
func NewAvroEncoder(compression string) (*AvroEncoder, error) {
	codec, err := goavro.NewCodec(avroSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}

	return &AvroEncoder{
		codec:       codec,
		compression: avroCompressionName(compression),
	}, nil
}

// avroSchema returns the Avro schema for registry rows.
func avroSchema() string {
	return `{
		"type": "record",
		"name": "PostalCode",
		"namespace": "jp.post.zipcode",
		"fields": [
			{"name": "local_government_code", "type": "string"},
			{"name": "old_postal_code", "type": ["null", "string"], "default": null},
			{"name": "postal_code", "type": "string"},
			{"name": "prefecture_name_kana", "type": "string"},
			{"name": "city_name_kana", "type": "string"},
			{"name": "town_name_kana", "type": "string"},
			{"name": "prefecture_name", "type": "string"},
			{"name": "city_name", "type": "string"},
			{"name": "town_name", "type": "string"},
			{"name": "multiple_postal_codes_per_town", "type": "string"},
			{"name": "koaza_numbering", "type": "string"},
			{"name": "has_chome", "type": "string"},
			{"name": "multiple_towns_per_postal_code", "type": "string"},
			{"name": "update_status", "type": "string"},
			{"name": "change_reason", "type": "string"}
		]
	}`
}

func avroCompressionName(compression string) string {
	switch compression {
	case "deflate", "DEFLATE", "gzip", "GZIP":
		return goavro.CompressionDeflateLabel
	case "snappy", "SNAPPY":
		return goavro.CompressionSnappyLabel
	default:
		return goavro.CompressionNullLabel
	}
}

// Probe round-trips one empty datum through the codec.
func (e *AvroEncoder) Probe() error {
	datum := convertToAvroMap(postal.Record{})
	buf, err := e.codec.BinaryFromNative(nil, datum)
	if err != nil {
		return fmt.Errorf("avro codec cannot encode: %w", err)
	}
	if _, _, err := e.codec.NativeFromBinary(buf); err != nil {
		return fmt.Errorf("avro codec cannot decode: %w", err)
	}
	return nil
}

// Encode writes records to an Avro object container file.
func (e *AvroEncoder) Encode(filePath string, records []postal.Record) (*postal.FileStats, error) {
	if len(records) == 0 {
		return nil, errNoRecords
	}

	err := writeBuffered(filePath, func(w io.Writer) error {
		ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{
			W:               w,
			Codec:           e.codec,
			CompressionName: e.compression,
		})
		if err != nil {
			return fmt.Errorf("failed to create OCF writer: %w", err)
		}

		data := make([]interface{}, len(records))
		for i, record := range records {
			data[i] = convertToAvroMap(record)
		}
		return ocfWriter.Append(data)
	})
	if err != nil {
		return nil, err
	}

	return statFile(filePath, len(records))
}

// Decode reads records from an Avro file written by Encode.
func (e *AvroEncoder) Decode(filePath string) ([]postal.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ocfReader, err := goavro.NewOCFReader(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to create OCF reader: %w", err)
	}

	var records []postal.Record
	for ocfReader.Scan() {
		datum, err := ocfReader.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		rec, err := convertFromAvroMap(datum)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := ocfReader.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan avro file: %w", err)
	}
	return records, nil
}

// convertToAvroMap converts a Record to Avro map representation.
func convertToAvroMap(record postal.Record) map[string]interface{} {
	avroMap := make(map[string]interface{}, postal.FieldCount)
	for i, v := range record.Values() {
		avroMap[postal.FieldNames[i]] = v
	}

	// Optional field - use goavro.Union for the nullable legacy code
	if record.HasOldPostalCode() {
		avroMap[postal.FieldOldPostalCode] = goavro.Union("string", record.OldPostalCode)
	} else {
		avroMap[postal.FieldOldPostalCode] = nil
	}

	return avroMap
}

func convertFromAvroMap(datum interface{}) (postal.Record, error) {
	m, ok := datum.(map[string]interface{})
	if !ok {
		return postal.Record{}, fmt.Errorf("unexpected avro datum type %T", datum)
	}

	values := make([]string, postal.FieldCount)
	for i, name := range postal.FieldNames {
		switch v := m[name].(type) {
		case string:
			values[i] = v
		case map[string]interface{}:
			if s, ok := v["string"].(string); ok {
				values[i] = s
			}
		case nil:
		default:
			return postal.Record{}, fmt.Errorf("field %s has unexpected type %T", name, v)
		}
	}
	return postal.FromValues(values)
}

// Format returns the file format.
func (e *AvroEncoder) Format() postal.FileFormat {
	return postal.FormatAvro
}

// FileExtension returns the file extension.
func (e *AvroEncoder) FileExtension() string {
	return ".avro"
}
