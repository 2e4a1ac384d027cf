// Package encoder provides postal record encoding to various file formats.
//
// Every encoder converts a slice of postal.Record into one file. All fields
// are written as text so codes keep their leading zeros, and every file holds
// an ordered sequence of records, even when the sequence has one element.
//
// # Supported Formats
//
//   - CSV: header row followed by one line per record
//   - JSON: pretty-printed array of objects (2-space indent)
//   - NDJSON: one compact object per line
//   - XML: <postal_codes><record>...</record></postal_codes>
//   - YAML: sequence of mappings
//   - TOML: [[postal_codes]] array of tables
//   - Parquet: single columnar table of string columns
//   - Feather: Arrow IPC file with utf8 columns
//   - Avro: object container file with embedded schema
//   - MessagePack: array of maps
//   - BSON: one document {postal_codes: [...]}
//   - SQLite: table postal_codes indexed on postal_code
//
// # Encoder Factory
//
// Use Factory to create encoder instances:
//
//	factory := encoder.NewFactory(postal.FormatParquet, "snappy")
//	enc, err := factory.CreateEncoder()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Encoding Records
//
// All encoders implement the pkg/encoder.Encoder interface:
//
//	stats, err := enc.Encode(filePath, records)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Encoded %d records, %d bytes\n",
//	    stats.RecordCount, stats.SizeBytes)
//
// # Decoding
//
// Every encoder in this package also implements pkg/encoder.Decoder so a
// written file can be read back and compared against its input:
//
//	records, err := enc.(encoder.Decoder).Decode(filePath)
//
// # Absent Old Postal Codes
//
// An empty OldPostalCode is written as the format's null where one exists
// (JSON, NDJSON, YAML, MessagePack, BSON, Parquet, Feather, Avro, SQLite),
// omitted in TOML, and written as an empty value in CSV and XML. Decoding
// always restores the empty string.
//
// # Determinism
//
// Given the same records every encoder except Avro produces byte-identical
// output. Avro object container files embed a random sync marker.
//
// # Thread Safety
//
// Encoders hold only immutable configuration and may be shared between
// goroutines writing different files.
package encoder
