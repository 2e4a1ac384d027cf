package encoder

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/testutil"
	"github.com/jittakal/jpostcode/pkg/encoder"
	"github.com/jittakal/jpostcode/pkg/postal"
)

func allEncoders(t *testing.T) []encoder.Encoder {
	t.Helper()

	encoders := make([]encoder.Encoder, 0, len(SupportedFormats()))
	for _, format := range SupportedFormats() {
		enc, err := NewFactory(format, "").CreateEncoder()
		if err != nil {
			t.Fatalf("CreateEncoder(%s) error = %v", format, err)
		}
		encoders = append(encoders, enc)
	}
	return encoders
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name        string
		format      postal.FileFormat
		compression string
		want        string
	}{
		{"parquet with snappy", postal.FormatParquet, "snappy", "snappy"},
		{"parquet default", postal.FormatParquet, "", "snappy"},
		{"feather default", postal.FormatFeather, "", "lz4"},
		{"avro default", postal.FormatAvro, "", "deflate"},
		{"csv default", postal.FormatCSV, "", "uncompressed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := NewFactory(tt.format, tt.compression)
			if factory == nil {
				t.Fatal("expected non-nil factory")
			}
			if factory.format != tt.format {
				t.Errorf("format = %v, want %v", factory.format, tt.format)
			}
			if factory.compression != tt.want {
				t.Errorf("compression = %v, want %v", factory.compression, tt.want)
			}
		})
	}
}

func TestFactory_CreateEncoder(t *testing.T) {
	for _, format := range SupportedFormats() {
		t.Run(string(format), func(t *testing.T) {
			enc, err := NewFactory(format, "").CreateEncoder()
			if err != nil {
				t.Fatalf("CreateEncoder() error = %v", err)
			}
			if enc.Format() != format {
				t.Errorf("Format() = %v, want %v", enc.Format(), format)
			}
			if enc.FileExtension() == "" || enc.FileExtension()[0] != '.' {
				t.Errorf("FileExtension() = %q, want leading dot", enc.FileExtension())
			}
		})
	}

	_, err := NewFactory(postal.FileFormat("excel"), "").CreateEncoder()
	if !errors.Is(err, apperrors.ErrUnknownFormat) {
		t.Errorf("CreateEncoder(excel) error = %v, want ErrUnknownFormat", err)
	}
}

func TestSupportedCompressions(t *testing.T) {
	for _, format := range SupportedFormats() {
		def := DefaultCompression(format)
		if !IsSupportedCompression(format, def) {
			t.Errorf("default compression %q not supported for %s", def, format)
		}
	}

	if IsSupportedCompression(postal.FormatCSV, "zstd") {
		t.Error("csv should not support zstd")
	}
}

func TestDefaultConcurrency(t *testing.T) {
	tests := []struct {
		format postal.FileFormat
		want   int
	}{
		{postal.FormatParquet, 50},
		{postal.FormatFeather, 50},
		{postal.FormatJSON, 100},
		{postal.FormatSQLite, 100},
	}
	for _, tt := range tests {
		if got := DefaultConcurrency(tt.format); got != tt.want {
			t.Errorf("DefaultConcurrency(%s) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestEncoders_RoundTrip(t *testing.T) {
	records := testutil.Records(7, 40)
	records = append(records, testutil.Record("0010000"))
	records[0].OldPostalCode = ""
	records[1].OldPostalCode = "00100"

	for _, enc := range allEncoders(t) {
		t.Run(string(enc.Format()), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "all_data"+enc.FileExtension())

			stats, err := enc.Encode(path, records)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if stats.RecordCount != len(records) {
				t.Errorf("RecordCount = %d, want %d", stats.RecordCount, len(records))
			}
			if stats.SizeBytes <= 0 {
				t.Errorf("SizeBytes = %d, want > 0", stats.SizeBytes)
			}

			dec, ok := enc.(encoder.Decoder)
			if !ok {
				t.Fatalf("%s encoder does not implement Decoder", enc.Format())
			}
			got, err := dec.Decode(path)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, records) {
				for i := range records {
					if i < len(got) && got[i] != records[i] {
						t.Fatalf("record %d = %+v, want %+v", i, got[i], records[i])
					}
				}
				t.Fatalf("decoded %d records, want %d", len(got), len(records))
			}
		})
	}
}

func TestEncoders_SingleRecordIsSequence(t *testing.T) {
	records := []postal.Record{testutil.Record("1760005")}

	for _, enc := range allEncoders(t) {
		t.Run(string(enc.Format()), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "0005"+enc.FileExtension())
			if _, err := enc.Encode(path, records); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := enc.(encoder.Decoder).Decode(path)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(got) != 1 || got[0] != records[0] {
				t.Errorf("Decode() = %+v, want one-element sequence", got)
			}
		})
	}
}

func TestEncoders_Idempotent(t *testing.T) {
	records := testutil.Records(11, 25)

	for _, enc := range allEncoders(t) {
		if enc.Format() == postal.FormatAvro {
			// object container files embed a random sync marker
			continue
		}
		t.Run(string(enc.Format()), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "all_data"+enc.FileExtension())

			if _, err := enc.Encode(path, records); err != nil {
				t.Fatalf("first Encode() error = %v", err)
			}
			first, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			if _, err := enc.Encode(path, records); err != nil {
				t.Fatalf("second Encode() error = %v", err)
			}
			second, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			if !bytes.Equal(first, second) {
				t.Error("re-encoding the same records produced different bytes")
			}
		})
	}
}

func TestEncoders_EmptyRecords(t *testing.T) {
	for _, enc := range allEncoders(t) {
		t.Run(string(enc.Format()), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "empty"+enc.FileExtension())
			if _, err := enc.Encode(path, nil); err == nil {
				t.Error("Encode(nil) expected error")
			}
		})
	}
}

func TestEncoders_MissingDirectory(t *testing.T) {
	records := []postal.Record{testutil.Record("1000001")}

	for _, enc := range allEncoders(t) {
		t.Run(string(enc.Format()), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing", "dir", "x"+enc.FileExtension())
			if _, err := enc.Encode(path, records); err == nil {
				t.Error("Encode() into missing directory expected error")
			}
		})
	}
}

func TestEncoders_Probe(t *testing.T) {
	for _, enc := range allEncoders(t) {
		p, ok := enc.(encoder.Prober)
		if !ok {
			continue
		}
		if err := p.Probe(); err != nil {
			t.Errorf("%s Probe() error = %v", enc.Format(), err)
		}
	}
}
