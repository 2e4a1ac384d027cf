package encoder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jittakal/jpostcode/internal/testutil"
	"github.com/jittakal/jpostcode/pkg/postal"
)

func encodeToString(t *testing.T, enc interface {
	Encode(string, []postal.Record) (*postal.FileStats, error)
	FileExtension() string
}, records []postal.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out"+enc.FileExtension())
	if _, err := enc.Encode(path, records); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func absentOldCode() postal.Record {
	r := testutil.Record("1000001")
	r.OldPostalCode = ""
	return r
}

func TestCSVEncoder_Header(t *testing.T) {
	out := encodeToString(t, NewCSVEncoder(), []postal.Record{testutil.Record("0600000")})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0] != strings.Join(postal.FieldNames, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "13120,176,0600000,") {
		t.Errorf("row = %q, want leading zeros kept", lines[1])
	}
}

func TestJSONEncoder_Shape(t *testing.T) {
	out := encodeToString(t, NewJSONEncoder(), []postal.Record{absentOldCode()})

	if !strings.HasPrefix(out, "[\n  {\n    \"local_government_code\": \"13120\",") {
		t.Errorf("unexpected JSON layout:\n%s", out)
	}
	if !strings.Contains(out, `"old_postal_code": null`) {
		t.Error("absent old code should be null")
	}
	if !strings.Contains(out, "東京都") {
		t.Error("non-ASCII text should not be escaped")
	}
}

func TestNDJSONEncoder_OneObjectPerLine(t *testing.T) {
	records := testutil.Records(3, 5)
	out := encodeToString(t, NewNDJSONEncoder(), records)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if len(lines) != len(records) {
		t.Fatalf("got %d lines, want %d", len(lines), len(records))
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "{") || strings.Contains(line, "\n  ") {
			t.Errorf("line %d is not a compact object: %q", i, line)
		}
		if !strings.Contains(line, `"postal_code":"`+records[i].PostalCode+`"`) {
			t.Errorf("line %d missing postal code %s", i, records[i].PostalCode)
		}
	}
}

func TestXMLEncoder_Structure(t *testing.T) {
	out := encodeToString(t, NewXMLEncoder(), []postal.Record{absentOldCode()})

	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("missing XML declaration")
	}
	for _, want := range []string{
		"<postal_codes>\n  <record>\n    <local_government_code>13120</local_government_code>",
		"<old_postal_code></old_postal_code>",
		"<postal_code>1000001</postal_code>",
		"</record>\n</postal_codes>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("XML output missing %q:\n%s", want, out)
		}
	}
}

func TestTOMLEncoder_ArrayOfTables(t *testing.T) {
	out := encodeToString(t, NewTOMLEncoder(), []postal.Record{absentOldCode(), testutil.Record("1760005")})

	if strings.Count(out, "[[postal_codes]]") != 2 {
		t.Errorf("expected two [[postal_codes]] tables:\n%s", out)
	}
	if strings.Count(out, "old_postal_code") != 1 {
		t.Errorf("absent old code should be omitted:\n%s", out)
	}
}

func TestYAMLEncoder_Sequence(t *testing.T) {
	out := encodeToString(t, NewYAMLEncoder(), []postal.Record{absentOldCode()})

	if !strings.HasPrefix(out, "- local_government_code:") {
		t.Errorf("expected a sequence of mappings:\n%s", out)
	}
	if !strings.Contains(out, "old_postal_code: null") {
		t.Errorf("absent old code should be null:\n%s", out)
	}
}
