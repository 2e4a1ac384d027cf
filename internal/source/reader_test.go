package source

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/testutil"
)

const nerimaRow = `13120,"176  ","1760005","ﾄｳｷｮｳﾄ","ﾈﾘﾏｸ","ﾄﾖﾀﾏｷﾀ","東京都","練馬区","豊玉北",0,0,1,0,0,0`

func TestNewReader_Encodings(t *testing.T) {
	tests := []struct {
		encoding string
		want     string
		wantErr  bool
	}{
		{"", EncodingUTF8, false},
		{"UTF8", EncodingUTF8, false},
		{"Shift-JIS", EncodingShiftJIS, false},
		{"cp932", EncodingShiftJIS, false},
		{"euc-jp", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			r, err := NewReader(tt.encoding, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewReader(%q) error = %v, wantErr %v", tt.encoding, err, tt.wantErr)
			}
			if err == nil {
				if r.encoding != tt.want {
					t.Errorf("encoding = %q, want %q", r.encoding, tt.want)
				}
				if r.maxErrors != DefaultMaxErrorMessages {
					t.Errorf("maxErrors = %d, want %d", r.maxErrors, DefaultMaxErrorMessages)
				}
			}
		})
	}
}

func TestReader_ReadUTF8(t *testing.T) {
	input := "\ufeff" + nerimaRow + "\n" + strings.Join(testutil.Row(testutil.Record("0010000")), ",") + "\n"

	r, _ := NewReader(EncodingUTF8, 10)
	res, err := r.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if res.Rows != 2 || len(res.Records) != 2 {
		t.Fatalf("Rows = %d Records = %d, want 2/2", res.Rows, len(res.Records))
	}
	first := res.Records[0]
	if first.LocalGovernmentCode != "13120" {
		t.Errorf("BOM not stripped: LocalGovernmentCode = %q", first.LocalGovernmentCode)
	}
	if first.OldPostalCode != "176" {
		t.Errorf("OldPostalCode = %q, want trimmed 176", first.OldPostalCode)
	}
	if first.TownName != "豊玉北" {
		t.Errorf("TownName = %q", first.TownName)
	}
	if res.Invalid.Count() != 0 {
		t.Errorf("invalid = %v", res.Invalid.Messages())
	}
}

func TestReader_ReadShiftJIS(t *testing.T) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, japanese.ShiftJIS.NewEncoder())
	if _, err := w.Write([]byte(nerimaRow + "\r\n")); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, _ := NewReader(EncodingShiftJIS, 10)
	res, err := r.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("Records = %d, want 1 (invalid: %v)", len(res.Records), res.Invalid.Messages())
	}
	if res.Records[0].CityName != "練馬区" || res.Records[0].CityNameKana != "ﾈﾘﾏｸ" {
		t.Errorf("decoded record = %+v", res.Records[0])
	}
}

func TestReader_InvalidRowsAreSummarized(t *testing.T) {
	valid := strings.Join(testutil.Row(testutil.Record("1000001")), ",")
	lines := []string{
		valid,
		`13120,,176000X,a,b,c,d,e,f,0,0,0,0,0,0`, // line 2: non-digit
		`13120,,1760005,a,b,c`,                   // line 3: column count
		valid,
		`13120,,1760005,a,b,c,d,e,f,0,0,0,0,9,0`, // line 5: update_status
	}

	r, _ := NewReader(EncodingUTF8, 2)
	res, err := r.Read(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if res.Rows != 5 || len(res.Records) != 2 {
		t.Errorf("Rows = %d Records = %d, want 5/2", res.Rows, len(res.Records))
	}
	if res.Invalid.Count() != 3 {
		t.Errorf("Invalid.Count() = %d, want 3", res.Invalid.Count())
	}
	if len(res.Invalid.Messages()) != 2 || res.Invalid.Truncated() != 1 {
		t.Errorf("messages = %v truncated = %d", res.Invalid.Messages(), res.Invalid.Truncated())
	}
	if !strings.Contains(res.Invalid.Messages()[0], "row=2") {
		t.Errorf("first message should name line 2: %s", res.Invalid.Messages()[0])
	}
}

func TestReader_MalformedQuote(t *testing.T) {
	input := `13120,"176,1760005` + "\n"

	r, _ := NewReader(EncodingUTF8, 10)
	res, err := r.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Invalid.Count() != 1 || len(res.Records) != 0 {
		t.Errorf("Invalid = %d Records = %d", res.Invalid.Count(), len(res.Records))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestReader_IOError(t *testing.T) {
	r, _ := NewReader(EncodingUTF8, 10)
	_, err := r.Read(failingReader{})
	if !errors.Is(err, apperrors.ErrSourceUnreadable) {
		t.Errorf("Read() error = %v, want ErrSourceUnreadable", err)
	}
}
