// Package source obtains the registry snapshot and turns its rows into
// validated postal records.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/internal/validator"
	"github.com/jittakal/jpostcode/pkg/postal"
)

// Supported source encodings.
const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
)

// DefaultMaxErrorMessages is how many validation messages a Result keeps.
const DefaultMaxErrorMessages = 10

// Result holds the valid records of one source read.
type Result struct {
	Records []postal.Record
	Rows    int
	Invalid *validator.Summary
}

// Reader parses registry CSV rows. The registry has no header row.
type Reader struct {
	encoding  string
	maxErrors int
	validator *validator.RecordValidator
}

// NewReader creates a reader for the given text encoding.
func NewReader(enc string, maxErrors int) (*Reader, error) {
	enc = normalizeEncoding(enc)
	if _, err := decoderFor(enc); err != nil {
		return nil, err
	}
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrorMessages
	}
	return &Reader{
		encoding:  enc,
		maxErrors: maxErrors,
		validator: validator.NewRecordValidator(),
	}, nil
}

func normalizeEncoding(enc string) string {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8
	case "shift_jis", "shift-jis", "sjis", "cp932":
		return EncodingShiftJIS
	default:
		return enc
	}
}

func decoderFor(enc string) (*encoding.Decoder, error) {
	switch enc {
	case EncodingUTF8:
		// Strips a leading byte order mark if present.
		return unicode.UTF8BOM.NewDecoder(), nil
	case EncodingShiftJIS:
		return japanese.ShiftJIS.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported source encoding %q", enc)
	}
}

// Read parses every row of r. Rows that fail validation are counted in
// Result.Invalid and skipped. Only an unreadable stream is an error.
func (r *Reader) Read(in io.Reader) (*Result, error) {
	dec, _ := decoderFor(r.encoding)

	cr := csv.NewReader(transform.NewReader(in, dec))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	res := &Result{Invalid: validator.NewSummary(r.maxErrors)}

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		res.Rows++

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				res.Invalid.Add(&apperrors.ValidationError{
					Row:    parseErr.StartLine,
					Field:  "row",
					Reason: parseErr.Err.Error(),
				})
				continue
			}
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSourceUnreadable, err)
		}

		line, _ := cr.FieldPos(0)
		rec, err := r.validator.Validate(line, fields)
		if err != nil {
			res.Invalid.Add(err)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res, nil
}
