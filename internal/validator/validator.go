// Package validator turns raw registry rows into validated postal records.
package validator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jittakal/jpostcode/internal/errors"
	"github.com/jittakal/jpostcode/pkg/postal"
)

var (
	binaryFlag   = []string{"0", "1"}
	updateStatus = []string{"0", "1", "2"}
	changeReason = []string{"0", "1", "2", "3", "4", "5", "6"}
)

// RecordValidator validates registry rows. It holds no state and is safe for
// concurrent use.
type RecordValidator struct{}

// NewRecordValidator creates a new registry row validator.
func NewRecordValidator() *RecordValidator {
	return &RecordValidator{}
}

// Validate builds a Record from one raw row. row is the 1-based source line
// number and only appears in errors.
func (v *RecordValidator) Validate(row int, fields []string) (postal.Record, error) {
	return Validate(row, fields)
}

// Validate trims every field, normalizes an empty old postal code to absent
// and checks the format and enumeration rules of each column.
func Validate(row int, fields []string) (postal.Record, error) {
	if len(fields) != postal.FieldCount {
		return postal.Record{}, &errors.ValidationError{
			Row:    row,
			Field:  "row",
			Value:  fmt.Sprintf("%d columns", len(fields)),
			Reason: fmt.Sprintf("expected %d columns", postal.FieldCount),
		}
	}

	trimmed := make([]string, len(fields))
	for i, f := range fields {
		trimmed[i] = strings.TrimSpace(f)
	}

	rec, _ := postal.FromValues(trimmed)

	if !isDigits(rec.PostalCode) || len(rec.PostalCode) != postal.PostalCodeLen {
		return postal.Record{}, &errors.ValidationError{
			Row:    row,
			Field:  postal.FieldPostalCode,
			Value:  rec.PostalCode,
			Reason: "must be exactly 7 digits",
		}
	}

	if rec.OldPostalCode != "" {
		n := len(rec.OldPostalCode)
		if (n != 3 && n != 5) || !isDigits(rec.OldPostalCode) {
			return postal.Record{}, &errors.ValidationError{
				Row:    row,
				Field:  postal.FieldOldPostalCode,
				Value:  rec.OldPostalCode,
				Reason: "must be 3 or 5 digits",
			}
		}
	}

	enums := []struct {
		field   string
		value   string
		allowed []string
	}{
		{postal.FieldMultiplePostalCodesPerTown, rec.MultiplePostalCodes, binaryFlag},
		{postal.FieldKoazaNumbering, rec.KoazaNumbering, binaryFlag},
		{postal.FieldHasChome, rec.HasChome, binaryFlag},
		{postal.FieldMultipleTownsPerPostalCode, rec.MultipleTownsPerCode, binaryFlag},
		{postal.FieldUpdateStatus, rec.UpdateStatus, updateStatus},
		{postal.FieldChangeReason, rec.ChangeReason, changeReason},
	}
	for _, e := range enums {
		if !contains(e.allowed, e.value) {
			return postal.Record{}, &errors.ValidationError{
				Row:    row,
				Field:  e.field,
				Value:  e.value,
				Reason: fmt.Sprintf("must be one of %s", strings.Join(e.allowed, ",")),
			}
		}
	}

	return rec, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Summary collects validation failures: a total count and the first few
// messages. It is safe for concurrent use.
type Summary struct {
	mu       sync.Mutex
	limit    int
	count    int
	messages []string
}

// NewSummary creates a summary keeping at most limit messages.
func NewSummary(limit int) *Summary {
	if limit < 0 {
		limit = 0
	}
	return &Summary{limit: limit}
}

// Add records one failure.
func (s *Summary) Add(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if len(s.messages) < s.limit {
		s.messages = append(s.messages, err.Error())
	}
}

// Count returns the total number of failures seen.
func (s *Summary) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Messages returns a copy of the retained messages in arrival order.
func (s *Summary) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

// Truncated reports how many failures were counted but not retained.
func (s *Summary) Truncated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count - len(s.messages)
}
