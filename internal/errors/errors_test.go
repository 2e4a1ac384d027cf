package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidPostalCode", ErrInvalidPostalCode},
		{"ErrSinkUnavailable", ErrSinkUnavailable},
		{"ErrUnknownFormat", ErrUnknownFormat},
		{"ErrRootNotWritable", ErrRootNotWritable},
		{"ErrSourceUnreadable", ErrSourceUnreadable},
		{"ErrNoRecords", ErrNoRecords},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s should not be nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s should have an error message", tt.name)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Row:    12,
		Field:  "postal_code",
		Value:  "12345",
		Reason: "must be exactly 7 digits",
	}

	want := `validation error: row=12 field=postal_code value="12345": must be exactly 7 digits`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := fmt.Errorf("row rejected: %w", err)
	if !IsValidation(wrapped) {
		t.Error("IsValidation() should see through wrapping")
	}
	if IsValidation(errors.New("plain")) {
		t.Error("IsValidation() = true for plain error")
	}
}

func TestUnavailableError(t *testing.T) {
	baseErr := errors.New("cgo disabled")
	err := &UnavailableError{Format: "sqlite", Err: baseErr}

	if !errors.Is(err, ErrSinkUnavailable) {
		t.Error("UnavailableError should match ErrSinkUnavailable")
	}
	if !errors.Is(err, baseErr) {
		t.Error("UnavailableError should wrap base error")
	}
	if IsFatal(err) {
		t.Error("UnavailableError should not be fatal")
	}
}

func TestStorageError(t *testing.T) {
	baseErr := errors.New("disk full")
	err := &StorageError{Operation: "write", Path: "out/100.json", Err: baseErr}

	if err.Error() == "" {
		t.Error("StorageError should have an error message")
	}
	if !errors.Is(err, baseErr) {
		t.Error("StorageError should wrap base error")
	}
}

func TestEncodeError(t *testing.T) {
	baseErr := errors.New("bad schema")
	err := &EncodeError{Format: "avro", Path: "all_data.avro", Err: baseErr}

	if !errors.Is(err, baseErr) {
		t.Error("EncodeError should wrap base error")
	}
	if !IsFatal(err) {
		t.Error("EncodeError should be fatal")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "storage", err: &StorageError{Operation: "create", Path: "x", Err: errors.New("eacces")}, want: true},
		{name: "wrapped storage", err: fmt.Errorf("sink: %w", &StorageError{Operation: "write", Err: errors.New("eio")}), want: true},
		{name: "unavailable", err: &UnavailableError{Format: "feather", Err: errors.New("probe")}, want: false},
		{name: "unavailable sentinel", err: fmt.Errorf("skip: %w", ErrSinkUnavailable), want: false},
		{name: "generic", err: errors.New("boom"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}
