// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrInvalidPostalCode = errors.New("invalid postal code")
	ErrSinkUnavailable   = errors.New("sink unavailable")
	ErrUnknownFormat     = errors.New("unknown file format")
	ErrRootNotWritable   = errors.New("destination root not writable")
	ErrSourceUnreadable  = errors.New("source unreadable")
	ErrNoRecords         = errors.New("no valid records")
)

// ValidationError represents a registry row that failed validation.
// Row is the 1-based line number in the source file.
type ValidationError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: row=%d field=%s value=%q: %s",
		e.Row, e.Field, e.Value, e.Reason)
}

// UnavailableError reports that an output format cannot be produced in this
// environment, for example because its encoder failed the startup probe.
type UnavailableError struct {
	Format string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("format %s unavailable: %v", e.Format, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is matches ErrSinkUnavailable so callers can test with errors.Is.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrSinkUnavailable
}

// StorageError represents a storage operation failure.
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s path=%s: %v",
		e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// EncodeError represents a failure to serialize records into one file.
type EncodeError struct {
	Format string
	Path   string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode error: format=%s path=%s: %v", e.Format, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Fatal defines an interface for errors that can report whether they end a sink.
type Fatal interface {
	error
	IsFatal() bool
}

// IsFatal reports whether err marks its sink as failed.
// Unavailable formats are skipped instead; everything else is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var fatal Fatal
	if errors.As(err, &fatal) {
		return fatal.IsFatal()
	}

	if errors.Is(err, ErrSinkUnavailable) {
		return false
	}

	return true
}

// IsFatal is always true: an I/O failure leaves the output tree incomplete.
func (e *StorageError) IsFatal() bool {
	return true
}

// IsFatal is false; the format is reported as skipped.
func (e *UnavailableError) IsFatal() bool {
	return false
}

// IsValidation reports whether err is a row validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
