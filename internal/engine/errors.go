package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes validation errors.
type ErrorCode string

const (
	// ErrCodeInvalidAlphabet indicates an empty alphabet or one with null or
	// duplicate symbols.
	ErrCodeInvalidAlphabet ErrorCode = "INVALID_ALPHABET"

	// ErrCodeInvalidLengths indicates length bounds outside min >= 1, max >= min,
	// or bounds the alphabet cannot satisfy.
	ErrCodeInvalidLengths ErrorCode = "INVALID_LENGTHS"

	// ErrCodeInvalidExcluded indicates excluded lengths outside the bounds or
	// excluded lengths that leave nothing to generate.
	ErrCodeInvalidExcluded ErrorCode = "INVALID_EXCLUDED"

	// ErrCodeInvalidWindow indicates a window outside [1, Max] or with start > end.
	ErrCodeInvalidWindow ErrorCode = "INVALID_WINDOW"

	// ErrCodeInvalidSlots indicates malformed per-slot overrides.
	ErrCodeInvalidSlots ErrorCode = "INVALID_SLOTS"

	// ErrCodeAmbiguousSlots indicates two overrides resolving to the same slot.
	ErrCodeAmbiguousSlots ErrorCode = "AMBIGUOUS_SLOTS"

	// ErrCodeInvalidCandidate indicates a candidate that has no position.
	ErrCodeInvalidCandidate ErrorCode = "INVALID_CANDIDATE"

	// ErrCodeInvalidPosition indicates a position outside [1, Max].
	ErrCodeInvalidPosition ErrorCode = "INVALID_POSITION"

	// ErrCodeOverflow indicates a candidate count that does not fit in an int64.
	ErrCodeOverflow ErrorCode = "OVERFLOW"

	// ErrCodeInvalidArgument covers remaining argument errors such as a nil callback.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// ValidationError is returned synchronously by constructors, static helpers and
// window setters. It is never retried.
type ValidationError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func validationErr(code ErrorCode, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidationCode returns the code of the ValidationError wrapped by err.
func ValidationCode(err error) (ErrorCode, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code, true
	}
	return "", false
}

// FaultCode pinpoints the invariant a FaultError broke.
type FaultCode int

const (
	FaultSimpleSeek      FaultCode = 0x0
	FaultSimpleLoop      FaultCode = 0x1
	FaultStructuredSeek  FaultCode = 0x2
	FaultStructuredLoop  FaultCode = 0x3
	FaultPermutationSeek FaultCode = 0x4
	FaultPermutationLoop FaultCode = 0x5
)

// FaultError reports a broken internal invariant, such as the generation loop
// running out of candidates without reaching its end position. It is a defect,
// not an input problem.
type FaultError struct {
	Subsystem string
	Code      FaultCode
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *FaultError) Error() string {
	msg := fmt.Sprintf("internal fault in %s (code 0x%X): %s", e.Subsystem, int(e.Code), e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *FaultError) Unwrap() error {
	return e.Err
}

// IsFault reports whether err wraps a FaultError.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}

// PanicError carries a panic recovered from inside the generation loop.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("generation panicked: %v", e.Value)
}

var (
	// ErrAlreadyRunning is returned by Start on an engine that is running or paused.
	ErrAlreadyRunning = errors.New("engine is already running")

	// ErrNotRunning is returned when pausing an engine that is not running.
	ErrNotRunning = errors.New("engine is not running")
)
