package intake

import (
	"errors"
	"fmt"
)

// ErrInFlight is returned when a submission is started while another one
// from the same orchestrator is still sending. No network call is made.
var ErrInFlight = errors.New("intake: submission already in flight")

// ValidationCode categorizes local validation failures.
type ValidationCode string

const (
	// ErrCodeUnsupportedType indicates a MIME type outside the allow-set.
	ErrCodeUnsupportedType ValidationCode = "UNSUPPORTED_TYPE"

	// ErrCodeTooLarge indicates a file above MaxFileSize.
	ErrCodeTooLarge ValidationCode = "TOO_LARGE"

	// ErrCodeMissingFile indicates no file is held.
	ErrCodeMissingFile ValidationCode = "MISSING_FILE"

	// ErrCodeMissingField indicates an empty required metadata field.
	ErrCodeMissingField ValidationCode = "MISSING_FIELD"

	// ErrCodeInvalidField indicates a malformed metadata value.
	ErrCodeInvalidField ValidationCode = "INVALID_FIELD"
)

// ValidationError is a local rejection. It never reaches the network.
type ValidationError struct {
	Code    ValidationCode
	Message string

	// Field names the offending metadata field, if any.
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidation returns true if err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUnsupportedType returns true for an UNSUPPORTED_TYPE validation error.
func IsUnsupportedType(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeUnsupportedType
	}
	return false
}

// IsTooLarge returns true for a TOO_LARGE validation error.
func IsTooLarge(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == ErrCodeTooLarge
	}
	return false
}

// CorrelationFailure reports a follow-up call that did not succeed.
// It is logged and never changes the outcome already reported.
type CorrelationFailure struct {
	Token    string
	Source   string
	Attempts int

	// Status is the last HTTP status, or 0 when no response was received.
	Status int
	Err    error
}

func (e *CorrelationFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("correlation %s (source=%s) failed after %d attempt(s): %v", e.Token, e.Source, e.Attempts, e.Err)
	}
	return fmt.Sprintf("correlation %s (source=%s) failed after %d attempt(s): status %d", e.Token, e.Source, e.Attempts, e.Status)
}

func (e *CorrelationFailure) Unwrap() error {
	return e.Err
}

// IsCorrelation returns true if err is or wraps a *CorrelationFailure.
func IsCorrelation(err error) bool {
	var cf *CorrelationFailure
	return errors.As(err, &cf)
}
