package forms

import (
	"errors"
	"fmt"
)

// FieldErrorCode categorizes field validation failures.
type FieldErrorCode string

const (
	// ErrCodeMissing indicates a required field is empty.
	ErrCodeMissing FieldErrorCode = "MISSING_FIELD"

	// ErrCodeInvalid indicates a value of the wrong kind or out of range.
	ErrCodeInvalid FieldErrorCode = "INVALID_FIELD"
)

// FieldError reports the first field that failed validation.
type FieldError struct {
	Field   string
	Code    FieldErrorCode
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// IsFieldError returns true if err is or wraps a *FieldError.
func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}
