package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	ErrUnauthorized       = errors.New("you must be logged in to access this route")
	ErrOnboardingRequired = errors.New("profile onboarding required")
	ErrNotFound           = errors.New("not found")
)

type (
	// ValidationError carries the first violated constraint of a submission.
	ValidationError struct {
		Field   string
		Message string
	}

	// StorageError wraps a relational-store failure.
	StorageError struct {
		Err error
	}

	// UploadError wraps an object-store failure.
	UploadError struct {
		Err error
	}
)

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *StorageError) Error() string {
	return "storage failure: " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *UploadError) Error() string {
	return "upload failure: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func newValidationError(field, rule string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("invalid %s: %s", field, rule),
	}
}

// firstViolation translates a validator error into the message surfaced to
// the caller. Only the first violated constraint is reported.
func firstViolation(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		v := verrs[0]
		rule := v.ActualTag()
		if v.Param() != "" {
			rule = rule + "=" + v.Param()
		}
		return newValidationError(fieldName(v), fmt.Sprintf("failed on the '%s' rule", rule))
	}
	return &ValidationError{Field: "", Message: err.Error()}
}

func fieldName(v validator.FieldError) string {
	return v.Field()
}
