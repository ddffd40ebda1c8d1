package inspection

import (
	"errors"
	"fmt"
)

var (
	ErrWizardNotFound    = errors.New("inspection wizard not found")
	ErrRecordNotFound    = errors.New("inspection not found")
	ErrAssetNotFound     = errors.New("trailer not found")
	ErrUnknownItem       = errors.New("unknown checklist item")
	ErrSectionOutOfRange = errors.New("section index out of range")
	ErrPhotoOutOfRange   = errors.New("photo index out of range")
	ErrSubmitInFlight    = errors.New("inspection submission already in progress")
	ErrNotOwner          = errors.New("inspection wizard belongs to another user")
)

// ValidationError is a user-facing gate or input failure. It never indicates
// that state was changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError wraps a rejection from the persistence collaborator.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save inspection: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
