package app

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Validation errors are raised before any write;
// ErrGrantInconsistency only after a required step failed with a prior step
// already committed, so callers know to retry the whole operation.
var (
	ErrMissingEmail           = errors.New("person has no email address")
	ErrPersonNotFound         = errors.New("person not found")
	ErrRequestNotFound        = errors.New("collaboration request not found")
	ErrRequestAlreadyResolved = errors.New("collaboration request already resolved")
	ErrGrantInconsistency     = errors.New("collaboration grant incomplete")
	ErrForbidden              = errors.New("not allowed")
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
