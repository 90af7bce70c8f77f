package exam

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the store and the services wraps
// exactly one of these; match with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrCodeTaken        = fmt.Errorf("%w: exam code already in use", ErrValidation)
	ErrAlreadyCompleted = fmt.Errorf("%w: submission already completed", ErrConflict)
	ErrTimeExpired      = fmt.Errorf("%w: time expired", ErrConflict)
)

func notFound(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, kind, id)
}
