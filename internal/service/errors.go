package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/storage"
)

// Error kinds every operation reports through. Callers match them with errors.Is.
var (
	ErrNotFound   = errors.New("not_found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation_failed")
)

func validationError(cause error) error {
	return fmt.Errorf("%w: %w", ErrValidation, cause)
}

func notFoundError(resource string, identifier string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, resource, identifier)
}

// storeError classifies a store failure. Missing records become ErrNotFound
// and unique index violations become ErrConflict.
func storeError(operation string, resource string, identifier string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFoundError(resource, identifier)
	case storage.IsDuplicateKey(err):
		return fmt.Errorf("%w: %s %s already exists", ErrConflict, resource, identifier)
	default:
		return fmt.Errorf("%s %s: %w", operation, resource, err)
	}
}
