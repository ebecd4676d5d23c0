package service

import (
	"errors"
	"fmt"

	"quote-service/internal/repository"
)

var (
	ErrQuoteNotFound   = errors.New("quote not found")
	ErrForbidden       = errors.New("quote belongs to another user")
	ErrQuotaExceeded   = repository.ErrQuotaExceeded
	ErrValidation      = errors.New("validation failed")
	ErrStorageDisabled = errors.New("pdf storage is not configured")

	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrValidation)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
