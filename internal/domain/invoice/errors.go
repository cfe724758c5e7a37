package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrInvoiceNotFound is returned when an invoice is not found
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrNoUnbilledUsage is returned when invoice generation selects zero
	// unbilled usage records. An invoice with no line items is never
	// created; callers treat this as "nothing to do", not a failure.
	ErrNoUnbilledUsage = errors.New("no unbilled usage in range")

	// ErrInvoiceAlreadyPaid indicates that the invoice has already been
	// paid and is immutable.
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")

	// ErrInvalidStatusTransition is returned for a disallowed status change
	ErrInvalidStatusTransition = errors.New("invalid invoice status transition")
)

// ValidationError represents an error that occurs during invoice validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound)
}
