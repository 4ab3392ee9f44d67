package purchasing

import (
	"fmt"

	"github.com/hardstock/backend/internal/domain/shared"
)

// Error codes for purchase order business rule violations
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeOverReceipt       = "OVER_RECEIPT"
	ErrCodeOverpayment       = "OVERPAYMENT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
)

// NewValidationError creates a validation error (rejected before any state is touched)
func NewValidationError(format string, args ...interface{}) *shared.DomainError {
	return shared.NewDomainError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NewOverReceiptError creates an error for a receiving quantity exceeding the remaining quantity
func NewOverReceiptError(format string, args ...interface{}) *shared.DomainError {
	return shared.NewDomainError(ErrCodeOverReceipt, fmt.Sprintf(format, args...))
}

// NewOverpaymentError creates an error for a payment exceeding the outstanding balance
func NewOverpaymentError(format string, args ...interface{}) *shared.DomainError {
	return shared.NewDomainError(ErrCodeOverpayment, fmt.Sprintf(format, args...))
}

// NewInvalidTransitionError creates an error for a command issued in an invalid lifecycle state
func NewInvalidTransitionError(format string, args ...interface{}) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidTransition, fmt.Sprintf(format, args...))
}
