package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSaleNotFound  = errors.New("sale not found")
	ErrOfferNotFound = errors.New("offer not found")
	ErrSaleNotActive = errors.New("sale is not active")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrQuotaExceeded     = errors.New("buyer quota exceeded")

	// ErrContention is returned once the allocator has exhausted its retry budget.
	ErrContention = errors.New("offer is under heavy contention, try again")

	ErrValidation          = errors.New("validation failed")
	ErrVersionConflict     = errors.New("sale was modified concurrently")
	ErrSaleHasReservations = errors.New("sale has committed reservations")
	ErrProductNotFound     = errors.New("product not found")

	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("caller is not allowed to perform this action")
)

type InsufficientStockError struct {
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d units remaining", e.Remaining)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type QuotaExceededError struct {
	Remaining int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("buyer quota exceeded: %d units remaining for this buyer", e.Remaining)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated field, not just the first one.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
}

func (e *ValidationError) HasViolations() bool {
	return len(e.Violations) > 0
}

// OrNil returns nil when nothing was recorded so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasViolations() {
		return nil
	}
	return e
}

func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		if existing, ok := out[v.Field]; ok {
			out[v.Field] = existing + "; " + v.Message
			continue
		}
		out[v.Field] = v.Message
	}
	return out
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrSaleNotFound) || errors.Is(err, ErrOfferNotFound) || errors.Is(err, ErrProductNotFound)
}

// IsBusinessError reports outcomes that a retry cannot change.
func IsBusinessError(err error) bool {
	switch {
	case IsNotFound(err),
		errors.Is(err, ErrSaleNotActive),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrSaleHasReservations):
		return true
	default:
		return false
	}
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention) || errors.Is(err, ErrVersionConflict)
}

// Reason is a short stable label used for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrSaleNotActive):
		return "sale_not_active"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrContention):
		return "contention"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}
