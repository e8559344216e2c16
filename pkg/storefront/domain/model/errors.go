package model

import "errors"

// Error kinds. Every domain error wraps exactly one of them so callers can
// branch on the kind with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &domainError{kind: kind, msg: msg}
}

var (
	ErrCatalogItemNotFound = newError(ErrNotFound, "catalog item not found")
	ErrOrderNotFound       = newError(ErrNotFound, "order not found")
	ErrBillNotFound        = newError(ErrNotFound, "bill not found")

	ErrEmptyCart         = newError(ErrValidation, "order items required")
	ErrInvalidCartItem   = newError(ErrValidation, "invalid order item")
	ErrInvalidVariant    = newError(ErrValidation, "unknown catalog variant")
	ErrNegativeAmount    = newError(ErrValidation, "amount cannot be negative")
	ErrInvalidAmount     = newError(ErrValidation, "invalid money amount")
	ErrTotalMismatch     = newError(ErrValidation, "order total does not match item prices")
	ErrBillHasNoItems    = newError(ErrValidation, "cannot bill an order without items")
	ErrNegativeBillTotal = newError(ErrValidation, "bill discount exceeds billable amount")
	ErrInvalidRating     = newError(ErrValidation, "rating value must be between 1 and 5")
	ErrInvalidQuantity   = newError(ErrValidation, "quantity must be a positive number")
	ErrUnknownStatus     = newError(ErrValidation, "unknown status")

	ErrNotOrderOwner = newError(ErrForbidden, "not authorized to access this order")
	ErrNotBillOwner  = newError(ErrForbidden, "not authorized to access this bill")
	ErrAdminRequired = newError(ErrForbidden, "admin access required")

	ErrInsufficientStock       = newError(ErrConflict, "insufficient stock quantity")
	ErrOrderAlreadyCancelled   = newError(ErrConflict, "order already cancelled")
	ErrOrderNotDeletable       = newError(ErrConflict, "can only delete cancelled or delivered orders")
	ErrInvalidStatusTransition = newError(ErrConflict, "order status transition not allowed")
	ErrOptimisticLock          = newError(ErrConflict, "record has been modified by another transaction")
	ErrBillAlreadyExists       = newError(ErrConflict, "bill already exists for this order")
	ErrAlreadyReviewed         = newError(ErrConflict, "user already reviewed this item")
)
