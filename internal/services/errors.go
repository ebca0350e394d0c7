package services

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderInvalidInput signals the request failed validation before any storage access.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderInvalidFulfillment signals a delivery order without a complete address.
	ErrOrderInvalidFulfillment = errors.New("order: delivery address required")
	ErrOrderProductNotFound    = errors.New("order: product not found")
	ErrOrderVariantNotFound    = errors.New("order: variant not found")
	ErrOrderInsufficientStock  = errors.New("order: insufficient stock")
	ErrOrderNotFound           = errors.New("order: not found")
	// ErrOrderInvalidTransition signals a status change the state machine forbids.
	ErrOrderInvalidTransition      = errors.New("order: invalid status transition")
	ErrOrderCancellationNotAllowed = errors.New("order: cancellation not allowed")
	// ErrOrderUnavailable is retryable: storage was unreachable or kept aborting the transaction.
	ErrOrderUnavailable = errors.New("order: temporarily unavailable")

	ErrCounterInvalidInput = errors.New("counter: invalid input")
	// ErrCounterExhausted signals the yearly order sequence ran past its six digit range.
	ErrCounterExhausted = errors.New("counter: exhausted")

	ErrCatalogInvalidInput    = errors.New("catalog: invalid input")
	ErrCatalogNotFound        = errors.New("catalog: product not found")
	ErrCatalogUnavailable     = errors.New("catalog: temporarily unavailable")
	ErrAuditLogInvalidInput   = errors.New("audit log: invalid input")
	ErrAuditLogRepositoryFail = errors.New("audit log: repository failure")
)

// InsufficientStockError reports the first line that could not be served.
type InsufficientStockError struct {
	ProductID string
	VariantID string
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.SKU, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrOrderInsufficientStock }
