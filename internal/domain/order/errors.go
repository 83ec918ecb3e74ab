package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order validation and lookup.
var (
	ErrNotFound             = errors.New("order not found")
	ErrEmptyItems           = errors.New("items required")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidQuantity      = errors.New("quantity must not be zero")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrAddressNotOwned      = errors.New("address does not belong to user")
	ErrOrderCancelled       = errors.New("order is cancelled")
	ErrSplitBreakdownNeeded = errors.New("split payment requires a payments breakdown")
	ErrInvalidSalesPersonID = errors.New("salesperson id must be positive")
)

// InsufficientStockError indicates a variant cannot cover the requested
// quantity. Stock holds the units available at check time.
type InsufficientStockError struct {
	VariantID int64
	Barcode   string
	Stock     int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	ref := e.Barcode
	if ref == "" {
		ref = fmt.Sprintf("variant %d", e.VariantID)
	}
	return fmt.Sprintf("insufficient stock for %s: have %d, want %d", ref, e.Stock, e.Requested)
}

// RefundExceedsError indicates a refund request over the remaining
// entitlement. Remaining is the exact amount still refundable.
type RefundExceedsError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *RefundExceedsError) Error() string {
	return fmt.Sprintf("refund %s exceeds pending refundable amount %s",
		e.Requested.StringFixed(2), e.Remaining.StringFixed(2))
}

// PaymentMismatchError indicates payment legs that do not sum to the expected
// order total within the 0.01 tolerance.
type PaymentMismatchError struct {
	Expected decimal.Decimal
	Got      decimal.Decimal
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payments sum to %s, expected %s",
		e.Got.StringFixed(2), e.Expected.StringFixed(2))
}

// InvalidLegError indicates a malformed payment leg.
type InvalidLegError struct {
	Index  int
	Reason string
}

func (e *InvalidLegError) Error() string {
	return fmt.Sprintf("payment leg %d: %s", e.Index, e.Reason)
}
