// Package loyalty holds loyalty card lookup and barcode validation. Cards are
// consulted during point-of-sale checkout to derive an order-wide promo
// discount; they are never mutated by the order flow.
package loyalty

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no card matches the given barcode.
	ErrNotFound = errors.New("loyalty card not found")
	// ErrInvalidBarcode is returned when a barcode fails the EAN-13 checksum.
	ErrInvalidBarcode = errors.New("invalid loyalty barcode")
)

// Card pairs a loyalty barcode with its discount percentage.
type Card struct {
	ID       int64
	Barcode  string
	Discount decimal.Decimal
}

// Repository provides loyalty card lookup by barcode.
type Repository interface {
	FindByBarcode(ctx context.Context, barcode string) (*Card, error)
}

// ValidEAN13 reports whether code is a syntactically valid EAN-13 barcode:
// exactly 13 digits whose check digit satisfies the standard weighted checksum.
func ValidEAN13(code string) bool {
	if len(code) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := code[i]
		if d < '0' || d > '9' {
			return false
		}
		n := int(d - '0')
		if i%2 == 1 {
			n *= 3
		}
		sum += n
	}
	last := code[12]
	if last < '0' || last > '9' {
		return false
	}
	check := (10 - sum%10) % 10
	return int(last-'0') == check
}
