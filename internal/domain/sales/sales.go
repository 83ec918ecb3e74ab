// Package sales models salespersons and their commission snapshots.
package sales

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a referenced salesperson does not exist.
var ErrNotFound = errors.New("salesperson not found")

// Person is a salesperson with their current commission rate (percent).
type Person struct {
	ID         int64
	Name       string
	Commission decimal.Decimal
}

// Repository provides salesperson lookup. List feeds the point-of-sale
// salesperson picker.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Person, error)
	List(ctx context.Context) ([]Person, error)
}
