package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested variant does not exist.
var ErrNotFound = errors.New("variant not found")

// Variant is a sellable configuration of a product (color/size) carrying its
// own stock, pricing, and barcode. Price is the list price before discounts,
// Discount and Tax are percentages, WalletCost is the internal cost basis used
// for profit calculation.
type Variant struct {
	ID          int64
	ProductName string
	Category    string
	Color       string
	Size        string
	Barcode     string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	WalletCost  decimal.Decimal
	Stock       int
}

// Repository defines read operations for the variant catalog outside of an
// order transaction. Stock mutations happen only through the order
// transaction store.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Variant, error)
	GetByBarcode(ctx context.Context, barcode string) (*Variant, error)
}
