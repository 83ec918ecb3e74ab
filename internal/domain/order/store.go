package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evostore/storefront-api/internal/domain/catalog"
	"github.com/evostore/storefront-api/internal/domain/loyalty"
	"github.com/evostore/storefront-api/internal/domain/sales"
)

// Tx is the persistence surface available inside one order transaction.
// Implementations scope every call to a single database transaction; the
// service never sees begin/commit/rollback.
type Tx interface {
	// Customer and address resolution.
	AddressBelongsTo(ctx context.Context, addressID, userID int64) (bool, error)
	EnsureCustomer(ctx context.Context, name, phone string) (int64, error)

	// Cart.
	CartItems(ctx context.Context, userID int64) ([]CartItem, error)
	ClearCart(ctx context.Context, userID int64) error

	// Catalog reads and stock mutation. DecrementStock applies the compound
	// stock guard (stock >= qty) unless enforce is false; it reports whether a
	// row was updated. IncrementStock is unguarded (returns only add stock).
	VariantByID(ctx context.Context, id int64) (*catalog.Variant, error)
	VariantByBarcode(ctx context.Context, barcode string) (*catalog.Variant, error)
	DecrementStock(ctx context.Context, variantID int64, qty int, enforce bool) (bool, error)
	IncrementStock(ctx context.Context, variantID int64, qty int) error

	// Loyalty and salesperson lookups.
	LoyaltyByBarcode(ctx context.Context, barcode string) (*loyalty.Card, error)
	SalesPersonByID(ctx context.Context, id int64) (*sales.Person, error)
	LinkSalesPerson(ctx context.Context, orderID, personID int64, commission decimal.Decimal) error

	// Order rows.
	InsertOrder(ctx context.Context, o *Order) (int64, error)
	OrderForUpdate(ctx context.Context, orderID int64) (*Order, error)
	SetOrderTotals(ctx context.Context, orderID int64, amount, profit, tax decimal.Decimal) error
	AddOrderTotals(ctx context.Context, orderID int64, dAmount, dProfit, dTax decimal.Decimal) error
	SetPaymentStatus(ctx context.Context, orderID int64, status PaymentStatus) error
	MarkCancelled(ctx context.Context, orderID int64) error

	// Ledgers: items, payments, refunds are append-only.
	InsertItem(ctx context.Context, item *Item) error
	ItemsByOrder(ctx context.Context, orderID int64) ([]Item, error)
	InsertPayment(ctx context.Context, p *Payment) error
	PaymentsByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	InsertRefund(ctx context.Context, r *Refund) error
	RefundedTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
}

// Store opens order transactions. InTx runs fn inside one database
// transaction, committing on nil and rolling back on error or panic.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Filter narrows order listing queries. Nil fields are ignored.
type Filter struct {
	From      *time.Time
	To        *time.Time
	Status    Status
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	UserID    *int64
	Page      int
	Limit     int
}

// Detail is a fully hydrated order for read endpoints.
type Detail struct {
	Order    Order
	Items    []Item
	Payments []Payment
	Refunds  []Refund
}

// ReturnRow is one negative-quantity ledger row joined with its order, for the
// returns-by-range report.
type ReturnRow struct {
	Item    Item
	OrderID int64
	UserID  int64
}

// Reader serves the read-only order endpoints outside of transactions.
type Reader interface {
	Get(ctx context.Context, orderID int64) (*Detail, error)
	List(ctx context.Context, f Filter) ([]Order, int64, error)
	Returns(ctx context.Context, from, to time.Time, page, limit int) ([]ReturnRow, int64, error)
}
