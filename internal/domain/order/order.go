// Package order implements the order transaction service: online checkout,
// offline point-of-sale creation, exchange/return adjustment, refund
// settlement, payment recording, and soft cancellation. All multi-step writes
// run through a Store transaction so stock and the order's financial
// aggregates stay consistent.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates how an order (or a payment leg) is funded.
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "cash"
	MethodCard       PaymentMethod = "card"
	MethodUPI        PaymentMethod = "upi"
	MethodNetBanking PaymentMethod = "netbanking"
	MethodWallet     PaymentMethod = "wallet"
	// MethodSplit funds an order with a cash leg plus an online leg. Only
	// valid for offline checkout.
	MethodSplit PaymentMethod = "split"
)

// Valid reports whether m is a member of the payment method enumeration.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodUPI, MethodNetBanking, MethodWallet, MethodSplit:
		return true
	}
	return false
}

// Online reports whether m is an online payment method.
func (m PaymentMethod) Online() bool {
	switch m {
	case MethodCard, MethodUPI, MethodNetBanking, MethodWallet:
		return true
	}
	return false
}

// PaymentStatus tracks how far an order's funding lifecycle has progressed.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// PaymentType distinguishes cash legs from online legs in the payment ledger.
type PaymentType string

const (
	PayCash   PaymentType = "cash"
	PayOnline PaymentType = "online"
)

// PaymentKind distinguishes charges from reversals. Cancelling an order
// appends one reversal leg per charge leg; charge legs are never deleted.
type PaymentKind string

const (
	KindCharge   PaymentKind = "charge"
	KindReversal PaymentKind = "reversal"
)

// Order is the aggregate row. Amount, Profit, and Tax are running totals over
// the order's full event history: item insertions, exchanges, and returns all
// add onto them. PromoDiscount is snapshotted from a loyalty card at creation
// and applied uniformly to every line, including later exchanges.
type Order struct {
	ID            int64
	UserID        int64
	AddressID     *int64
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Status        Status
	Amount        decimal.Decimal
	Profit        decimal.Decimal
	Tax           decimal.Decimal
	PromoDiscount decimal.Decimal
	IsDeleted     bool
	CreatedAt     time.Time
}

// Item is one append-only ledger row per unit-of-sale event. Quantity is
// signed: positive for sales and exchange-ins, negative for returns. The
// product fields are a denormalized snapshot taken at event time.
// DiscountedPrice is the unit price after the variant discount and the
// order's promo discount, before tax.
type Item struct {
	ID              int64
	OrderID         int64
	VariantID       int64
	ProductName     string
	Category        string
	Color           string
	Size            string
	UnitPrice       decimal.Decimal
	DiscountedPrice decimal.Decimal
	Tax             decimal.Decimal
	Quantity        int
	CreatedAt       time.Time
}

// Payment is one leg of the append-only payment ledger.
type Payment struct {
	ID        int64
	OrderID   int64
	Type      PaymentType
	Method    PaymentMethod
	Kind      PaymentKind
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Refund is one settled refund in the append-only refund ledger. AdminID is
// the identity of the API key that settled it, when known.
type Refund struct {
	ID        int64
	OrderID   int64
	Type      PaymentType
	Method    PaymentMethod
	Amount    decimal.Decimal
	AdminID   *string
	CreatedAt time.Time
}

// CartItem is a line in a user's cart, consumed by online checkout.
type CartItem struct {
	VariantID int64
	Quantity  int
}
