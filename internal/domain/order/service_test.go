package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evostore/storefront-api/internal/domain/catalog"
	"github.com/evostore/storefront-api/internal/domain/customer"
	"github.com/evostore/storefront-api/internal/domain/loyalty"
	"github.com/evostore/storefront-api/internal/domain/sales"
)

// --- In-memory fake store ---

type fakeStore struct {
	tx *fakeTx
}

func (s *fakeStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	// Snapshot-free fake: callers assert on final state, and failure tests
	// assert that no ledger rows were appended before the failing step.
	return fn(s.tx)
}

type fakeTx struct {
	variants  map[int64]*catalog.Variant
	addresses map[int64]int64 // addressID -> owning userID
	carts     map[int64][]CartItem
	customers map[string]int64 // phone -> userID
	cards     map[string]*loyalty.Card
	persons   map[int64]*sales.Person

	orders      map[int64]*Order
	nextOrderID int64
	nextUserID  int64

	items    []Item
	payments []Payment
	refunds  []Refund
	spLinks  map[int64]decimal.Decimal // orderID -> commission snapshot
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		variants:    make(map[int64]*catalog.Variant),
		addresses:   make(map[int64]int64),
		carts:       make(map[int64][]CartItem),
		customers:   make(map[string]int64),
		cards:       make(map[string]*loyalty.Card),
		persons:     make(map[int64]*sales.Person),
		orders:      make(map[int64]*Order),
		nextOrderID: 100,
		nextUserID:  10,
		spLinks:     make(map[int64]decimal.Decimal),
	}
}

func (t *fakeTx) AddressBelongsTo(_ context.Context, addressID, userID int64) (bool, error) {
	return t.addresses[addressID] == userID, nil
}

func (t *fakeTx) EnsureCustomer(_ context.Context, _, phone string) (int64, error) {
	if id, ok := t.customers[phone]; ok {
		return id, nil
	}
	t.nextUserID++
	t.customers[phone] = t.nextUserID
	return t.nextUserID, nil
}

func (t *fakeTx) CartItems(_ context.Context, userID int64) ([]CartItem, error) {
	return t.carts[userID], nil
}

func (t *fakeTx) ClearCart(_ context.Context, userID int64) error {
	delete(t.carts, userID)
	return nil
}

func (t *fakeTx) VariantByID(_ context.Context, id int64) (*catalog.Variant, error) {
	v, ok := t.variants[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (t *fakeTx) VariantByBarcode(_ context.Context, barcode string) (*catalog.Variant, error) {
	for _, v := range t.variants {
		if v.Barcode == barcode {
			cp := *v
			return &cp, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (t *fakeTx) DecrementStock(_ context.Context, variantID int64, qty int, enforce bool) (bool, error) {
	v, ok := t.variants[variantID]
	if !ok {
		return false, catalog.ErrNotFound
	}
	if enforce && v.Stock < qty {
		return false, nil
	}
	v.Stock -= qty
	return true, nil
}

func (t *fakeTx) IncrementStock(_ context.Context, variantID int64, qty int) error {
	v, ok := t.variants[variantID]
	if !ok {
		return catalog.ErrNotFound
	}
	v.Stock += qty
	return nil
}

func (t *fakeTx) LoyaltyByBarcode(_ context.Context, barcode string) (*loyalty.Card, error) {
	c, ok := t.cards[barcode]
	if !ok {
		return nil, loyalty.ErrNotFound
	}
	return c, nil
}

func (t *fakeTx) SalesPersonByID(_ context.Context, id int64) (*sales.Person, error) {
	p, ok := t.persons[id]
	if !ok {
		return nil, sales.ErrNotFound
	}
	return p, nil
}

func (t *fakeTx) LinkSalesPerson(_ context.Context, orderID, _ int64, commission decimal.Decimal) error {
	t.spLinks[orderID] = commission
	return nil
}

func (t *fakeTx) InsertOrder(_ context.Context, o *Order) (int64, error) {
	t.nextOrderID++
	cp := *o
	cp.ID = t.nextOrderID
	t.orders[cp.ID] = &cp
	return cp.ID, nil
}

func (t *fakeTx) OrderForUpdate(_ context.Context, orderID int64) (*Order, error) {
	o, ok := t.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *fakeTx) SetOrderTotals(_ context.Context, orderID int64, amount, profit, tax decimal.Decimal) error {
	o := t.orders[orderID]
	o.Amount, o.Profit, o.Tax = amount, profit, tax
	return nil
}

func (t *fakeTx) AddOrderTotals(_ context.Context, orderID int64, dAmount, dProfit, dTax decimal.Decimal) error {
	o := t.orders[orderID]
	o.Amount = o.Amount.Add(dAmount)
	o.Profit = o.Profit.Add(dProfit)
	o.Tax = o.Tax.Add(dTax)
	return nil
}

func (t *fakeTx) SetPaymentStatus(_ context.Context, orderID int64, status PaymentStatus) error {
	t.orders[orderID].PaymentStatus = status
	return nil
}

func (t *fakeTx) MarkCancelled(_ context.Context, orderID int64) error {
	o := t.orders[orderID]
	o.Status = StatusCancelled
	o.IsDeleted = true
	return nil
}

func (t *fakeTx) InsertItem(_ context.Context, item *Item) error {
	t.items = append(t.items, *item)
	return nil
}

func (t *fakeTx) ItemsByOrder(_ context.Context, orderID int64) ([]Item, error) {
	var out []Item
	for _, it := range t.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (t *fakeTx) InsertPayment(_ context.Context, p *Payment) error {
	t.payments = append(t.payments, *p)
	return nil
}

func (t *fakeTx) PaymentsByOrder(_ context.Context, orderID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range t.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *fakeTx) InsertRefund(_ context.Context, r *Refund) error {
	t.refunds = append(t.refunds, *r)
	return nil
}

func (t *fakeTx) RefundedTotal(_ context.Context, orderID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range t.refunds {
		if r.OrderID == orderID {
			total = total.Add(r.Amount)
		}
	}
	return total, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newVariant(id int64, barcode string, price, discount, tax string, stock int) *catalog.Variant {
	return &catalog.Variant{
		ID:          id,
		ProductName: "Test Shirt",
		Category:    "apparel",
		Color:       "blue",
		Size:        "M",
		Barcode:     barcode,
		Price:       dec(price),
		Discount:    dec(discount),
		Tax:         dec(tax),
		WalletCost:  dec("50"),
		Stock:       stock,
	}
}

func newService(tx *fakeTx) *Service {
	return NewService(&fakeStore{tx: tx}, Config{})
}

// validEAN is a checksum-correct EAN-13 used by loyalty tests.
const validEAN = "4006381333931"

// --- Online checkout ---

func TestPlaceOnline_InvalidMethod(t *testing.T) {
	svc := newService(newFakeTx())

	_, err := svc.PlaceOnline(context.Background(), PlaceOnlineRequest{
		UserID: 1, AddressID: 1, Method: "paper-iou",
	})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.PlaceOnline(context.Background(), PlaceOnlineRequest{
		UserID: 1, AddressID: 1, Method: MethodSplit,
	})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestPlaceOnline_AddressNotOwned(t *testing.T) {
	tx := newFakeTx()
	tx.addresses[7] = 99
	svc := newService(tx)

	_, err := svc.PlaceOnline(context.Background(), PlaceOnlineRequest{
		UserID: 1, AddressID: 7, Method: MethodCard,
	})
	require.ErrorIs(t, err, ErrAddressNotOwned)
}

func TestPlaceOnline_EmptyCart(t *testing.T) {
	tx := newFakeTx()
	tx.addresses[7] = 1
	svc := newService(tx)

	_, err := svc.PlaceOnline(context.Background(), PlaceOnlineRequest{
		UserID: 1, AddressID: 7, Method: MethodCard,
	})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOnline_Success(t *testing.T) {
	tx := newFakeTx()
	tx.addresses[7] = 1
	tx.variants[1] = newVariant(1, "b1", "100", "0", "5", 10)
	tx.carts[1] = []CartItem{{VariantID: 1, Quantity: 2}}
	svc := newService(tx)

	res, err := svc.PlaceOnline(context.Background(), PlaceOnlineRequest{
		UserID: 1, AddressID: 7, Method: MethodUPI,
	})
	require.NoError(t, err)
	assert.True(t, dec("210.00").Equal(res.Amount), "got %s", res.Amount)

	o := tx.orders[res.OrderID]
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.True(t, dec("10.00").Equal(o.Tax))
	assert.True(t, dec("100.00").Equal(o.Profit)) // (100-50)*2
	assert.Equal(t, 8, tx.variants[1].Stock)
	assert.Empty(t, tx.carts[1], "cart must be cleared")
	require.Len(t, tx.items, 1)
	assert.Equal(t, 2, tx.items[0].Quantity)
}

func TestPlaceOnline_InsufficientStock(t *testing.T) {
	tx := newFakeTx()
	tx.addresses[7] = 1
	tx.variants[1] = newVariant(1, "b1", "100", "0", "5", 1)
	tx.carts[1] = []CartItem{{VariantID: 1, Quantity: 3}}
	svc := newService(tx)

	_, err := svc.PlaceOnline(context.Background(), PlaceOnlineRequest{
		UserID: 1, AddressID: 7, Method: MethodCard,
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 1, stockErr.Stock)
	assert.Equal(t, 3, stockErr.Requested)
}

func TestPlaceOnline_BackorderAllowed(t *testing.T) {
	tx := newFakeTx()
	tx.addresses[7] = 1
	tx.variants[1] = newVariant(1, "b1", "100", "0", "5", 1)
	tx.carts[1] = []CartItem{{VariantID: 1, Quantity: 3}}
	svc := NewService(&fakeStore{tx: tx}, Config{AllowBackorder: true})

	_, err := svc.PlaceOnline(context.Background(), PlaceOnlineRequest{
		UserID: 1, AddressID: 7, Method: MethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, -2, tx.variants[1].Stock)
}

// --- Offline checkout ---

// Scenario A: one item, quantity 2, price 100, discount 0, tax 5, no loyalty:
// amount must be 210.00 funded by a single cash leg of 210.00.
func TestPlaceOffline_CashScenario(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "100", "0", "5", 10)
	svc := newService(tx)

	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method: MethodCash,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.True(t, dec("210.00").Equal(res.Amount), "got %s", res.Amount)

	o := tx.orders[res.OrderID]
	assert.Equal(t, customer.WalkInID, o.UserID)
	assert.Equal(t, PaymentCompleted, o.PaymentStatus)
	assert.Equal(t, StatusDelivered, o.Status)

	require.Len(t, tx.payments, 1)
	assert.Equal(t, PayCash, tx.payments[0].Type)
	assert.Equal(t, KindCharge, tx.payments[0].Kind)
	assert.True(t, dec("210.00").Equal(tx.payments[0].Amount))
}

// Payment ledger invariant: legs always sum to the order amount.
func TestPlaceOffline_PaymentsMatchAmount(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "119.99", "12.5", "18", 10)
	tx.variants[2] = newVariant(2, "b2", "59.49", "0", "5", 10)
	svc := newService(tx)

	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method: MethodCard,
		Items: []BarcodeItem{
			{Barcode: "b1", Quantity: 3},
			{Barcode: "b2", Quantity: 1},
		},
	})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, p := range tx.payments {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Sub(res.Amount).Abs().LessThanOrEqual(dec("0.01")),
		"payments %s vs amount %s", sum, res.Amount)
}

func TestPlaceOffline_ValidationOrder(t *testing.T) {
	svc := newService(newFakeTx())
	ctx := context.Background()

	_, err := svc.PlaceOffline(ctx, PlaceOfflineRequest{Method: "barter"})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.PlaceOffline(ctx, PlaceOfflineRequest{Method: MethodCash})
	require.ErrorIs(t, err, ErrEmptyItems)

	_, err = svc.PlaceOffline(ctx, PlaceOfflineRequest{
		Method: MethodCash,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.PlaceOffline(ctx, PlaceOfflineRequest{
		Method: MethodCash,
		Phone:  "12ab",
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.ErrorIs(t, err, customer.ErrInvalidPhone)

	// A name is validated whenever supplied, even without a phone.
	_, err = svc.PlaceOffline(ctx, PlaceOfflineRequest{
		Method: MethodCash,
		Name:   " leading space",
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.ErrorIs(t, err, customer.ErrInvalidName)

	badSP := int64(0)
	_, err = svc.PlaceOffline(ctx, PlaceOfflineRequest{
		Method:        MethodCash,
		SalesPersonID: &badSP,
		Items:         []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidSalesPersonID)

	_, err = svc.PlaceOffline(ctx, PlaceOfflineRequest{
		Method:         MethodCash,
		LoyaltyBarcode: "4006381333930", // wrong check digit
		Items:          []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.ErrorIs(t, err, loyalty.ErrInvalidBarcode)
}

func TestPlaceOffline_GuestCustomer(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "100", "0", "0", 5)
	svc := newService(tx)

	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Name:   "Asha Rao",
		Phone:  "9876543210",
		Method: MethodCash,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.NoError(t, err)

	guestID := tx.customers["9876543210"]
	assert.NotZero(t, guestID)
	assert.Equal(t, guestID, tx.orders[res.OrderID].UserID)
}

func TestPlaceOffline_LoyaltyDiscount(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "200", "0", "0", 5)
	tx.cards[validEAN] = &loyalty.Card{Barcode: validEAN, Discount: dec("10")}
	svc := newService(tx)

	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method:         MethodCash,
		LoyaltyBarcode: validEAN,
		Items:          []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, dec("180.00").Equal(res.Amount), "got %s", res.Amount)
	assert.True(t, dec("10").Equal(tx.orders[res.OrderID].PromoDiscount))
}

func TestPlaceOffline_SalesPersonNotFound(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "100", "0", "0", 5)
	svc := newService(tx)

	missing := int64(42)
	_, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method:        MethodCash,
		SalesPersonID: &missing,
		Items:         []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.ErrorIs(t, err, sales.ErrNotFound)
}

func TestPlaceOffline_CommissionSnapshot(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "100", "0", "0", 5)
	tx.persons[3] = &sales.Person{ID: 3, Name: "Ravi", Commission: dec("2.5")}
	svc := newService(tx)

	spID := int64(3)
	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method:        MethodCash,
		SalesPersonID: &spID,
		Items:         []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, dec("2.5").Equal(tx.spLinks[res.OrderID]))
}

func TestPlaceOffline_InsufficientStock(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "100", "0", "0", 1)
	svc := newService(tx)

	_, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method: MethodCash,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 2}},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "b1", stockErr.Barcode)
}

// Scenario D: split order, expectedAmount 500, cash 300 + online 200 via UPI
// succeeds with two legs; legs summing to 499 fail and insert nothing.
func TestPlaceOffline_SplitPayment(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "500", "0", "0", 10)
	svc := newService(tx)

	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method: MethodSplit,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 1}},
		Payments: &SplitBreakdown{
			Cash:   dec("300"),
			Online: OnlineLeg{Amount: dec("200"), Method: MethodUPI},
		},
	})
	require.NoError(t, err)
	assert.True(t, dec("500.00").Equal(res.Amount))
	require.Len(t, tx.payments, 2)
	assert.Equal(t, PayCash, tx.payments[0].Type)
	assert.Equal(t, PayOnline, tx.payments[1].Type)
	assert.Equal(t, MethodUPI, tx.payments[1].Method)
}

func TestPlaceOffline_SplitMismatch(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "500", "0", "0", 10)
	svc := newService(tx)

	_, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method: MethodSplit,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 1}},
		Payments: &SplitBreakdown{
			Cash:   dec("300"),
			Online: OnlineLeg{Amount: dec("199"), Method: MethodUPI},
		},
	})

	var mismatch *PaymentMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, dec("500.00").Equal(mismatch.Expected))
	assert.True(t, dec("499").Equal(mismatch.Got))
	assert.Empty(t, tx.payments, "no legs on mismatch")
}

func TestPlaceOffline_SplitBadOnlineMethod(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "500", "0", "0", 10)
	svc := newService(tx)

	_, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method: MethodSplit,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 1}},
		Payments: &SplitBreakdown{
			Cash:   dec("300"),
			Online: OnlineLeg{Amount: dec("200"), Method: MethodCash},
		},
	})

	var legErr *InvalidLegError
	require.ErrorAs(t, err, &legErr)
}

// --- Exchange/return adjustment ---

// placeScenarioA creates the Scenario A order and returns its ID.
func placeScenarioA(t *testing.T, tx *fakeTx) int64 {
	t.Helper()
	tx.variants[1] = newVariant(1, "b1", "100", "0", "5", 10)
	svc := newService(tx)
	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method: MethodCash,
		Items:  []BarcodeItem{{Barcode: "b1", Quantity: 2}},
	})
	require.NoError(t, err)
	return res.OrderID
}

// Scenario B: returning one unit of the Scenario A order yields a net change
// of -105.00, an order amount of 105.00, and one more unit on the shelf.
func TestAdjust_ReturnScenario(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	stockAfterSale := tx.variants[1].Stock
	svc := newService(tx)

	res, err := svc.Adjust(context.Background(), orderID, []AdjustLine{
		{VariantID: 1, Quantity: -1},
	})
	require.NoError(t, err)
	assert.True(t, dec("-105.00").Equal(res.NetAmount), "got %s", res.NetAmount)
	assert.Contains(t, res.Balance, "owed")
	assert.True(t, dec("105.00").Equal(tx.orders[orderID].Amount))
	assert.Equal(t, stockAfterSale+1, tx.variants[1].Stock)

	// The return appended a ledger row; nothing was rewritten.
	items, _ := tx.ItemsByOrder(context.Background(), orderID)
	require.Len(t, items, 2)
	assert.Equal(t, -1, items[1].Quantity)
}

// Round trip: create, then fully return. Net units and stock are back to the
// pre-order baseline; the order amount nets to zero.
func TestAdjust_FullReturnRoundTrip(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	_, err := svc.Adjust(context.Background(), orderID, []AdjustLine{
		{VariantID: 1, Quantity: -2},
	})
	require.NoError(t, err)

	assert.Equal(t, 10, tx.variants[1].Stock, "stock restored to pre-order value")
	assert.True(t, tx.orders[orderID].Amount.IsZero(), "got %s", tx.orders[orderID].Amount)

	net := 0
	items, _ := tx.ItemsByOrder(context.Background(), orderID)
	for _, it := range items {
		net += it.Quantity
	}
	assert.Zero(t, net, "customer holds no units")
}

// Exchanges use the order's original promo discount, not the card again.
func TestAdjust_UsesOrderPromoDiscount(t *testing.T) {
	tx := newFakeTx()
	tx.variants[1] = newVariant(1, "b1", "200", "0", "0", 10)
	tx.cards[validEAN] = &loyalty.Card{Barcode: validEAN, Discount: dec("10")}
	svc := newService(tx)

	res, err := svc.PlaceOffline(context.Background(), PlaceOfflineRequest{
		Method:         MethodCash,
		LoyaltyBarcode: validEAN,
		Items:          []BarcodeItem{{Barcode: "b1", Quantity: 1}},
	})
	require.NoError(t, err)

	adj, err := svc.Adjust(context.Background(), res.OrderID, []AdjustLine{
		{VariantID: 1, Quantity: 1},
	})
	require.NoError(t, err)
	assert.True(t, dec("180.00").Equal(adj.NetAmount), "promo applied: got %s", adj.NetAmount)
	assert.Contains(t, adj.Balance, "owes")
}

func TestAdjust_OrderNotFound(t *testing.T) {
	svc := newService(newFakeTx())

	_, err := svc.Adjust(context.Background(), 999, []AdjustLine{{VariantID: 1, Quantity: 1}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdjust_ExchangeInsufficientStock(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	tx.variants[1].Stock = 0
	svc := newService(tx)

	_, err := svc.Adjust(context.Background(), orderID, []AdjustLine{
		{VariantID: 1, Quantity: 1},
	})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
}

// --- Refund settlement ---

// Scenario C: after returning one unit (refundable 105.00), settling 105.00
// flips payment status to refunded with nothing remaining.
func TestSettleRefund_FullScenario(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	_, err := svc.Adjust(context.Background(), orderID, []AdjustLine{
		{VariantID: 1, Quantity: -1},
	})
	require.NoError(t, err)

	res, err := svc.SettleRefund(context.Background(), orderID, RefundRequest{
		Type: PayCash, Amount: dec("105.00"), AdminID: "admin-1",
	})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.True(t, res.Remaining.IsZero())
	assert.Equal(t, PaymentRefunded, tx.orders[orderID].PaymentStatus)
	require.Len(t, tx.refunds, 1)
	require.NotNil(t, tx.refunds[0].AdminID)
	assert.Equal(t, "admin-1", *tx.refunds[0].AdminID)
}

func TestSettleRefund_PartialThenExceeds(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	_, err := svc.Adjust(context.Background(), orderID, []AdjustLine{
		{VariantID: 1, Quantity: -1},
	})
	require.NoError(t, err)

	res, err := svc.SettleRefund(context.Background(), orderID, RefundRequest{
		Type: PayCash, Amount: dec("50.00"),
	})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.True(t, dec("55.00").Equal(res.Remaining), "got %s", res.Remaining)
	assert.Equal(t, PaymentCompleted, tx.orders[orderID].PaymentStatus)

	// 0.02 over the remaining entitlement: rejected, ledger untouched.
	_, err = svc.SettleRefund(context.Background(), orderID, RefundRequest{
		Type: PayCash, Amount: dec("55.02"),
	})
	var exceeds *RefundExceedsError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, dec("55.00").Equal(exceeds.Remaining))
	require.Len(t, tx.refunds, 1)

	// The bound is strict: one cent over is rejected too.
	_, err = svc.SettleRefund(context.Background(), orderID, RefundRequest{
		Type: PayCash, Amount: dec("55.01"),
	})
	require.ErrorAs(t, err, &exceeds)
	require.Len(t, tx.refunds, 1)
	assert.Equal(t, PaymentCompleted, tx.orders[orderID].PaymentStatus)

	// Exactly the remaining amount completes the ledger.
	res, err = svc.SettleRefund(context.Background(), orderID, RefundRequest{
		Type: PayOnline, Method: MethodUPI, Amount: dec("55.00"),
	})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, PaymentRefunded, tx.orders[orderID].PaymentStatus)
}

func TestSettleRefund_NoReturns(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	_, err := svc.SettleRefund(context.Background(), orderID, RefundRequest{
		Type: PayCash, Amount: dec("1.00"),
	})

	var exceeds *RefundExceedsError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Remaining.IsZero())
}

func TestSettleRefund_InvalidInputs(t *testing.T) {
	svc := newService(newFakeTx())
	ctx := context.Background()

	_, err := svc.SettleRefund(ctx, 1, RefundRequest{Type: "cheque", Amount: dec("5")})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.SettleRefund(ctx, 1, RefundRequest{Type: PayOnline, Method: MethodCash, Amount: dec("5")})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.SettleRefund(ctx, 1, RefundRequest{Type: PayCash, Amount: dec("0")})
	var legErr *InvalidLegError
	require.ErrorAs(t, err, &legErr)
}

// --- Payment top-up ---

func TestRecordPayments_Success(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	before := len(tx.payments)
	svc := newService(tx)

	paid, err := svc.RecordPayments(context.Background(), orderID, []Leg{
		{Type: PayCash, Amount: dec("300")},
		{Type: PayOnline, Method: MethodUPI, Amount: dec("200")},
	}, dec("500"))
	require.NoError(t, err)
	assert.True(t, dec("500.00").Equal(paid))
	assert.Len(t, tx.payments, before+2)
}

func TestRecordPayments_ToleranceBoundary(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	// One cent off is accepted.
	_, err := svc.RecordPayments(context.Background(), orderID, []Leg{
		{Type: PayCash, Amount: dec("499.99")},
	}, dec("500"))
	require.NoError(t, err)

	// Two cents off is not, and inserts nothing.
	before := len(tx.payments)
	_, err = svc.RecordPayments(context.Background(), orderID, []Leg{
		{Type: PayCash, Amount: dec("499.98")},
	}, dec("500"))
	var mismatch *PaymentMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Len(t, tx.payments, before)
}

func TestRecordPayments_InvalidLeg(t *testing.T) {
	svc := newService(newFakeTx())
	ctx := context.Background()

	_, err := svc.RecordPayments(ctx, 1, nil, dec("10"))
	require.ErrorIs(t, err, ErrEmptyItems)

	_, err = svc.RecordPayments(ctx, 1, []Leg{
		{Type: PayOnline, Method: MethodCash, Amount: dec("10")},
	}, dec("10"))
	var legErr *InvalidLegError
	require.ErrorAs(t, err, &legErr)
	assert.Equal(t, 0, legErr.Index)

	_, err = svc.RecordPayments(ctx, 1, []Leg{
		{Type: PayCash, Amount: dec("-1")},
	}, dec("-1"))
	require.ErrorAs(t, err, &legErr)
}

// --- Soft cancel ---

func TestCancel_RestoresStockAndReversesPayments(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	// An exchange first, so cancellation must revert a mixed-sign ledger.
	_, err := svc.Adjust(context.Background(), orderID, []AdjustLine{
		{VariantID: 1, Quantity: -1},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), orderID))

	o := tx.orders[orderID]
	assert.Equal(t, StatusCancelled, o.Status)
	assert.True(t, o.IsDeleted)
	assert.Equal(t, 10, tx.variants[1].Stock, "net ledger replay restores baseline")

	var charges, reversals int
	for _, p := range tx.payments {
		switch p.Kind {
		case KindCharge:
			charges++
		case KindReversal:
			reversals++
		}
	}
	assert.Equal(t, charges, reversals, "one reversal per charge leg")
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	require.NoError(t, svc.Cancel(context.Background(), orderID))
	require.ErrorIs(t, svc.Cancel(context.Background(), orderID), ErrOrderCancelled)
}

func TestAdjust_CancelledOrder(t *testing.T) {
	tx := newFakeTx()
	orderID := placeScenarioA(t, tx)
	svc := newService(tx)

	require.NoError(t, svc.Cancel(context.Background(), orderID))

	_, err := svc.Adjust(context.Background(), orderID, []AdjustLine{
		{VariantID: 1, Quantity: -1},
	})
	require.ErrorIs(t, err, ErrOrderCancelled)
}
