package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/evostore/storefront-api/internal/domain/customer"
	"github.com/evostore/storefront-api/internal/domain/loyalty"
)

// BarcodeItem is one point-of-sale line: a scanned barcode and quantity.
type BarcodeItem struct {
	Barcode  string
	Quantity int
}

// OnlineLeg is the online half of a split payment.
type OnlineLeg struct {
	Amount decimal.Decimal
	Method PaymentMethod
}

// SplitBreakdown spells out how a split-method order total is funded.
type SplitBreakdown struct {
	Cash   decimal.Decimal
	Online OnlineLeg
}

// PlaceOfflineRequest is the input for point-of-sale order creation.
// Name and Phone are optional: when a phone is given a guest customer is
// created (or reused), otherwise the order is attributed to the walk-in user.
type PlaceOfflineRequest struct {
	Name           string
	Phone          string
	SalesPersonID  *int64
	LoyaltyBarcode string
	Method         PaymentMethod
	Items          []BarcodeItem
	Payments       *SplitBreakdown
}

// PlaceOffline creates an immediately fulfilled point-of-sale order:
// payment_status is completed and order_status is delivered from the start.
// Unlike online checkout, stock sufficiency is always enforced here, with a
// guarded decrement closing the race between concurrent sales of the last
// units.
func (s *Service) PlaceOffline(ctx context.Context, req PlaceOfflineRequest) (*PlaceResult, error) {
	// Validation runs in a fixed order so clients get stable error messages:
	// method, items, customer identity, salesperson, loyalty barcode.
	if !req.Method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if req.Phone != "" && !customer.ValidPhone(req.Phone) {
		return nil, customer.ErrInvalidPhone
	}
	if req.Name != "" && !customer.ValidName(req.Name) {
		return nil, customer.ErrInvalidName
	}
	if req.SalesPersonID != nil && *req.SalesPersonID <= 0 {
		return nil, ErrInvalidSalesPersonID
	}
	if req.LoyaltyBarcode != "" && !loyalty.ValidEAN13(req.LoyaltyBarcode) {
		return nil, loyalty.ErrInvalidBarcode
	}
	if req.Method == MethodSplit && req.Payments == nil {
		return nil, ErrSplitBreakdownNeeded
	}

	var result *PlaceResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		userID := customer.WalkInID
		if req.Phone != "" {
			id, err := tx.EnsureCustomer(ctx, req.Name, req.Phone)
			if err != nil {
				return errors.Wrap(err, "resolve customer")
			}
			userID = id
		}

		promo := zero
		if req.LoyaltyBarcode != "" {
			card, err := tx.LoyaltyByBarcode(ctx, req.LoyaltyBarcode)
			if err != nil {
				return errors.Wrap(err, "resolve loyalty card")
			}
			promo = card.Discount
		}

		orderID, err := tx.InsertOrder(ctx, &Order{
			UserID:        userID,
			PaymentMethod: req.Method,
			PaymentStatus: PaymentCompleted,
			Status:        StatusDelivered,
			PromoDiscount: promo,
		})
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		if req.SalesPersonID != nil {
			person, err := tx.SalesPersonByID(ctx, *req.SalesPersonID)
			if err != nil {
				return errors.Wrapf(err, "salesperson %d", *req.SalesPersonID)
			}
			if err := tx.LinkSalesPerson(ctx, orderID, person.ID, person.Commission); err != nil {
				return errors.Wrap(err, "link salesperson")
			}
		}

		amount, profit, taxTotal := zero, zero, zero
		for _, it := range req.Items {
			v, err := tx.VariantByBarcode(ctx, it.Barcode)
			if err != nil {
				return errors.Wrapf(err, "barcode %s", it.Barcode)
			}
			if v.Stock < it.Quantity {
				return &InsufficientStockError{
					VariantID: v.ID,
					Barcode:   v.Barcode,
					Stock:     v.Stock,
					Requested: it.Quantity,
				}
			}

			// The read above is only advisory; the guarded update is what
			// actually protects against a concurrent sale of the same units.
			updated, err := tx.DecrementStock(ctx, v.ID, it.Quantity, true)
			if err != nil {
				return errors.Wrapf(err, "decrement stock for barcode %s", it.Barcode)
			}
			if !updated {
				return &InsufficientStockError{
					VariantID: v.ID,
					Barcode:   v.Barcode,
					Stock:     v.Stock,
					Requested: it.Quantity,
				}
			}

			lp := priceLine(v.Price, v.Discount, promo, v.Tax)
			qty := decimal.NewFromInt(int64(it.Quantity))
			amount = amount.Add(lp.taxed.Mul(qty))
			profit = profit.Add(lp.discounted.Sub(v.WalletCost).Mul(qty))
			taxTotal = taxTotal.Add(lp.taxAmount.Mul(qty))

			if err := tx.InsertItem(ctx, &Item{
				OrderID:         orderID,
				VariantID:       v.ID,
				ProductName:     v.ProductName,
				Category:        v.Category,
				Color:           v.Color,
				Size:            v.Size,
				UnitPrice:       v.Price,
				DiscountedPrice: lp.discounted.Round(2),
				Tax:             v.Tax,
				Quantity:        it.Quantity,
			}); err != nil {
				return errors.Wrapf(err, "insert item for barcode %s", it.Barcode)
			}
		}

		amount = amount.Round(2)
		if err := tx.SetOrderTotals(ctx, orderID, amount, profit.Round(2), taxTotal.Round(2)); err != nil {
			return errors.Wrap(err, "write order totals")
		}

		legs, err := deriveLegs(req.Method, amount, req.Payments)
		if err != nil {
			return err
		}
		for i := range legs {
			legs[i].OrderID = orderID
			if err := tx.InsertPayment(ctx, &legs[i]); err != nil {
				return errors.Wrap(err, "insert payment")
			}
		}

		result = &PlaceResult{OrderID: orderID, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// deriveLegs turns the chosen payment method and an optional split breakdown
// into concrete ledger legs. The split legs must sum to total within the cent
// tolerance; zero-amount legs are dropped.
func deriveLegs(method PaymentMethod, total decimal.Decimal, split *SplitBreakdown) ([]Payment, error) {
	switch {
	case method == MethodCash:
		return []Payment{{Type: PayCash, Kind: KindCharge, Amount: total}}, nil

	case method.Online():
		return []Payment{{Type: PayOnline, Method: method, Kind: KindCharge, Amount: total}}, nil

	case method == MethodSplit:
		if split == nil {
			return nil, ErrSplitBreakdownNeeded
		}
		if split.Cash.IsNegative() {
			return nil, &InvalidLegError{Index: 0, Reason: "cash amount must not be negative"}
		}
		if !split.Online.Amount.IsPositive() {
			return nil, &InvalidLegError{Index: 1, Reason: "online amount must be positive"}
		}
		if !split.Online.Method.Online() {
			return nil, &InvalidLegError{Index: 1, Reason: "invalid online payment method"}
		}

		sum := split.Cash.Add(split.Online.Amount)
		if !withinTolerance(sum, total) {
			return nil, &PaymentMismatchError{Expected: total, Got: sum}
		}

		var legs []Payment
		if split.Cash.IsPositive() {
			legs = append(legs, Payment{Type: PayCash, Kind: KindCharge, Amount: split.Cash})
		}
		legs = append(legs, Payment{
			Type:   PayOnline,
			Method: split.Online.Method,
			Kind:   KindCharge,
			Amount: split.Online.Amount,
		})
		return legs, nil

	default:
		return nil, ErrInvalidPaymentMethod
	}
}
