package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the order service's business policy knobs.
type Config struct {
	// AllowBackorder disables the stock-sufficiency guard for online checkout,
	// letting stock go negative. Offline checkout always enforces the guard:
	// a walk-in sale of goods that are not on the shelf is a bug, not a
	// backorder.
	AllowBackorder bool
}

// Service orchestrates all order transactions against a Store.
type Service struct {
	store          Store
	allowBackorder bool
}

// NewService creates an order Service backed by the given Store.
func NewService(store Store, cfg Config) *Service {
	return &Service{
		store:          store,
		allowBackorder: cfg.AllowBackorder,
	}
}

// PlaceOnlineRequest is the input for online cart checkout.
type PlaceOnlineRequest struct {
	UserID    int64
	AddressID int64
	Method    PaymentMethod
}

// PlaceResult identifies a created order and its final amount.
type PlaceResult struct {
	OrderID int64
	Amount  decimal.Decimal
}

// PlaceOnline checks out the user's cart: it validates address ownership and
// payment method, snapshots every cart line into the item ledger, decrements
// stock, accumulates the order's amount/profit/tax, and clears the cart — all
// in one transaction.
func (s *Service) PlaceOnline(ctx context.Context, req PlaceOnlineRequest) (*PlaceResult, error) {
	if !req.Method.Valid() || req.Method == MethodSplit {
		return nil, ErrInvalidPaymentMethod
	}

	var result *PlaceResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		owned, err := tx.AddressBelongsTo(ctx, req.AddressID, req.UserID)
		if err != nil {
			return errors.Wrap(err, "check address")
		}
		if !owned {
			return ErrAddressNotOwned
		}

		lines, err := tx.CartItems(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(err, "read cart")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		addressID := req.AddressID
		orderID, err := tx.InsertOrder(ctx, &Order{
			UserID:        req.UserID,
			AddressID:     &addressID,
			PaymentMethod: req.Method,
			PaymentStatus: PaymentPending,
			Status:        StatusPlaced,
			PromoDiscount: zero,
		})
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		amount, profit, taxTotal := zero, zero, zero
		for _, line := range lines {
			v, err := tx.VariantByID(ctx, line.VariantID)
			if err != nil {
				return errors.Wrapf(err, "variant %d", line.VariantID)
			}

			updated, err := tx.DecrementStock(ctx, v.ID, line.Quantity, !s.allowBackorder)
			if err != nil {
				return errors.Wrapf(err, "decrement stock for variant %d", v.ID)
			}
			if !updated {
				return &InsufficientStockError{
					VariantID: v.ID,
					Barcode:   v.Barcode,
					Stock:     v.Stock,
					Requested: line.Quantity,
				}
			}

			lp := priceLine(v.Price, v.Discount, zero, v.Tax)
			qty := decimal.NewFromInt(int64(line.Quantity))
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
				Quantity:        line.Quantity,
			}); err != nil {
				return errors.Wrapf(err, "insert item for variant %d", v.ID)
			}
		}

		amount = amount.Round(2)
		if err := tx.SetOrderTotals(ctx, orderID, amount, profit.Round(2), taxTotal.Round(2)); err != nil {
			return errors.Wrap(err, "write order totals")
		}

		if err := tx.ClearCart(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		result = &PlaceResult{OrderID: orderID, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
