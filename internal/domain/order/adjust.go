package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// AdjustLine is one exchange/return line. Quantity is signed: positive adds
// units to the order (exchange-in), negative takes them back (return).
type AdjustLine struct {
	VariantID int64
	Quantity  int
}

// AdjustResult reports the financial outcome of an exchange/return.
type AdjustResult struct {
	OrderID int64
	// NetAmount is the signed delta added onto the order's amount: negative
	// means the customer is owed money, positive means they owe more.
	NetAmount decimal.Decimal
	// Balance is the human-readable rendering of NetAmount.
	Balance string
}

// Adjust applies exchange/return lines to an existing order. Each line is
// priced with the variant's current discount and tax but the order's original
// promo discount, and the resulting deltas are added onto the order's running
// amount/profit/tax. Every line appends a signed-quantity ledger row; nothing
// is ever rewritten.
func (s *Service) Adjust(ctx context.Context, orderID int64, lines []AdjustLine) (*AdjustResult, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyItems
	}
	for _, l := range lines {
		if l.Quantity == 0 {
			return nil, ErrInvalidQuantity
		}
	}

	var result *AdjustResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return ErrOrderCancelled
		}

		dAmount, dProfit, dTax := zero, zero, zero
		for _, l := range lines {
			v, err := tx.VariantByID(ctx, l.VariantID)
			if err != nil {
				return errors.Wrapf(err, "variant %d", l.VariantID)
			}

			if l.Quantity > 0 {
				updated, err := tx.DecrementStock(ctx, v.ID, l.Quantity, true)
				if err != nil {
					return errors.Wrapf(err, "decrement stock for variant %d", v.ID)
				}
				if !updated {
					return &InsufficientStockError{
						VariantID: v.ID,
						Barcode:   v.Barcode,
						Stock:     v.Stock,
						Requested: l.Quantity,
					}
				}
			} else {
				if err := tx.IncrementStock(ctx, v.ID, -l.Quantity); err != nil {
					return errors.Wrapf(err, "restock variant %d", v.ID)
				}
			}

			lp := priceLine(v.Price, v.Discount, o.PromoDiscount, v.Tax)
			qty := decimal.NewFromInt(int64(l.Quantity))
			dAmount = dAmount.Add(lp.taxed.Mul(qty))
			dProfit = dProfit.Add(lp.discounted.Sub(v.WalletCost).Mul(qty))
			dTax = dTax.Add(lp.taxAmount.Mul(qty))

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
				Quantity:        l.Quantity,
			}); err != nil {
				return errors.Wrapf(err, "insert item for variant %d", v.ID)
			}
		}

		dAmount = dAmount.Round(2)
		if err := tx.AddOrderTotals(ctx, orderID, dAmount, dProfit.Round(2), dTax.Round(2)); err != nil {
			return errors.Wrap(err, "update order totals")
		}

		result = &AdjustResult{
			OrderID:   orderID,
			NetAmount: dAmount,
			Balance:   balanceMessage(dAmount),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// balanceMessage renders the net change as customer-facing text.
func balanceMessage(net decimal.Decimal) string {
	switch {
	case net.IsNegative():
		return fmt.Sprintf("customer is owed %s", net.Neg().StringFixed(2))
	case net.IsPositive():
		return fmt.Sprintf("customer owes an additional %s", net.StringFixed(2))
	default:
		return "no balance change"
	}
}
