package order

import (
	"context"

	"github.com/go-faster/errors"
)

// Cancel soft-cancels an order: stock impact is reverted by replaying the
// signed item ledger (summing a mixed-sign ledger restores the pre-order
// baseline, including prior exchanges), one reversal leg is appended per
// charge leg in the payment ledger, and the order row is marked cancelled and
// deleted without being physically removed. Ledger rows are never deleted.
func (s *Service) Cancel(ctx context.Context, orderID int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return ErrOrderCancelled
		}

		items, err := tx.ItemsByOrder(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "read item ledger")
		}

		// Net units per variant; a variant whose sales were fully returned
		// nets to zero and needs no stock touch.
		net := make(map[int64]int, len(items))
		for _, it := range items {
			net[it.VariantID] += it.Quantity
		}
		for variantID, qty := range net {
			if qty == 0 {
				continue
			}
			if err := tx.IncrementStock(ctx, variantID, qty); err != nil {
				return errors.Wrapf(err, "restock variant %d", variantID)
			}
		}

		payments, err := tx.PaymentsByOrder(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "read payment ledger")
		}
		for _, p := range payments {
			if p.Kind != KindCharge {
				continue
			}
			if err := tx.InsertPayment(ctx, &Payment{
				OrderID: orderID,
				Type:    p.Type,
				Method:  p.Method,
				Kind:    KindReversal,
				Amount:  p.Amount,
			}); err != nil {
				return errors.Wrap(err, "insert reversal leg")
			}
		}

		if err := tx.MarkCancelled(ctx, orderID); err != nil {
			return errors.Wrap(err, "mark cancelled")
		}
		return nil
	})
}
