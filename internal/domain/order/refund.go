package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// RefundRequest asks to pay out part of an order's refund entitlement.
type RefundRequest struct {
	Type   PaymentType
	Method PaymentMethod // required online sub-method when Type is online
	Amount decimal.Decimal
	// AdminID identifies who settled the refund; empty when unknown.
	AdminID string
}

// RefundResult reports a settled refund and what remains claimable.
type RefundResult struct {
	RefundedNow decimal.Decimal
	Remaining   decimal.Decimal
	// Completed is true when this refund exhausted the entitlement and the
	// order's payment status flipped to refunded.
	Completed bool
}

// SettleRefund appends a refund to the order's refund ledger. The entitlement
// is derived purely from negative-quantity item rows; cumulative refunds can
// never exceed it. Partial refunds are supported by repeated calls, and the
// call that clears the remaining entitlement (within the cent tolerance)
// flips the order's payment status to refunded.
func (s *Service) SettleRefund(ctx context.Context, orderID int64, req RefundRequest) (*RefundResult, error) {
	switch req.Type {
	case PayCash:
	case PayOnline:
		if !req.Method.Online() {
			return nil, ErrInvalidPaymentMethod
		}
	default:
		return nil, ErrInvalidPaymentMethod
	}
	if !req.Amount.IsPositive() {
		return nil, &InvalidLegError{Index: 0, Reason: "refund amount must be positive"}
	}

	var result *RefundResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		// Row lock serializes concurrent refunds against the same order so
		// the entitlement check below cannot be raced past.
		if _, err := tx.OrderForUpdate(ctx, orderID); err != nil {
			return err
		}

		items, err := tx.ItemsByOrder(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "read item ledger")
		}
		refundable := refundableTotal(items)

		already, err := tx.RefundedTotal(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "read refund ledger")
		}

		// The entitlement bound is strict: even one cent over the remaining
		// amount is rejected. Tolerance applies only to completion below.
		remaining := refundable.Sub(already)
		if req.Amount.GreaterThan(remaining) {
			return &RefundExceedsError{Requested: req.Amount, Remaining: remaining}
		}

		var adminID *string
		if req.AdminID != "" {
			adminID = &req.AdminID
		}
		if err := tx.InsertRefund(ctx, &Refund{
			OrderID: orderID,
			Type:    req.Type,
			Method:  req.Method,
			Amount:  req.Amount,
			AdminID: adminID,
		}); err != nil {
			return errors.Wrap(err, "insert refund")
		}

		left := remaining.Sub(req.Amount)
		completed := withinTolerance(left, zero)
		if completed {
			if err := tx.SetPaymentStatus(ctx, orderID, PaymentRefunded); err != nil {
				return errors.Wrap(err, "flip payment status")
			}
			left = zero
		}

		result = &RefundResult{
			RefundedNow: req.Amount,
			Remaining:   left.Round(2),
			Completed:   completed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
