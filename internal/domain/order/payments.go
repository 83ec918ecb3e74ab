package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Leg is one payment leg supplied by a client for an order top-up, typically
// after an exchange leaves the customer owing more.
type Leg struct {
	Type   PaymentType
	Method PaymentMethod
	Amount decimal.Decimal
}

// RecordPayments validates the given legs, requires their sum to match
// expected within the cent tolerance, and appends them to the order's payment
// ledger all-or-nothing. Existing legs are never touched: the ledger is
// cumulative and supports full audit reconstruction of how an order was
// funded.
func (s *Service) RecordPayments(ctx context.Context, orderID int64, legs []Leg, expected decimal.Decimal) (decimal.Decimal, error) {
	if len(legs) == 0 {
		return zero, ErrEmptyItems
	}

	sum := zero
	for i, leg := range legs {
		switch leg.Type {
		case PayCash:
		case PayOnline:
			if !leg.Method.Online() {
				return zero, &InvalidLegError{Index: i, Reason: "invalid online payment method"}
			}
		default:
			return zero, &InvalidLegError{Index: i, Reason: "type must be cash or online"}
		}
		if !leg.Amount.IsPositive() {
			return zero, &InvalidLegError{Index: i, Reason: "amount must be positive"}
		}
		sum = sum.Add(leg.Amount)
	}

	if !withinTolerance(sum, expected) {
		return zero, &PaymentMismatchError{Expected: expected, Got: sum}
	}

	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.OrderForUpdate(ctx, orderID); err != nil {
			return err
		}
		for i := range legs {
			if err := tx.InsertPayment(ctx, &Payment{
				OrderID: orderID,
				Type:    legs[i].Type,
				Method:  legs[i].Method,
				Kind:    KindCharge,
				Amount:  legs[i].Amount,
			}); err != nil {
				return errors.Wrapf(err, "insert payment leg %d", i)
			}
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	return sum.Round(2), nil
}
