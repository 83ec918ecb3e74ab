package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/evostore/storefront-api/internal/domain/order"
)

var (
	errInvalidAmountParam = errors.New("invalid amount parameter")
	errInvalidDateParam   = errors.New("invalid date parameter, want YYYY-MM-DD or RFC 3339")
)

// parseDate accepts a calendar date or a full RFC 3339 timestamp. dateOnly
// tells the caller whether an end bound should be widened to cover the day.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return t, false, errInvalidDateParam
}

type orderOut struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	AddressID     *int64          `json:"addressId,omitempty"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentStatus string          `json:"paymentStatus"`
	OrderStatus   string          `json:"orderStatus"`
	Amount        decimal.Decimal `json:"amount"`
	Tax           decimal.Decimal `json:"tax"`
	PromoDiscount decimal.Decimal `json:"promoDiscount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type itemOut struct {
	ID              int64           `json:"id"`
	VariantID       int64           `json:"variantId"`
	ProductName     string          `json:"productName"`
	Category        string          `json:"category"`
	Color           string          `json:"color"`
	Size            string          `json:"size"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	Tax             decimal.Decimal `json:"tax"`
	Quantity        int             `json:"quantity"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type paymentOut struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Method    string          `json:"method,omitempty"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

type refundDetailOut struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Method    string          `json:"method,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

type detailOut struct {
	Order    orderOut          `json:"order"`
	Items    []itemOut         `json:"items"`
	Payments []paymentOut      `json:"payments"`
	Refunds  []refundDetailOut `json:"refunds"`
}

func toOrderOut(o *order.Order) orderOut {
	return orderOut{
		ID:            o.ID,
		UserID:        o.UserID,
		AddressID:     o.AddressID,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		OrderStatus:   string(o.Status),
		Amount:        o.Amount,
		Tax:           o.Tax,
		PromoDiscount: o.PromoDiscount,
		CreatedAt:     o.CreatedAt,
	}
}

func toItemOut(it *order.Item) itemOut {
	return itemOut{
		ID:              it.ID,
		VariantID:       it.VariantID,
		ProductName:     it.ProductName,
		Category:        it.Category,
		Color:           it.Color,
		Size:            it.Size,
		UnitPrice:       it.UnitPrice,
		DiscountedPrice: it.DiscountedPrice,
		Tax:             it.Tax,
		Quantity:        it.Quantity,
		CreatedAt:       it.CreatedAt,
	}
}

func toDetailOut(d *order.Detail) detailOut {
	out := detailOut{
		Order:    toOrderOut(&d.Order),
		Items:    make([]itemOut, len(d.Items)),
		Payments: make([]paymentOut, len(d.Payments)),
		Refunds:  make([]refundDetailOut, len(d.Refunds)),
	}
	for i := range d.Items {
		out.Items[i] = toItemOut(&d.Items[i])
	}
	for i, p := range d.Payments {
		out.Payments[i] = paymentOut{
			ID:        p.ID,
			Type:      string(p.Type),
			Method:    string(p.Method),
			Kind:      string(p.Kind),
			Amount:    p.Amount,
			CreatedAt: p.CreatedAt,
		}
	}
	for i, rf := range d.Refunds {
		out.Refunds[i] = refundDetailOut{
			ID:        rf.ID,
			Type:      string(rf.Type),
			Method:    string(rf.Method),
			Amount:    rf.Amount,
			CreatedAt: rf.CreatedAt,
		}
	}
	return out
}
