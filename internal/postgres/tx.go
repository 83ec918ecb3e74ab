package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/evostore/storefront-api/internal/domain/catalog"
	"github.com/evostore/storefront-api/internal/domain/loyalty"
	"github.com/evostore/storefront-api/internal/domain/order"
	"github.com/evostore/storefront-api/internal/domain/sales"
)

const (
	addressBelongsToSQL = `SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)`

	// Guest customers are keyed by phone; a later visit with a name fills in a
	// previously empty one.
	ensureCustomerSQL = `INSERT INTO users (name, phone) VALUES ($1, $2)
		ON CONFLICT (phone) DO UPDATE
		SET name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END
		RETURNING id`

	cartItemsSQL = `SELECT variant_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY id`
	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`

	variantColumns = `id, product_name, category, color, size, barcode,
		price, discount, tax, wallet_cost, stock`
	variantByIDSQL      = `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`
	variantByBarcodeSQL = `SELECT ` + variantColumns + ` FROM product_variants WHERE barcode = $1`

	// The compound guard makes the decrement safe under concurrency: when two
	// sales race for the last units, one of them matches zero rows.
	decrementStockSQL = `UPDATE product_variants SET stock = stock - $1
		WHERE id = $2 AND (stock >= $1 OR $3)`
	incrementStockSQL = `UPDATE product_variants SET stock = stock + $1 WHERE id = $2`

	loyaltyByBarcodeSQL = `SELECT id, barcode, discount FROM loyalty_cards WHERE barcode = $1`
	salesPersonByIDSQL  = `SELECT id, name, commission FROM sales_persons WHERE id = $1`
	linkSalesPersonSQL  = `INSERT INTO sales_person_orders (order_id, sales_person_id, commission)
		VALUES ($1, $2, $3)`

	insertOrderSQL = `INSERT INTO orders
		(user_id, address_id, payment_method, payment_status, order_status, promo_discount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	orderColumns = `id, user_id, address_id, payment_method, payment_status, order_status,
		amount, profit, tax, promo_discount, is_deleted, created_at`
	orderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	setOrderTotalsSQL = `UPDATE orders SET amount = $2, profit = $3, tax = $4 WHERE id = $1`
	addOrderTotalsSQL = `UPDATE orders
		SET amount = amount + $2, profit = profit + $3, tax = tax + $4
		WHERE id = $1`
	setPaymentStatusSQL = `UPDATE orders SET payment_status = $2 WHERE id = $1`
	markCancelledSQL    = `UPDATE orders SET order_status = 'cancelled', is_deleted = TRUE WHERE id = $1`

	insertItemSQL = `INSERT INTO order_items
		(order_id, variant_id, product_name, category, color, size,
		 unit_price, discounted_price, tax, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	itemColumns = `id, order_id, variant_id, product_name, category, color, size,
		unit_price, discounted_price, tax, quantity, created_at`
	itemsByOrderSQL = `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

	insertPaymentSQL = `INSERT INTO order_payments (order_id, pay_type, pay_method, kind, amount)
		VALUES ($1, $2, $3, $4, $5)`
	paymentColumns     = `id, order_id, pay_type, pay_method, kind, amount, created_at`
	paymentsByOrderSQL = `SELECT ` + paymentColumns + ` FROM order_payments
		WHERE order_id = $1 ORDER BY id`

	insertRefundSQL = `INSERT INTO order_refunds (order_id, refund_type, method, amount, admin_id)
		VALUES ($1, $2, $3, $4, $5)`
	refundColumns     = `id, order_id, refund_type, method, amount, admin_id, created_at`
	refundsByOrderSQL = `SELECT ` + refundColumns + ` FROM order_refunds
		WHERE order_id = $1 ORDER BY id`
	refundedTotalSQL = `SELECT COALESCE(SUM(amount), 0) FROM order_refunds WHERE order_id = $1`
)

var _ order.Tx = (*orderTx)(nil)

// orderTx scopes the order.Tx persistence surface to one pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) AddressBelongsTo(ctx context.Context, addressID, userID int64) (bool, error) {
	var owned bool
	if err := t.tx.QueryRow(ctx, addressBelongsToSQL, addressID, userID).Scan(&owned); err != nil {
		return false, fmt.Errorf("checking address %d ownership: %w", addressID, err)
	}
	return owned, nil
}

func (t *orderTx) EnsureCustomer(ctx context.Context, name, phone string) (int64, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, ensureCustomerSQL, name, phone).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensuring customer: %w", err)
	}
	return id, nil
}

func (t *orderTx) CartItems(ctx context.Context, userID int64) ([]order.CartItem, error) {
	rows, err := t.tx.Query(ctx, cartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("reading cart for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.CartItem, error) {
		var (
			item order.CartItem
			qty  int32
		)
		err := row.Scan(&item.VariantID, &qty)
		item.Quantity = int(qty)
		return item, err
	})
}

func (t *orderTx) ClearCart(ctx context.Context, userID int64) error {
	if _, err := t.tx.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return nil
}

func (t *orderTx) VariantByID(ctx context.Context, id int64) (*catalog.Variant, error) {
	rows, err := t.tx.Query(ctx, variantByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %d: %w", id, err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant %d: %w", id, err)
	}
	return &v, nil
}

func (t *orderTx) VariantByBarcode(ctx context.Context, barcode string) (*catalog.Variant, error) {
	rows, err := t.tx.Query(ctx, variantByBarcodeSQL, barcode)
	if err != nil {
		return nil, fmt.Errorf("getting variant by barcode %q: %w", barcode, err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting variant by barcode %q: %w", barcode, err)
	}
	return &v, nil
}

func (t *orderTx) DecrementStock(ctx context.Context, variantID int64, qty int, enforce bool) (bool, error) {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, qty, variantID, !enforce)
	if err != nil {
		return false, fmt.Errorf("decrementing stock for variant %d: %w", variantID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *orderTx) IncrementStock(ctx context.Context, variantID int64, qty int) error {
	if _, err := t.tx.Exec(ctx, incrementStockSQL, qty, variantID); err != nil {
		return fmt.Errorf("incrementing stock for variant %d: %w", variantID, err)
	}
	return nil
}

func (t *orderTx) LoyaltyByBarcode(ctx context.Context, barcode string) (*loyalty.Card, error) {
	var card loyalty.Card
	err := t.tx.QueryRow(ctx, loyaltyByBarcodeSQL, barcode).
		Scan(&card.ID, &card.Barcode, &card.Discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loyalty.ErrNotFound
		}
		return nil, fmt.Errorf("getting loyalty card %q: %w", barcode, err)
	}
	return &card, nil
}

func (t *orderTx) SalesPersonByID(ctx context.Context, id int64) (*sales.Person, error) {
	var p sales.Person
	err := t.tx.QueryRow(ctx, salesPersonByIDSQL, id).
		Scan(&p.ID, &p.Name, &p.Commission)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sales.ErrNotFound
		}
		return nil, fmt.Errorf("getting salesperson %d: %w", id, err)
	}
	return &p, nil
}

func (t *orderTx) LinkSalesPerson(ctx context.Context, orderID, personID int64, commission decimal.Decimal) error {
	if _, err := t.tx.Exec(ctx, linkSalesPersonSQL, orderID, personID, commission); err != nil {
		return fmt.Errorf("linking salesperson %d to order %d: %w", personID, orderID, err)
	}
	return nil
}

func (t *orderTx) InsertOrder(ctx context.Context, o *order.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.UserID, o.AddressID, o.PaymentMethod, o.PaymentStatus, o.Status, o.PromoDiscount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}
	return id, nil
}

func (t *orderTx) OrderForUpdate(ctx context.Context, orderID int64) (*order.Order, error) {
	rows, err := t.tx.Query(ctx, orderForUpdateSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("locking order %d: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %d: %w", orderID, err)
	}
	return &o, nil
}

func (t *orderTx) SetOrderTotals(ctx context.Context, orderID int64, amount, profit, tax decimal.Decimal) error {
	if _, err := t.tx.Exec(ctx, setOrderTotalsSQL, orderID, amount, profit, tax); err != nil {
		return fmt.Errorf("writing totals for order %d: %w", orderID, err)
	}
	return nil
}

func (t *orderTx) AddOrderTotals(ctx context.Context, orderID int64, dAmount, dProfit, dTax decimal.Decimal) error {
	if _, err := t.tx.Exec(ctx, addOrderTotalsSQL, orderID, dAmount, dProfit, dTax); err != nil {
		return fmt.Errorf("adjusting totals for order %d: %w", orderID, err)
	}
	return nil
}

func (t *orderTx) SetPaymentStatus(ctx context.Context, orderID int64, status order.PaymentStatus) error {
	if _, err := t.tx.Exec(ctx, setPaymentStatusSQL, orderID, status); err != nil {
		return fmt.Errorf("setting payment status for order %d: %w", orderID, err)
	}
	return nil
}

func (t *orderTx) MarkCancelled(ctx context.Context, orderID int64) error {
	if _, err := t.tx.Exec(ctx, markCancelledSQL, orderID); err != nil {
		return fmt.Errorf("cancelling order %d: %w", orderID, err)
	}
	return nil
}

func (t *orderTx) InsertItem(ctx context.Context, item *order.Item) error {
	_, err := t.tx.Exec(ctx, insertItemSQL,
		item.OrderID, item.VariantID, item.ProductName, item.Category, item.Color, item.Size,
		item.UnitPrice, item.DiscountedPrice, item.Tax, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("inserting item for order %d: %w", item.OrderID, err)
	}
	return nil
}

func (t *orderTx) ItemsByOrder(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := t.tx.Query(ctx, itemsByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("reading items for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanItem)
}

func (t *orderTx) InsertPayment(ctx context.Context, p *order.Payment) error {
	_, err := t.tx.Exec(ctx, insertPaymentSQL,
		p.OrderID, p.Type, p.Method, p.Kind, p.Amount,
	)
	if err != nil {
		return fmt.Errorf("inserting payment for order %d: %w", p.OrderID, err)
	}
	return nil
}

func (t *orderTx) PaymentsByOrder(ctx context.Context, orderID int64) ([]order.Payment, error) {
	rows, err := t.tx.Query(ctx, paymentsByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("reading payments for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanPayment)
}

func (t *orderTx) InsertRefund(ctx context.Context, r *order.Refund) error {
	_, err := t.tx.Exec(ctx, insertRefundSQL,
		r.OrderID, r.Type, r.Method, r.Amount, r.AdminID,
	)
	if err != nil {
		return fmt.Errorf("inserting refund for order %d: %w", r.OrderID, err)
	}
	return nil
}

func (t *orderTx) RefundedTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := t.tx.QueryRow(ctx, refundedTotalSQL, orderID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("summing refunds for order %d: %w", orderID, err)
	}
	return total, nil
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var (
		v     catalog.Variant
		stock int32
	)
	err := row.Scan(
		&v.ID, &v.ProductName, &v.Category, &v.Color, &v.Size, &v.Barcode,
		&v.Price, &v.Discount, &v.Tax, &v.WalletCost, &stock,
	)
	v.Stock = int(stock)
	return v, err
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		paymentMethod string
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.AddressID, &paymentMethod, &paymentStatus, &status,
		&o.Amount, &o.Profit, &o.Tax, &o.PromoDiscount, &o.IsDeleted, &o.CreatedAt,
	)
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		item order.Item
		qty  int32
	)
	err := row.Scan(
		&item.ID, &item.OrderID, &item.VariantID, &item.ProductName,
		&item.Category, &item.Color, &item.Size,
		&item.UnitPrice, &item.DiscountedPrice, &item.Tax, &qty, &item.CreatedAt,
	)
	item.Quantity = int(qty)
	return item, err
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var (
		p       order.Payment
		payType string
		method  string
		kind    string
	)
	err := row.Scan(&p.ID, &p.OrderID, &payType, &method, &kind, &p.Amount, &p.CreatedAt)
	p.Type = order.PaymentType(payType)
	p.Method = order.PaymentMethod(method)
	p.Kind = order.PaymentKind(kind)
	return p, err
}

func scanRefund(row pgx.CollectableRow) (order.Refund, error) {
	var (
		r          order.Refund
		refundType string
		method     string
	)
	err := row.Scan(&r.ID, &r.OrderID, &refundType, &method, &r.Amount, &r.AdminID, &r.CreatedAt)
	r.Type = order.PaymentType(refundType)
	r.Method = order.PaymentMethod(method)
	return r, err
}
