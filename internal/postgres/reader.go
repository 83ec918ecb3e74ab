package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evostore/storefront-api/internal/domain/order"
)

const (
	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	returnsCountSQL = `SELECT COUNT(*) FROM order_items oi
		WHERE oi.quantity < 0 AND oi.created_at >= $1 AND oi.created_at < $2`
	returnsSQL = `SELECT oi.id, oi.order_id, oi.variant_id, oi.product_name,
			oi.category, oi.color, oi.size,
			oi.unit_price, oi.discounted_price, oi.tax, oi.quantity, oi.created_at,
			o.user_id
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.quantity < 0 AND oi.created_at >= $1 AND oi.created_at < $2
		ORDER BY oi.created_at DESC, oi.id DESC
		LIMIT $3 OFFSET $4`
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var _ order.Reader = (*OrderReader)(nil)

// OrderReader serves the read-only order endpoints outside of transactions.
type OrderReader struct {
	pool *pgxpool.Pool
}

// NewOrderReader returns an OrderReader that uses the given pool.
func NewOrderReader(pool *pgxpool.Pool) *OrderReader {
	return &OrderReader{pool: pool}
}

// Get returns the order with its full item, payment, and refund ledgers.
// Soft-cancelled orders are still readable.
func (r *OrderReader) Get(ctx context.Context, orderID int64) (*order.Detail, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}

	detail := &order.Detail{Order: o}

	if rows, err = r.pool.Query(ctx, itemsByOrderSQL, orderID); err != nil {
		return nil, fmt.Errorf("reading items for order %d: %w", orderID, err)
	}
	if detail.Items, err = pgx.CollectRows(rows, scanItem); err != nil {
		return nil, fmt.Errorf("reading items for order %d: %w", orderID, err)
	}

	if rows, err = r.pool.Query(ctx, paymentsByOrderSQL, orderID); err != nil {
		return nil, fmt.Errorf("reading payments for order %d: %w", orderID, err)
	}
	if detail.Payments, err = pgx.CollectRows(rows, scanPayment); err != nil {
		return nil, fmt.Errorf("reading payments for order %d: %w", orderID, err)
	}

	if rows, err = r.pool.Query(ctx, refundsByOrderSQL, orderID); err != nil {
		return nil, fmt.Errorf("reading refunds for order %d: %w", orderID, err)
	}
	if detail.Refunds, err = pgx.CollectRows(rows, scanRefund); err != nil {
		return nil, fmt.Errorf("reading refunds for order %d: %w", orderID, err)
	}

	return detail, nil
}

// List returns one page of orders matching the filter plus the total match
// count. Soft-cancelled orders are hidden unless the filter asks for the
// cancelled status explicitly.
func (r *OrderReader) List(ctx context.Context, f order.Filter) ([]order.Order, int64, error) {
	where, args := buildOrderFilter(f)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	limit, offset := pageBounds(f.Page, f.Limit)
	listSQL := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, listSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return list, total, nil
}

// Returns reports the negative-quantity ledger rows in [from, to) with their
// owning order and user, newest first.
func (r *OrderReader) Returns(ctx context.Context, from, to time.Time, page, limit int) ([]order.ReturnRow, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, returnsCountSQL, from, to).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting returns: %w", err)
	}

	size, offset := pageBounds(page, limit)
	rows, err := r.pool.Query(ctx, returnsSQL, from, to, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing returns: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanReturnRow)
	if err != nil {
		return nil, 0, fmt.Errorf("listing returns: %w", err)
	}
	return list, total, nil
}

func scanReturnRow(row pgx.CollectableRow) (order.ReturnRow, error) {
	var (
		rr  order.ReturnRow
		qty int32
	)
	err := row.Scan(
		&rr.Item.ID, &rr.Item.OrderID, &rr.Item.VariantID, &rr.Item.ProductName,
		&rr.Item.Category, &rr.Item.Color, &rr.Item.Size,
		&rr.Item.UnitPrice, &rr.Item.DiscountedPrice, &rr.Item.Tax, &qty, &rr.Item.CreatedAt,
		&rr.UserID,
	)
	rr.Item.Quantity = int(qty)
	rr.OrderID = rr.Item.OrderID
	return rr, err
}

// buildOrderFilter renders the filter as a WHERE clause with positional args.
func buildOrderFilter(f order.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != order.StatusCancelled {
		conds = append(conds, "is_deleted = FALSE")
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	if f.Status != "" {
		add("order_status = $%d", string(f.Status))
	}
	if f.MinAmount != nil {
		add("amount >= $%d", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		add("amount <= $%d", *f.MaxAmount)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pageBounds(page, limit int) (size, offset int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
