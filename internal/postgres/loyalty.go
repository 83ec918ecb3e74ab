package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evostore/storefront-api/internal/domain/loyalty"
)

var _ loyalty.Repository = (*LoyaltyRepository)(nil)

// LoyaltyRepository implements loyalty.Repository backed by PostgreSQL.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// FindByBarcode looks up a loyalty card by its barcode. Returns
// loyalty.ErrNotFound when no such card exists.
func (r *LoyaltyRepository) FindByBarcode(ctx context.Context, barcode string) (*loyalty.Card, error) {
	var card loyalty.Card
	err := r.pool.QueryRow(ctx, loyaltyByBarcodeSQL, barcode).
		Scan(&card.ID, &card.Barcode, &card.Discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loyalty.ErrNotFound
		}
		return nil, fmt.Errorf("getting loyalty card %q: %w", barcode, err)
	}
	return &card, nil
}
