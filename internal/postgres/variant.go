package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evostore/storefront-api/internal/domain/catalog"
)

var _ catalog.Repository = (*VariantRepository)(nil)

// VariantRepository implements catalog.Repository backed by PostgreSQL. It
// serves the read-only lookup endpoints; stock mutation goes through the
// order transaction store.
type VariantRepository struct {
	pool *pgxpool.Pool
}

// NewVariantRepository returns a VariantRepository that uses the given pool.
func NewVariantRepository(pool *pgxpool.Pool) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// GetByID returns a single variant by its identifier.
func (r *VariantRepository) GetByID(ctx context.Context, id int64) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, variantByIDSQL, id)
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

// GetByBarcode returns the variant carrying the given barcode. Returns
// catalog.ErrNotFound when no such barcode exists.
func (r *VariantRepository) GetByBarcode(ctx context.Context, barcode string) (*catalog.Variant, error) {
	rows, err := r.pool.Query(ctx, variantByBarcodeSQL, barcode)
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
