package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evostore/storefront-api/internal/domain/sales"
)

const listSalesPersonsSQL = `SELECT id, name, commission FROM sales_persons ORDER BY name, id`

var _ sales.Repository = (*SalesRepository)(nil)

// SalesRepository implements sales.Repository backed by PostgreSQL.
type SalesRepository struct {
	pool *pgxpool.Pool
}

// NewSalesRepository returns a SalesRepository that uses the given pool.
func NewSalesRepository(pool *pgxpool.Pool) *SalesRepository {
	return &SalesRepository{pool: pool}
}

// GetByID returns a single salesperson. Returns sales.ErrNotFound when the
// salesperson does not exist.
func (r *SalesRepository) GetByID(ctx context.Context, id int64) (*sales.Person, error) {
	var p sales.Person
	err := r.pool.QueryRow(ctx, salesPersonByIDSQL, id).Scan(&p.ID, &p.Name, &p.Commission)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sales.ErrNotFound
		}
		return nil, fmt.Errorf("getting salesperson %d: %w", id, err)
	}
	return &p, nil
}

// List returns all salespersons ordered by name.
func (r *SalesRepository) List(ctx context.Context) ([]sales.Person, error) {
	rows, err := r.pool.Query(ctx, listSalesPersonsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing salespersons: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (sales.Person, error) {
		var p sales.Person
		err := row.Scan(&p.ID, &p.Name, &p.Commission)
		return p, err
	})
}
