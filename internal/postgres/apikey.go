package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const getAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes FROM api_keys
	WHERE key_hash = $1 AND active = TRUE`

// APIKeyRecord holds the fields returned when looking up an API key by hash.
type APIKeyRecord struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
// Returns an error wrapping pgx.ErrNoRows when no matching key exists.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*APIKeyRecord, error) {
	var rec APIKeyRecord
	err := r.pool.QueryRow(ctx, getAPIKeyByHashSQL, hash).
		Scan(&rec.ID, &rec.KeyHash, &rec.Name, &rec.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("api key not found: %w", err)
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &rec, nil
}
