package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// APIKeyPostgres is a PostgreSQL implementation of repository.APIKeyRepository.
type APIKeyPostgres struct {
	db *sql.DB
}

func NewAPIKeyPostgres(db *sql.DB) *APIKeyPostgres {
	return &APIKeyPostgres{db: db}
}

var _ repository.APIKeyRepository = (*APIKeyPostgres)(nil)

const apiKeyColumns = `id, user_id, name, key_hash, key_prefix, scopes, created_at, expires_at, last_used_at`

func scanAPIKey(row interface{ Scan(...any) error }) (*model.APIKey, error) {
	var (
		k                 model.APIKey
		expires, lastUsed sql.NullTime
	)
	if err := row.Scan(
		&k.ID,
		&k.UserID,
		&k.Name,
		&k.KeyHash,
		&k.KeyPrefix,
		pq.Array(&k.Scopes),
		&k.CreatedAt,
		&expires,
		&lastUsed,
	); err != nil {
		return nil, translate(err)
	}
	if expires.Valid {
		k.ExpiresAt = &expires.Time
	}
	if lastUsed.Valid {
		k.LastUsedAt = &lastUsed.Time
	}
	return &k, nil
}

func (r *APIKeyPostgres) Create(ctx context.Context, k *model.APIKey) (*model.APIKey, error) {
	const q = `
		INSERT INTO api_keys (user_id, name, key_hash, key_prefix, scopes, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + apiKeyColumns
	return scanAPIKey(r.db.QueryRowContext(ctx, q,
		k.UserID,
		k.Name,
		k.KeyHash,
		k.KeyPrefix,
		pq.Array(k.Scopes),
		k.ExpiresAt,
	))
}

func (r *APIKeyPostgres) FindByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	const q = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`
	return scanAPIKey(r.db.QueryRowContext(ctx, q, hash))
}

func (r *APIKeyPostgres) ListByUser(ctx context.Context, userID int64) ([]model.APIKey, error) {
	const q = `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.APIKey, 0)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *k)
	}
	return items, rows.Err()
}

func (r *APIKeyPostgres) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *APIKeyPostgres) Touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *APIKeyPostgres) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
