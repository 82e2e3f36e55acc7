package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
// Roles and scopes live in TEXT[] columns, bridged with pq.Array.
type UserPostgres struct {
	db *sql.DB
}

func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

const userColumns = `id, email, full_name, hashed_password, is_active, is_superuser, roles, scopes, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.HashedPassword,
		&u.IsActive,
		&u.IsSuperuser,
		pq.Array(&u.Roles),
		pq.Array(&u.Scopes),
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (email, full_name, hashed_password, is_active, is_superuser, roles, scopes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q,
		u.Email,
		u.FullName,
		u.HashedPassword,
		u.IsActive,
		u.IsSuperuser,
		pq.Array(u.Roles),
		pq.Array(u.Scopes),
	))
}

func (r *UserPostgres) FindByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

func (r *UserPostgres) List(ctx context.Context, page repository.PageQuery) (*repository.PageResult[model.User], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, err
	}

	const q = `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	items, err := r.query(ctx, q, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.User]{Items: items, Total: total}, nil
}

func (r *UserPostgres) Update(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		UPDATE users
		SET email = $2, full_name = $3, hashed_password = $4, is_active = $5,
		    is_superuser = $6, roles = $7, scopes = $8, updated_at = $9
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, q,
		u.ID,
		u.Email,
		u.FullName,
		u.HashedPassword,
		u.IsActive,
		u.IsSuperuser,
		pq.Array(u.Roles),
		pq.Array(u.Scopes),
		time.Now().UTC(),
	))
}

func (r *UserPostgres) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *UserPostgres) Search(ctx context.Context, q string, limit int) ([]model.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT $2`
	return r.query(ctx, query, q, limit)
}

func (r *UserPostgres) query(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}
