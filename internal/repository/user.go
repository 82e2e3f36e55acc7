package repository

import (
	"context"
	"time"

	"apicourse/internal/model"
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.User], error)
	// Update overwrites every mutable column of the row identified by u.ID.
	Update(ctx context.Context, u *model.User) (*model.User, error)
	// Delete removes the user and, through cascades, everything they own.
	Delete(ctx context.Context, id int64) error
	// Search matches q against email and full name, case-insensitively.
	Search(ctx context.Context, q string, limit int) ([]model.User, error)
}

// APIKeyRepository persists hashed API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, k *model.APIKey) (*model.APIKey, error)
	FindByHash(ctx context.Context, hash string) (*model.APIKey, error)
	ListByUser(ctx context.Context, userID int64) ([]model.APIKey, error)
	// Delete removes a key owned by userID; ErrNotFound if there is none.
	Delete(ctx context.Context, id, userID int64) error
	Touch(ctx context.Context, id int64, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
