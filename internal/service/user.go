package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"apicourse/internal/auth"
	"apicourse/internal/model"
	"apicourse/internal/repository"
)

// CreatedAPIKey is returned once, when a key is minted. Key is never retrievable again.
type CreatedAPIKey struct {
	model.APIKey
	Key string `json:"key"`
}

// UserService covers registration, login, account CRUD and API keys.
type UserService interface {
	Register(ctx context.Context, in model.UserCreate) (*model.User, error)
	// Login checks credentials and issues tokens limited to the requested scopes the user holds.
	Login(ctx context.Context, email, password string, scopes []string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, claims *auth.Claims) error

	Get(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, skip, limit int) (*model.Page[model.User], error)
	Update(ctx context.Context, id int64, in model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, q string, limit int) ([]model.User, error)

	CreateAPIKey(ctx context.Context, userID int64, in model.APIKeyCreate) (*CreatedAPIKey, error)
	ListAPIKeys(ctx context.Context, userID int64) ([]model.APIKey, error)
	RevokeAPIKey(ctx context.Context, userID, keyID int64) error
	PurgeExpiredAPIKeys(ctx context.Context) (int64, error)

	// SeedDemoUsers creates the demo accounts that do not exist yet.
	SeedDemoUsers(ctx context.Context) error

	auth.Authenticator
}

type userService struct {
	users  repository.UserRepository
	keys   repository.APIKeyRepository
	hasher *auth.Hasher
	tokens *auth.TokenManager
	log    zerolog.Logger
	now    func() time.Time
}

func NewUserService(
	users repository.UserRepository,
	keys repository.APIKeyRepository,
	hasher *auth.Hasher,
	tokens *auth.TokenManager,
	log zerolog.Logger,
) UserService {
	return &userService{
		users:  users,
		keys:   keys,
		hasher: hasher,
		tokens: tokens,
		log:    log.With().Str("component", "users").Logger(),
		now:    time.Now,
	}
}

var (
	defaultRoles  = []string{"user"}
	defaultScopes = []string{"read", "write"}
)

func (s *userService) Register(ctx context.Context, in model.UserCreate) (*model.User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.Create(ctx, &model.User{
		Email:          email,
		FullName:       strings.TrimSpace(in.FullName),
		HashedPassword: hash,
		IsActive:       true,
		Roles:          defaultRoles,
		Scopes:         defaultScopes,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("event", "user_registered").Int64("user_id", u.ID).Send()
	return u, nil
}

func identity(u *model.User, scopes []string) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Roles: u.Roles, Scopes: scopes}
}

func (s *userService) Login(ctx context.Context, email, password string, scopes []string) (*auth.TokenPair, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(u.HashedPassword, password) {
		return nil, auth.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	pair, err := s.tokens.IssuePair(identity(u, auth.IntersectScopes(scopes, u.Scopes)))
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("event", "user_login").Int64("user_id", u.ID).Send()
	return pair, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Parse(ctx, refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, err
	}
	uid, _ := claims.UserID()
	u, err := s.active(ctx, uid)
	if err != nil {
		return nil, err
	}
	return s.tokens.IssuePair(identity(u, u.Scopes))
}

func (s *userService) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.tokens.Revoke(ctx, claims)
}

// active loads a user for an authenticated request.
func (s *userService) active(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	return u, nil
}

// Authenticate accepts either an access token or an API key.
func (s *userService) Authenticate(ctx context.Context, credential string) (*auth.Principal, error) {
	if auth.IsAPIKey(credential) {
		return s.authenticateKey(ctx, credential)
	}
	p, err := s.tokens.Authenticate(ctx, credential)
	if err != nil {
		return nil, err
	}
	u, err := s.active(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	p.Roles = u.Roles
	return p, nil
}

func (s *userService) authenticateKey(ctx context.Context, key string) (*auth.Principal, error) {
	k, err := s.keys.FindByHash(ctx, auth.HashAPIKey(key))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	now := s.now()
	if k.Expired(now) {
		return nil, auth.ErrExpiredToken
	}
	u, err := s.active(ctx, k.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.keys.Touch(ctx, k.ID, now.UTC()); err != nil {
		s.log.Warn().Err(err).Int64("api_key_id", k.ID).Msg("failed to record api key use")
	}
	return &auth.Principal{
		UserID: u.ID,
		Email:  u.Email,
		Roles:  u.Roles,
		Scopes: auth.IntersectScopes(k.Scopes, u.Scopes),
		Method: auth.MethodAPIKey,
	}, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *userService) List(ctx context.Context, skip, limit int) (*model.Page[model.User], error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	res, err := s.users.List(ctx, repository.PageQuery{Limit: limit, Offset: skip})
	if err != nil {
		return nil, err
	}
	return &model.Page[model.User]{Items: res.Items, Total: res.Total, Skip: skip, Limit: limit}, nil
}

func (s *userService) Update(ctx context.Context, id int64, in model.UserUpdate) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil && !strings.EqualFold(*in.Email, u.Email) {
		if _, err := s.users.FindByEmail(ctx, *in.Email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		u.Email = *in.Email
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.HashedPassword = hash
	}
	out, err := s.users.Update(ctx, u)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrEmailTaken
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrUserNotFound
	}
	return out, err
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	err := s.users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err == nil {
		s.log.Info().Str("event", "user_deleted").Int64("user_id", id).Send()
	}
	return err
}

func (s *userService) Search(ctx context.Context, q string, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.users.Search(ctx, strings.TrimSpace(q), limit)
}

func (s *userService) CreateAPIKey(ctx context.Context, userID int64, in model.APIKeyCreate) (*CreatedAPIKey, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	gen, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	k := &model.APIKey{
		UserID:    userID,
		Name:      in.Name,
		KeyHash:   gen.Hash,
		KeyPrefix: gen.Prefix,
		Scopes:    auth.IntersectScopes(in.Scopes, u.Scopes),
	}
	if in.ExpiresDays != nil {
		exp := s.now().UTC().Add(time.Duration(*in.ExpiresDays) * 24 * time.Hour)
		k.ExpiresAt = &exp
	}
	stored, err := s.keys.Create(ctx, k)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("event", "api_key_created").Int64("user_id", userID).Int64("api_key_id", stored.ID).Send()
	return &CreatedAPIKey{APIKey: *stored, Key: gen.Plain}, nil
}

func (s *userService) ListAPIKeys(ctx context.Context, userID int64) ([]model.APIKey, error) {
	return s.keys.ListByUser(ctx, userID)
}

func (s *userService) RevokeAPIKey(ctx context.Context, userID, keyID int64) error {
	err := s.keys.Delete(ctx, keyID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAPIKeyNotFound
	}
	return err
}

func (s *userService) PurgeExpiredAPIKeys(ctx context.Context) (int64, error) {
	return s.keys.DeleteExpired(ctx, s.now().UTC())
}

type demoUser struct {
	email, name, password string
	superuser             bool
	roles, scopes         []string
}

var demoUsers = []demoUser{
	{"admin@example.com", "Admin User", "admin123", true, []string{"admin", "user"}, []string{"read", "write", "admin"}},
	{"user@example.com", "Regular User", "user123", false, []string{"user"}, []string{"read", "write"}},
}

func (s *userService) SeedDemoUsers(ctx context.Context) error {
	for _, d := range demoUsers {
		_, err := s.users.FindByEmail(ctx, d.email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		hash, err := s.hasher.Hash(d.password)
		if err != nil {
			return err
		}
		_, err = s.users.Create(ctx, &model.User{
			Email:          d.email,
			FullName:       d.name,
			HashedPassword: hash,
			IsActive:       true,
			IsSuperuser:    d.superuser,
			Roles:          d.roles,
			Scopes:         d.scopes,
		})
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("seed %s: %w", d.email, err)
		}
		s.log.Info().Str("event", "demo_user_seeded").Str("email", d.email).Send()
	}
	return nil
}
