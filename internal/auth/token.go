package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType separates short-lived access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims is the JWT payload. Subject holds the user id.
type Claims struct {
	Email  string    `json:"email,omitempty"`
	Roles  []string  `json:"roles,omitempty"`
	Scopes []string  `json:"scopes,omitempty"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the numeric subject.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// Identity is what gets embedded in issued tokens.
type Identity struct {
	UserID int64
	Email  string
	Roles  []string
	Scopes []string
}

// TokenPair is the login response body.
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	Scopes       []string `json:"scopes"`
}

// Revoker records token ids that must no longer be accepted.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoker    Revoker
	now        func() time.Time
}

var _ Authenticator = (*TokenManager)(nil)

type TokenOption func(*TokenManager)

// WithRevoker enables logout support.
func WithRevoker(r Revoker) TokenOption {
	return func(m *TokenManager) { m.revoker = r }
}

// WithClock replaces the time source used for issuing and validating.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// Issue signs a single token of the given type.
func (m *TokenManager) Issue(id Identity, typ TokenType) (string, *Claims, error) {
	ttl := m.accessTTL
	if typ == RefreshToken {
		ttl = m.refreshTTL
	}
	now := m.now()
	claims := &Claims{
		Email:  id.Email,
		Roles:  id.Roles,
		Scopes: id.Scopes,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// IssuePair signs an access token and a refresh token for id.
func (m *TokenManager) IssuePair(id Identity) (*TokenPair, error) {
	access, _, err := m.Issue(id, AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, _, err := m.Issue(id, RefreshToken)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(m.accessTTL.Seconds()),
		Scopes:       id.Scopes,
	}, nil
}

// Parse verifies signature, expiry, type and revocation.
func (m *TokenManager) Parse(ctx context.Context, raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	if m.revoker != nil && claims.ID != "" {
		revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}
	return claims, nil
}

// Revoke blocks claims until they would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, claims *Claims) error {
	if m.revoker == nil {
		return errors.New("token revocation is not configured")
	}
	until := m.now()
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return m.revoker.Revoke(ctx, claims.ID, until)
}

// Authenticate accepts an access token and returns the principal it carries.
func (m *TokenManager) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	claims, err := m.Parse(ctx, raw, AccessToken)
	if err != nil {
		return nil, err
	}
	uid, _ := claims.UserID()
	return &Principal{
		UserID: uid,
		Email:  claims.Email,
		Roles:  claims.Roles,
		Scopes: claims.Scopes,
		Method: MethodJWT,
		Claims: claims,
	}, nil
}
