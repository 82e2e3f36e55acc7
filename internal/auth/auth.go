// Package auth implements password hashing, signed bearer tokens and API keys.
package auth

import (
	"context"
	"errors"
	"slices"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrExpiredToken       = errors.New("token has expired")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrRevokedToken       = errors.New("token has been revoked")
)

// Method names how a principal proved its identity.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID int64    `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	Scopes []string `json:"scopes"`
	Method Method   `json:"auth_method"`
	// Claims is set for token-authenticated principals.
	Claims *Claims `json:"-"`
}

func (p *Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

func (p *Principal) HasScope(scope string) bool {
	return slices.Contains(p.Scopes, scope)
}

// Authenticator resolves a bearer credential into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*Principal, error)
}

// IntersectScopes returns the requested scopes that are also granted, in request order.
// An empty request yields every granted scope.
func IntersectScopes(requested, granted []string) []string {
	if len(requested) == 0 {
		return slices.Clone(granted)
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if slices.Contains(granted, s) && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
