package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/cache"
)

func TestHasher(t *testing.T) {
	h := NewHasher(4)

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, h.Verify(hash, "secret123"))
	assert.False(t, h.Verify(hash, "wrong"))
	assert.False(t, h.Verify("not-a-hash", "secret123"))
}

func TestNewHasher_CostOutOfRange(t *testing.T) {
	assert.Equal(t, 10, NewHasher(0).cost)
	assert.Equal(t, 10, NewHasher(99).cost)
}

func TestIntersectScopes(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		granted   []string
		want      []string
	}{
		{"empty request grants all", nil, []string{"read", "write"}, []string{"read", "write"}},
		{"subset", []string{"write"}, []string{"read", "write"}, []string{"write"}},
		{"ungranted dropped", []string{"admin", "read"}, []string{"read"}, []string{"read"}},
		{"duplicates collapse", []string{"read", "read"}, []string{"read"}, []string{"read"}},
		{"none", []string{"admin"}, []string{"read"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IntersectScopes(tt.requested, tt.granted))
		})
	}
}

func TestPrincipal(t *testing.T) {
	p := &Principal{Roles: []string{"admin"}, Scopes: []string{"read"}}
	assert.True(t, p.HasRole("admin"))
	assert.False(t, p.HasRole("user"))
	assert.True(t, p.HasScope("read"))
	assert.False(t, p.HasScope("write"))
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(c *clock, opts ...TokenOption) *TokenManager {
	opts = append(opts, WithClock(c.now))
	return NewTokenManager("test-secret", "apicourse", 30*time.Minute, 7*24*time.Hour, opts...)
}

var alice = Identity{UserID: 42, Email: "alice@example.com", Roles: []string{"user"}, Scopes: []string{"read", "write"}}

func TestTokenManager_IssueAndParse(t *testing.T) {
	c := &clock{t: time.Now()}
	m := newManager(c)
	ctx := context.Background()

	pair, err := m.IssuePair(alice)
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, 1800, pair.ExpiresIn)

	claims, err := m.Parse(ctx, pair.AccessToken, AccessToken)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
	assert.Equal(t, []string{"read", "write"}, claims.Scopes)
	assert.NotEmpty(t, claims.ID)

	_, err = m.Parse(ctx, pair.RefreshToken, RefreshToken)
	assert.NoError(t, err)
}

func TestTokenManager_Rejects(t *testing.T) {
	c := &clock{t: time.Now()}
	m := newManager(c)
	ctx := context.Background()

	access, _, err := m.Issue(alice, AccessToken)
	require.NoError(t, err)

	t.Run("wrong type", func(t *testing.T) {
		_, err := m.Parse(ctx, access, RefreshToken)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewTokenManager("other", "apicourse", time.Minute, time.Hour, WithClock(c.now))
		_, err := other.Parse(ctx, access, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse(ctx, "not.a.token", AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Type: AccessToken})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(ctx, raw, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := &clock{t: c.t.Add(31 * time.Minute)}
		_, err := newManager(later).Parse(ctx, access, AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestTokenManager_Revoke(t *testing.T) {
	c := &clock{t: time.Now()}
	m := newManager(c, WithRevoker(NewCacheRevoker(cache.NewMemory())))
	ctx := context.Background()

	access, claims, err := m.Issue(alice, AccessToken)
	require.NoError(t, err)

	p, err := m.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, MethodJWT, p.Method)
	assert.Equal(t, "alice@example.com", p.Email)

	require.NoError(t, m.Revoke(ctx, claims))
	_, err = m.Authenticate(ctx, access)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestTokenManager_RevokeWithoutRevoker(t *testing.T) {
	m := newManager(&clock{t: time.Now()})
	_, claims, err := m.Issue(alice, AccessToken)
	require.NoError(t, err)
	assert.Error(t, m.Revoke(context.Background(), claims))
}

func TestGenerateAPIKey(t *testing.T) {
	k, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, IsAPIKey(k.Plain))
	assert.Len(t, k.Plain, len(APIKeyPrefix)+43)
	assert.Equal(t, k.Plain[:12], k.Prefix)
	assert.Equal(t, HashAPIKey(k.Plain), k.Hash)
	assert.Len(t, k.Hash, 64)
	assert.Equal(t, k.Prefix+"...", MaskKey(k.Prefix))

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, k.Plain, other.Plain)
	assert.False(t, IsAPIKey("eyJhbGciOi"))
}
