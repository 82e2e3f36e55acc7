package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const (
	// APIKeyPrefix marks bearer credentials that are API keys rather than JWTs.
	APIKeyPrefix = "api_"
	apiKeyBytes  = 32
	// displayLen is how much of a key is kept in clear for listings.
	displayLen = 12
)

// GeneratedKey is a freshly minted API key. Plain is shown to the owner once.
type GeneratedKey struct {
	Plain  string
	Prefix string
	Hash   string
}

func GenerateAPIKey() (*GeneratedKey, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	plain := APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	return &GeneratedKey{
		Plain:  plain,
		Prefix: plain[:displayLen],
		Hash:   HashAPIKey(plain),
	}, nil
}

// HashAPIKey returns the hex sha256 digest stored in place of the key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func IsAPIKey(credential string) bool {
	return strings.HasPrefix(credential, APIKeyPrefix)
}

// MaskKey renders a stored prefix for display.
func MaskKey(prefix string) string {
	return prefix + "..."
}
