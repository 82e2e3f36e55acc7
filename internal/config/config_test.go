package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("LESSONS", "intro, methods,,")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, []string{"intro", "methods"}, cfg.Lessons)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.Equal(t, time.Minute, cfg.RateLimit.Period())
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		host, port, want string
	}{
		{"", "8080", ":8080"},
		{"127.0.0.1", "9000", "127.0.0.1:9000"},
		{"::1", "8080", "[::1]:8080"},
	}
	for _, tt := range tests {
		cfg := &AppConfig{Host: tt.host, Port: tt.port}
		assert.Equal(t, tt.want, cfg.ListenAddr())
	}

	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "8181")
	assert.Equal(t, "0.0.0.0:8181", Load().ListenAddr())
}

func TestLocation(t *testing.T) {
	cfg := &AppConfig{Timezone: "UTC"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "Nowhere/Invalid"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestSanitized(t *testing.T) {
	cfg := &AppConfig{
		AppName:  "apicourse",
		Database: DatabaseConfig{Host: "db", Password: "secret"},
		MinIO:    MinIOConfig{SecretKey: "minio-secret", Bucket: "files"},
		Auth:     AuthConfig{Secret: "jwt-secret"},
		Redis:    RedisConfig{Addr: "localhost:6379", Password: "redis-secret"},
	}

	out := cfg.Sanitized()

	assert.Equal(t, "apicourse", out["app_name"])
	assert.Equal(t, true, out["redis_enabled"])
	for _, secret := range []string{"secret", "minio-secret", "jwt-secret", "redis-secret"} {
		assert.NotContains(t, flatten(out), secret)
	}
}

func flatten(m map[string]any) []any {
	var out []any
	for _, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out = append(out, flatten(nested)...)
			continue
		}
		out = append(out, v)
	}
	return out
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvList(t *testing.T) {
	key := "TEST_LIST_VAR"

	t.Setenv(key, "a, b ,c")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList(key, nil))

	t.Setenv(key, " , ")
	assert.Equal(t, []string{"x"}, getEnvList(key, []string{"x"}))

	os.Unsetenv(key)
	assert.Nil(t, getEnvList(key, nil))
}
