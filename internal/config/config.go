package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds cache settings. An empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds token signing and lifetime settings.
type AuthConfig struct {
	Secret         string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	SeedDemoUsers  bool
}

// HealthConfig holds settings for the optional upstream dependency probe.
type HealthConfig struct {
	ExternalURL        string
	ExternalTimeoutSec int
}

// RateLimitConfig holds the per-client request budget.
type RateLimitConfig struct {
	Requests  int
	PeriodSec int
}

// TasksConfig holds background task pool settings.
type TasksConfig struct {
	Workers         int
	QueueSize       int
	CleanupSchedule string
	StepDelayMs     int
	RetentionHours  int
}

// UploadConfig holds file upload limits.
type UploadConfig struct {
	MaxFileSize int64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppName      string
	Version      string
	Environment  string
	Debug        bool
	Host         string
	Port         string
	LogLevel     string
	Timezone     string
	CORSOrigins  []string
	TrustedHosts []string
	Lessons      []string

	Database  DatabaseConfig
	MinIO     MinIOConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Health    HealthConfig
	RateLimit RateLimitConfig
	Tasks     TasksConfig
	Upload    UploadConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppName:      getEnv("APP_NAME", "apicourse"),
		Version:      getEnv("APP_VERSION", "1.0.0"),
		Environment:  getEnv("APP_ENV", "development"),
		Debug:        getEnvBool("APP_DEBUG", false),
		Host:         getEnv("HOST", ""),
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Timezone:     getEnv("APP_TIMEZONE", "UTC"),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),
		TrustedHosts: getEnvList("TRUSTED_HOSTS", nil),
		Lessons:      getEnvList("LESSONS", nil),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Secret:         getEnv("JWT_SECRET", "change-me-in-production"),
			AccessTTLMin:   getEnvInt("JWT_ACCESS_TTL_MIN", 30),
			RefreshTTLDays: getEnvInt("JWT_REFRESH_TTL_DAYS", 7),
			BcryptCost:     getEnvInt("BCRYPT_COST", 10),
			SeedDemoUsers:  getEnvBool("SEED_DEMO_USERS", true),
		},
		Health: HealthConfig{
			ExternalURL:        getEnv("HEALTH_EXTERNAL_URL", ""),
			ExternalTimeoutSec: getEnvInt("HEALTH_EXTERNAL_TIMEOUT_SEC", 3),
		},
		RateLimit: RateLimitConfig{
			Requests:  getEnvInt("RATE_LIMIT_REQUESTS", 100),
			PeriodSec: getEnvInt("RATE_LIMIT_PERIOD_SEC", 60),
		},
		Tasks: TasksConfig{
			Workers:         getEnvInt("TASK_WORKERS", 4),
			QueueSize:       getEnvInt("TASK_QUEUE_SIZE", 64),
			CleanupSchedule: getEnv("TASK_CLEANUP_SCHEDULE", "@every 1h"),
			StepDelayMs:     getEnvInt("TASK_STEP_DELAY_MS", 500),
			RetentionHours:  getEnvInt("TASK_RETENTION_HOURS", 24),
		},
		Upload: UploadConfig{
			MaxFileSize: int64(getEnvInt("UPLOAD_MAX_FILE_SIZE", 10<<20)),
		},
	}
}

// ListenAddr is the address the HTTP server binds. An empty Host listens on
// every interface.
func (c *AppConfig) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AccessTTL is the lifetime of access tokens.
func (c AuthConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMin) * time.Minute
}

// RefreshTTL is the lifetime of refresh tokens.
func (c AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLDays) * 24 * time.Hour
}

// Period is the rate limit window.
func (c RateLimitConfig) Period() time.Duration {
	return time.Duration(c.PeriodSec) * time.Second
}

// Sanitized returns the configuration subset that is safe to expose over HTTP.
func (c *AppConfig) Sanitized() map[string]any {
	return map[string]any{
		"app_name":     c.AppName,
		"version":      c.Version,
		"environment":  c.Environment,
		"debug":        c.Debug,
		"log_level":    c.LogLevel,
		"timezone":     c.Timezone,
		"cors_origins": c.CORSOrigins,
		"database": map[string]any{
			"host":           c.Database.Host,
			"port":           c.Database.Port,
			"name":           c.Database.Name,
			"max_open_conns": c.Database.MaxOpenConns,
		},
		"redis_enabled": c.Redis.Addr != "",
		"storage": map[string]any{
			"endpoint": c.MinIO.Endpoint,
			"bucket":   c.MinIO.Bucket,
		},
		"rate_limit": map[string]any{
			"requests":   c.RateLimit.Requests,
			"period_sec": c.RateLimit.PeriodSec,
		},
		"tasks": map[string]any{
			"workers":          c.Tasks.Workers,
			"cleanup_schedule": c.Tasks.CleanupSchedule,
		},
		"access_token_ttl_min": c.Auth.AccessTTLMin,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
