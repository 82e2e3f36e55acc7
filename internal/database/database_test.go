package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/config"
)

func validConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:               "db",
		Port:               "5432",
		User:               "course",
		Password:           "s3cret",
		Name:               "lessons",
		SSLMode:            "disable",
		MaxOpenConns:       4,
		MaxIdleConns:       2,
		ConnMaxLifetimeSec: 60,
	}
}

func withOpener(t *testing.T, open func(driver, dsn string) (*sql.DB, error)) {
	t.Helper()
	orig := openDB
	openDB = open
	t.Cleanup(func() { openDB = orig })
}

func TestBuildPostgresDSN(t *testing.T) {
	noPassword := validConfig()
	noPassword.Password = ""
	noSSL := validConfig()
	noSSL.SSLMode = ""

	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		want    string
		wantErr string
	}{
		{name: "full", cfg: validConfig(), want: "postgres://course:s3cret@db:5432/lessons?sslmode=disable"},
		{name: "no password", cfg: noPassword, want: "postgres://course@db:5432/lessons?sslmode=disable"},
		{name: "no sslmode", cfg: noSSL, want: "postgres://course:s3cret@db:5432/lessons"},
		{name: "empty", cfg: config.DatabaseConfig{}, wantErr: "database config: missing host, port, user, name"},
		{name: "only name missing", cfg: config.DatabaseConfig{Host: "db", Port: "1", User: "u"}, wantErr: "missing name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPostgresDSN(tt.cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPostgres(t *testing.T) {
	ctx := context.Background()

	t.Run("pings and applies pool limits", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		var gotDSN string
		withOpener(t, func(_, dsn string) (*sql.DB, error) {
			gotDSN = dsn
			return db, nil
		})
		mock.ExpectPing()

		got, err := NewPostgres(ctx, validConfig())
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.Equal(t, 4, got.Stats().MaxOpenConnections)
		assert.Contains(t, gotDSN, "@db:5432/lessons")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open fails", func(t *testing.T) {
		withOpener(t, func(string, string) (*sql.DB, error) {
			return nil, errors.New("no driver")
		})

		got, err := NewPostgres(ctx, validConfig())
		assert.EqualError(t, err, "open db: no driver")
		assert.Nil(t, got)
	})

	t.Run("ping fails closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		withOpener(t, func(string, string) (*sql.DB, error) { return db, nil })
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()

		got, err := NewPostgres(ctx, validConfig())
		assert.EqualError(t, err, "ping db: connection refused")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad config never opens", func(t *testing.T) {
		withOpener(t, func(string, string) (*sql.DB, error) {
			t.Fatal("opened with an invalid config")
			return nil, nil
		})

		_, err := NewPostgres(ctx, config.DatabaseConfig{Host: "db"})
		assert.ErrorContains(t, err, "missing port, user, name")
	})
}

func TestNewSQLX(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	x := NewSQLX(db)
	assert.Equal(t, DriverName, x.DriverName())
	assert.Equal(t, "SELECT title FROM posts WHERE id = $1", x.Rebind("SELECT title FROM posts WHERE id = ?"))
}
