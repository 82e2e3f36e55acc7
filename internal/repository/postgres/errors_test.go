package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"apicourse/internal/repository"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: sql.ErrNoRows, want: repository.ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, want: repository.ErrDuplicate},
		{name: "foreign key violation", in: &pgconn.PgError{Code: "23503"}, want: repository.ErrNotFound},
		{name: "other pg error", in: &pgconn.PgError{Code: "42P01"}, want: nil},
		{name: "passthrough", in: other, want: other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				if tt.in == nil {
					assert.NoError(t, got)
				} else {
					assert.Equal(t, tt.in, got)
				}
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestAffected(t *testing.T) {
	assert.NoError(t, affected(sqlmock.NewResult(0, 1)))
	assert.ErrorIs(t, affected(sqlmock.NewResult(0, 0)), repository.ErrNotFound)
	assert.Error(t, affected(sqlmock.NewErrorResult(errors.New("driver"))))
}
