package database

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/trafficlens/accounts/internal/models"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{"nil passes through", nil, nil},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, models.ErrEmailTaken},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, models.ErrBadRequest},
		{"not null violation", &pgconn.PgError{Code: "23502"}, models.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapPostgresError(tt.input))
		})
	}
}

func TestMapPostgresError_UnknownErrorUntouched(t *testing.T) {
	err := errors.New("connection refused")
	assert.Equal(t, err, MapPostgresError(err))
}
