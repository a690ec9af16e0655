package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil, "role"))
	assert.ErrorIs(t, MapError(pgx.ErrNoRows, "role"), shared.ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "roles_name_key"}
	err := MapError(dup, "role")
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, "role already exists: conflict", err.Error())

	other := errors.New("connection reset")
	mapped := MapError(other, "role")
	assert.ErrorIs(t, mapped, other)
	assert.NotErrorIs(t, mapped, shared.ErrConflict)
}

func TestNewRejectsMalformedDSN(t *testing.T) {
	_, err := New(context.Background(), "postgres://%zz")
	assert.ErrorContains(t, err, "db: parse dsn")
}
