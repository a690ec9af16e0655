package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

const uniqueViolation = "23505"

// MapError translates driver errors into the shared error taxonomy.
// what names the entity for conflict messages.
func MapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.ConflictError(what)
	}
	return fmt.Errorf("db: %s: %w", what, err)
}
