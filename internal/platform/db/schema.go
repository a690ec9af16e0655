package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reference sets live as arrays on the owning row so a single-row UPDATE
// replaces them atomically. Deleting a permission or role leaves dangling ids
// behind; readers ignore them and the prune job removes them later.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS permissions (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE CHECK (btrim(name) <> ''),
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL UNIQUE CHECK (btrim(name) <> ''),
		permission_ids BIGINT[] NOT NULL DEFAULT '{}',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role_id       BIGINT NULL,
		override_ids  BIGINT[] NOT NULL DEFAULT '{}',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_created_at_idx ON users (created_at DESC)`,
}

// EnsureSchema creates the tables used by the service if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("db: ensure schema: %w", err)
			}
		}
		return nil
	})
}
