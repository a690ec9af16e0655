package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/roles"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
)

// Storage is an opened backing store plus its release hook.
type Storage struct {
	Store rbac.Store
	Pool  *pgxpool.Pool
}

// Close releases the connection pool, if any.
func (s *Storage) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// OpenStorage connects the configured storage driver. The postgres driver
// applies the schema before returning.
func OpenStorage(ctx context.Context, cfg *Config) (*Storage, error) {
	if cfg.StorageDriver == StorageMemory {
		return &Storage{Store: rbac.NewMemoryStore()}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Storage{
		Pool: pool,
		Store: rbac.Stores{
			PermissionStore: rbac.NewRepository(pool),
			RoleStore:       roles.NewRepository(pool),
			UserStore:       users.NewRepository(pool),
		},
	}, nil
}

// PasswordHasher hashes the seeded admin password.
type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// SeedParams describes the bootstrap identity.
type SeedParams struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// SeedResult reports what Seed touched.
type SeedResult struct {
	Permissions  int
	Role         rbac.Role
	Admin        rbac.User
	AdminCreated bool
}

// Seed upserts the permission catalog and the Admin role holding all of it,
// then creates the admin user when no user has its email. Running it again
// only re-syncs the Admin role.
func Seed(ctx context.Context, catalog *rbac.Service, store rbac.UserStore, hasher PasswordHasher, params SeedParams, logger *slog.Logger) (SeedResult, error) {
	var result SeedResult
	perms, err := catalog.EnsureCatalog(ctx, shared.PermissionCatalog())
	if err != nil {
		return result, err
	}
	result.Permissions = len(perms)
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	role, err := catalog.EnsureRole(ctx, shared.AdminRoleName, ids)
	if err != nil {
		return result, fmt.Errorf("seed: admin role: %w", err)
	}
	result.Role = role

	email := shared.NormalizeEmail(params.AdminEmail)
	existing, err := store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		result.Admin = existing
		if logger != nil {
			logger.Info("admin user already exists", slog.String("email", email))
		}
		return result, nil
	case !errors.Is(err, shared.ErrNotFound):
		return result, err
	}

	digest, err := hasher.Hash(params.AdminPassword)
	if err != nil {
		return result, fmt.Errorf("seed: hash admin password: %w", err)
	}
	name := params.AdminName
	if name == "" {
		name = shared.AdminRoleName
	}
	admin, err := store.CreateUser(ctx, rbac.User{
		Name:         name,
		Email:        email,
		PasswordHash: digest,
		RoleID:       &role.ID,
	})
	if err != nil {
		return result, fmt.Errorf("seed: create admin: %w", err)
	}
	result.Admin, result.AdminCreated = admin, true
	if logger != nil {
		logger.Info("admin user created", slog.String("email", email))
	}
	return result, nil
}
