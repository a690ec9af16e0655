package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ rbac.UserStore = (*Repository)(nil)

// ListUsers returns all users, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]rbac.User, error) {
	rows, err := r.pool.Query(ctx, listUsers)
	if err != nil {
		return nil, db.MapError(err, "user")
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rbac.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, db.MapError(err, "user")
	}
	return users, nil
}

// GetUser fetches a user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (rbac.User, error) {
	return r.queryOne(ctx, getUser, id)
}

// FindUserByEmail fetches a user by normalized email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (rbac.User, error) {
	return r.queryOne(ctx, getUserByEmail, email)
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user rbac.User) (rbac.User, error) {
	overrides := user.OverrideIDs
	if overrides == nil {
		overrides = []int64{}
	}
	return r.queryOne(ctx, createUser, user.Name, user.Email, user.PasswordHash, user.RoleID, overrides)
}

// UpdateUser applies a partial update in one statement.
func (r *Repository) UpdateUser(ctx context.Context, id int64, update rbac.UserUpdate) (rbac.User, error) {
	return r.queryOne(ctx, updateUser, id, update.Name, update.Email, update.PasswordHash, update.SetRole, update.RoleID)
}

// SetUserOverrides replaces the override set in one row update.
func (r *Repository) SetUserOverrides(ctx context.Context, id int64, permissionIDs []int64) (rbac.User, error) {
	if permissionIDs == nil {
		permissionIDs = []int64{}
	}
	return r.queryOne(ctx, setUserOverrides, id, permissionIDs)
}

// RemoveUserOverrideRefs strips ids from every user overriding one of them.
func (r *Repository) RemoveUserOverrideRefs(ctx context.Context, permissionIDs []int64) (int, error) {
	if len(permissionIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, removeUserOverrideRefs, permissionIDs)
	if err != nil {
		return 0, db.MapError(err, "user")
	}
	return int(tag.RowsAffected()), nil
}

// DeleteUser removes a user by ID.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteUser, id)
	if err != nil {
		return db.MapError(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) queryOne(ctx context.Context, sql string, args ...any) (rbac.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		// Only email carries a unique constraint on this table.
		return rbac.User{}, db.MapError(err, "email")
	}
	return user, nil
}

func scanUser(row pgx.Row) (rbac.User, error) {
	var u rbac.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.OverrideIDs, &u.CreatedAt, &u.UpdatedAt)
	if u.OverrideIDs == nil {
		u.OverrideIDs = []int64{}
	}
	return u, err
}
