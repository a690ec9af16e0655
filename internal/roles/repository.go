package roles

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

var _ rbac.RoleStore = (*Repository)(nil)

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	rows, err := r.pool.Query(ctx, listRoles)
	if err != nil {
		return nil, db.MapError(err, "role")
	}
	defer rows.Close()
	var roles []rbac.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, db.MapError(err, "role")
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "role")
	}
	return roles, nil
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	return r.queryOne(ctx, getRole, id)
}

// FindRoleByName fetches a role by name.
func (r *Repository) FindRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	return r.queryOne(ctx, getRoleByName, name)
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name string, permissionIDs []int64) (rbac.Role, error) {
	return r.queryOne(ctx, createRole, name, idArray(permissionIDs))
}

// RenameRole updates the role name.
func (r *Repository) RenameRole(ctx context.Context, id int64, name string) (rbac.Role, error) {
	return r.queryOne(ctx, renameRole, id, name)
}

// SetRolePermissions replaces the permission set in one row update.
func (r *Repository) SetRolePermissions(ctx context.Context, id int64, permissionIDs []int64) (rbac.Role, error) {
	return r.queryOne(ctx, setRolePermissions, id, idArray(permissionIDs))
}

// RemoveRolePermissionRefs strips ids from every role holding one, each row
// rewritten by a single conditional UPDATE.
func (r *Repository) RemoveRolePermissionRefs(ctx context.Context, permissionIDs []int64) (int, error) {
	if len(permissionIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, removeRolePermissionRefs, permissionIDs)
	if err != nil {
		return 0, db.MapError(err, "role")
	}
	return int(tag.RowsAffected()), nil
}

// DeleteRole removes a role by ID.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteRole, id)
	if err != nil {
		return db.MapError(err, "role")
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) queryOne(ctx context.Context, sql string, args ...any) (rbac.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return rbac.Role{}, db.MapError(err, "role")
	}
	return role, nil
}

func scanRole(row pgx.Row) (rbac.Role, error) {
	var role rbac.Role
	err := row.Scan(&role.ID, &role.Name, &role.PermissionIDs, &role.CreatedAt, &role.UpdatedAt)
	if role.PermissionIDs == nil {
		role.PermissionIDs = []int64{}
	}
	return role, err
}

func idArray(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
