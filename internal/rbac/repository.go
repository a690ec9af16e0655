package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/db"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the permission catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ PermissionStore = (*Repository)(nil)

// ListPermissions returns all permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	return r.query(ctx, listPermissions)
}

// GetPermission fetches a permission by ID.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	return r.queryOne(ctx, getPermission, id)
}

// FindPermissionByName fetches a permission by name.
func (r *Repository) FindPermissionByName(ctx context.Context, name string) (Permission, error) {
	return r.queryOne(ctx, getPermissionByName, name)
}

// FindPermissionsByNames returns the permissions whose names are listed.
func (r *Repository) FindPermissionsByNames(ctx context.Context, names []string) ([]Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return r.query(ctx, listPermissionsByNames, names)
}

// FindPermissionsByIDs returns the permissions whose ids are listed.
func (r *Repository) FindPermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.query(ctx, listPermissionsByIDs, ids)
}

// CreatePermission inserts a new permission.
func (r *Repository) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	return r.queryOne(ctx, createPermission, name, description)
}

// UpdatePermission updates an existing permission.
func (r *Repository) UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error) {
	return r.queryOne(ctx, updatePermission, id, name, description)
}

// DeletePermission removes a permission by ID. Returns shared.ErrNotFound if nothing was deleted.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deletePermission, id)
	if err != nil {
		return db.MapError(err, "permission")
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.MapError(err, "permission")
	}
	perms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Permission, error) {
		return scanPermission(row)
	})
	if err != nil {
		return nil, db.MapError(err, "permission")
	}
	return perms, nil
}

func (r *Repository) queryOne(ctx context.Context, sql string, args ...any) (Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return Permission{}, db.MapError(err, "permission")
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPermission(row scanner) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
