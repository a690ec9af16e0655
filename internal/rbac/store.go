package rbac

import "context"

// PermissionStore persists the permission catalog. Lookups by name or id
// return only the permissions that exist; missing entries are skipped.
type PermissionStore interface {
	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	FindPermissionByName(ctx context.Context, name string) (Permission, error)
	FindPermissionsByNames(ctx context.Context, names []string) ([]Permission, error)
	FindPermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error)
	CreatePermission(ctx context.Context, name, description string) (Permission, error)
	UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error)
	DeletePermission(ctx context.Context, id int64) error
}

// RoleStore persists roles and their permission sets.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	FindRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name string, permissionIDs []int64) (Role, error)
	RenameRole(ctx context.Context, id int64, name string) (Role, error)
	SetRolePermissions(ctx context.Context, id int64, permissionIDs []int64) (Role, error)
	// RemoveRolePermissionRefs strips the given ids from every role's set in
	// place and reports how many roles changed. Other members are untouched.
	RemoveRolePermissionRefs(ctx context.Context, permissionIDs []int64) (int, error)
	DeleteRole(ctx context.Context, id int64) error
}

// UserStore persists identities and their override sets.
type UserStore interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (User, error)
	SetUserOverrides(ctx context.Context, id int64, permissionIDs []int64) (User, error)
	// RemoveUserOverrideRefs strips the given ids from every user's overrides.
	RemoveUserOverrideRefs(ctx context.Context, permissionIDs []int64) (int, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Store bundles the three directories.
type Store interface {
	PermissionStore
	RoleStore
	UserStore
}

// Stores composes a Store from separately implemented directories.
type Stores struct {
	PermissionStore
	RoleStore
	UserStore
}

var _ Store = Stores{}
