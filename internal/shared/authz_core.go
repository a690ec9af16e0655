package shared

// Permission catalog guarded by the HTTP API.
const (
	PermCreatePermission = "create_permission"
	PermReadPermission   = "read_permission"
	PermUpdatePermission = "update_permission"
	PermDeletePermission = "delete_permission"

	PermCreateRole            = "create_role"
	PermReadRole              = "read_role"
	PermUpdateRole            = "update_role"
	PermDeleteRole            = "delete_role"
	PermUpdateRolePermissions = "update_role_permissions"

	PermCreateUser             = "create_user"
	PermReadUser               = "read_user"
	PermUpdateUser             = "update_user"
	PermDeleteUser             = "delete_user"
	PermAssignRole             = "assign_role"
	PermOverrideUserPermission = "override_user_permission"
)

// AdminRoleName is the role seeded with the whole catalog.
const AdminRoleName = "Admin"

// PermissionCatalog lists every permission the service guards on.
func PermissionCatalog() []string {
	return []string{
		PermCreatePermission,
		PermReadPermission,
		PermUpdatePermission,
		PermDeletePermission,
		PermCreateRole,
		PermReadRole,
		PermUpdateRole,
		PermDeleteRole,
		PermUpdateRolePermissions,
		PermCreateUser,
		PermReadUser,
		PermUpdateUser,
		PermDeleteUser,
		PermAssignRole,
		PermOverrideUserPermission,
	}
}

// InCatalog reports whether name is a catalog permission.
func InCatalog(name string) bool {
	for _, p := range PermissionCatalog() {
		if p == name {
			return true
		}
	}
	return false
}
