package rbac

const (
	permissionColumns = `id, name, description, created_at, updated_at`

	listPermissions = `SELECT ` + permissionColumns + ` FROM permissions ORDER BY name`

	getPermission = `SELECT ` + permissionColumns + ` FROM permissions WHERE id = $1`

	getPermissionByName = `SELECT ` + permissionColumns + ` FROM permissions WHERE name = $1`

	listPermissionsByNames = `SELECT ` + permissionColumns + ` FROM permissions WHERE name = ANY($1::text[]) ORDER BY name`

	listPermissionsByIDs = `SELECT ` + permissionColumns + ` FROM permissions WHERE id = ANY($1::bigint[]) ORDER BY name`

	createPermission = `INSERT INTO permissions (name, description) VALUES ($1, $2)
RETURNING ` + permissionColumns

	updatePermission = `UPDATE permissions SET name = $2, description = $3, updated_at = now() WHERE id = $1
RETURNING ` + permissionColumns

	deletePermission = `DELETE FROM permissions WHERE id = $1`
)
