package roles

const (
	roleColumns = `id, name, permission_ids, created_at, updated_at`

	listRoles = `SELECT ` + roleColumns + ` FROM roles ORDER BY name`

	getRole = `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`

	getRoleByName = `SELECT ` + roleColumns + ` FROM roles WHERE name = $1`

	createRole = `INSERT INTO roles (name, permission_ids) VALUES ($1, $2::bigint[])
RETURNING ` + roleColumns

	renameRole = `UPDATE roles SET name = $2, updated_at = now() WHERE id = $1
RETURNING ` + roleColumns

	setRolePermissions = `UPDATE roles SET permission_ids = $2::bigint[], updated_at = now() WHERE id = $1
RETURNING ` + roleColumns

	removeRolePermissionRefs = `UPDATE roles SET
	permission_ids = ARRAY(SELECT p FROM unnest(permission_ids) AS p WHERE p <> ALL($1::bigint[]) ORDER BY p),
	updated_at = now()
WHERE permission_ids && $1::bigint[]`

	deleteRole = `DELETE FROM roles WHERE id = $1`
)
