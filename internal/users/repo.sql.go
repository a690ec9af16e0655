package users

const (
	userColumns = `id, name, email, password_hash, role_id, override_ids, created_at, updated_at`

	listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`

	getUser = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	createUser = `INSERT INTO users (name, email, password_hash, role_id, override_ids)
VALUES ($1, $2, $3, $4, $5::bigint[])
RETURNING ` + userColumns

	updateUser = `UPDATE users SET
	name = COALESCE($2::text, name),
	email = COALESCE($3::text, email),
	password_hash = COALESCE($4::text, password_hash),
	role_id = CASE WHEN $5::boolean THEN $6::bigint ELSE role_id END,
	updated_at = now()
WHERE id = $1
RETURNING ` + userColumns

	setUserOverrides = `UPDATE users SET override_ids = $2::bigint[], updated_at = now() WHERE id = $1
RETURNING ` + userColumns

	removeUserOverrideRefs = `UPDATE users SET
	override_ids = ARRAY(SELECT p FROM unnest(override_ids) AS p WHERE p <> ALL($1::bigint[]) ORDER BY p),
	updated_at = now()
WHERE override_ids && $1::bigint[]`

	deleteUser = `DELETE FROM users WHERE id = $1`
)
