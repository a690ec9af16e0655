package rbac

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// MemoryStore is an in-process Store. Each method locks for its own duration
// only, matching the per-record atomicity of the postgres store.
type MemoryStore struct {
	mu          sync.RWMutex
	permissions map[int64]Permission
	roles       map[int64]Role
	users       map[int64]User
	nextID      int64
	now         func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		permissions: make(map[int64]Permission),
		roles:       make(map[int64]Role),
		users:       make(map[int64]User),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

// ListPermissions returns all permissions ordered by name.
func (m *MemoryStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	sortByName(out)
	return out, nil
}

// GetPermission fetches a permission by ID.
func (m *MemoryStore) GetPermission(ctx context.Context, id int64) (Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.permissions[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return p, nil
}

// FindPermissionByName fetches a permission by its unique name.
func (m *MemoryStore) FindPermissionByName(ctx context.Context, name string) (Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.permissions {
		if p.Name == name {
			return p, nil
		}
	}
	return Permission{}, shared.ErrNotFound
}

// FindPermissionsByNames returns the permissions matching any of names.
func (m *MemoryStore) FindPermissionsByNames(ctx context.Context, names []string) ([]Permission, error) {
	want := NewEffectiveSet(names...)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Permission
	for _, p := range m.permissions {
		if want.Has(p.Name) {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

// FindPermissionsByIDs returns the permissions matching any of ids.
func (m *MemoryStore) FindPermissionsByIDs(ctx context.Context, ids []int64) ([]Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[int64]struct{}, len(ids))
	var out []Permission
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := m.permissions[id]; ok {
			out = append(out, p)
		}
	}
	sortByName(out)
	return out, nil
}

// CreatePermission inserts a permission.
func (m *MemoryStore) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.permissions {
		if p.Name == name {
			return Permission{}, shared.ConflictError("permission")
		}
	}
	now := m.now()
	p := Permission{ID: m.id(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	m.permissions[p.ID] = p
	return p, nil
}

// UpdatePermission replaces name and description.
func (m *MemoryStore) UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permissions[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	for _, other := range m.permissions {
		if other.ID != id && other.Name == name {
			return Permission{}, shared.ConflictError("permission")
		}
	}
	p.Name, p.Description, p.UpdatedAt = name, description, m.now()
	m.permissions[id] = p
	return p, nil
}

// DeletePermission removes a permission without touching references.
func (m *MemoryStore) DeletePermission(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.permissions[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.permissions, id)
	return nil
}

// ListRoles returns all roles ordered by name.
func (m *MemoryStore) ListRoles(ctx context.Context) ([]Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, cloneRole(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetRole fetches a role by ID.
func (m *MemoryStore) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return cloneRole(r), nil
}

// FindRoleByName fetches a role by its unique name.
func (m *MemoryStore) FindRoleByName(ctx context.Context, name string) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.roles {
		if r.Name == name {
			return cloneRole(r), nil
		}
	}
	return Role{}, shared.ErrNotFound
}

// CreateRole inserts a role.
func (m *MemoryStore) CreateRole(ctx context.Context, name string, permissionIDs []int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return Role{}, shared.ConflictError("role")
		}
	}
	now := m.now()
	r := Role{ID: m.id(), Name: name, PermissionIDs: cloneIDs(permissionIDs), CreatedAt: now, UpdatedAt: now}
	m.roles[r.ID] = r
	return cloneRole(r), nil
}

// RenameRole changes a role's name.
func (m *MemoryStore) RenameRole(ctx context.Context, id int64, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	for _, other := range m.roles {
		if other.ID != id && other.Name == name {
			return Role{}, shared.ConflictError("role")
		}
	}
	r.Name, r.UpdatedAt = name, m.now()
	m.roles[id] = r
	return cloneRole(r), nil
}

// SetRolePermissions replaces a role's permission set.
func (m *MemoryStore) SetRolePermissions(ctx context.Context, id int64, permissionIDs []int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	r.PermissionIDs, r.UpdatedAt = cloneIDs(permissionIDs), m.now()
	m.roles[id] = r
	return cloneRole(r), nil
}

// RemoveRolePermissionRefs drops ids from role sets under the write lock.
func (m *MemoryStore) RemoveRolePermissionRefs(ctx context.Context, permissionIDs []int64) (int, error) {
	drop := idSet(permissionIDs)
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for id, r := range m.roles {
		next, ok := without(r.PermissionIDs, drop)
		if !ok {
			continue
		}
		r.PermissionIDs, r.UpdatedAt = next, m.now()
		m.roles[id] = r
		changed++
	}
	return changed, nil
}

// DeleteRole removes a role without touching users referencing it.
func (m *MemoryStore) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

// ListUsers returns all users, newest first.
func (m *MemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// GetUser fetches a user by ID.
func (m *MemoryStore) GetUser(ctx context.Context, id int64) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return cloneUser(u), nil
}

// FindUserByEmail fetches a user by normalized email.
func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return User{}, shared.ErrNotFound
}

// CreateUser inserts a user.
func (m *MemoryStore) CreateUser(ctx context.Context, user User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return User{}, shared.ConflictError("email")
		}
	}
	now := m.now()
	user.ID, user.CreatedAt, user.UpdatedAt = m.id(), now, now
	user = cloneUser(user)
	if user.OverrideIDs == nil {
		user.OverrideIDs = []int64{}
	}
	m.users[user.ID] = user
	return cloneUser(user), nil
}

// UpdateUser applies a partial update.
func (m *MemoryStore) UpdateUser(ctx context.Context, id int64, update UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	if update.Email != nil {
		for _, other := range m.users {
			if other.ID != id && other.Email == *update.Email {
				return User{}, shared.ConflictError("email")
			}
		}
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	if update.SetRole {
		u.RoleID = cloneIDPtr(update.RoleID)
	}
	u.UpdatedAt = m.now()
	m.users[id] = u
	return cloneUser(u), nil
}

// SetUserOverrides replaces a user's override set.
func (m *MemoryStore) SetUserOverrides(ctx context.Context, id int64, permissionIDs []int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.OverrideIDs, u.UpdatedAt = cloneIDs(permissionIDs), m.now()
	m.users[id] = u
	return cloneUser(u), nil
}

// RemoveUserOverrideRefs drops ids from override sets under the write lock.
func (m *MemoryStore) RemoveUserOverrideRefs(ctx context.Context, permissionIDs []int64) (int, error) {
	drop := idSet(permissionIDs)
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for id, u := range m.users {
		next, ok := without(u.OverrideIDs, drop)
		if !ok {
			continue
		}
		u.OverrideIDs, u.UpdatedAt = next, m.now()
		m.users[id] = u
		changed++
	}
	return changed, nil
}

// DeleteUser removes a user.
func (m *MemoryStore) DeleteUser(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// without returns ids minus drop and whether anything was removed.
func without(ids []int64, drop map[int64]struct{}) ([]int64, bool) {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out, len(out) != len(ids)
}

func cloneIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func cloneIDPtr(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneRole(r Role) Role {
	r.PermissionIDs = cloneIDs(r.PermissionIDs)
	return r
}

func cloneUser(u User) User {
	u.OverrideIDs = cloneIDs(u.OverrideIDs)
	u.RoleID = cloneIDPtr(u.RoleID)
	return u
}
