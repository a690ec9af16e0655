package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perms(names ...string) []Permission {
	out := make([]Permission, 0, len(names))
	for i, n := range names {
		out = append(out, Permission{ID: int64(i + 1), Name: n})
	}
	return out
}

func TestEffectivePermissionsIsUnion(t *testing.T) {
	role := perms("read_user", "create_user")
	overrides := perms("delete_user", "read_user")

	got := EffectivePermissions(role, overrides)
	assert.Equal(t, []string{"create_user", "delete_user", "read_user"}, got.Names())

	reversed := EffectivePermissions([]Permission{role[1], role[0]}, []Permission{overrides[1], overrides[0]})
	assert.Equal(t, got, reversed)

	assert.Empty(t, EffectivePermissions(nil, nil).Names())
}

func TestResolveIgnoresDanglingReferences(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	readUser, err := store.CreatePermission(ctx, "read_user", "")
	require.NoError(t, err)
	gone, err := store.CreatePermission(ctx, "delete_user", "")
	require.NoError(t, err)
	role, err := store.CreateRole(ctx, "Viewer", []int64{readUser.ID, gone.ID})
	require.NoError(t, err)
	user, err := store.CreateUser(ctx, User{Name: "Ann", Email: "ann@example.com", RoleID: &role.ID, OverrideIDs: []int64{gone.ID}})
	require.NoError(t, err)
	require.NoError(t, store.DeletePermission(ctx, gone.ID))

	res, err := NewResolver(store, store).Resolve(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_user"}, res.Effective.Names())
	assert.Empty(t, res.Overrides)
	require.NotNil(t, res.Role)
	assert.Equal(t, "Viewer", res.Role.Name)
}

func TestResolveTreatsDeletedRoleAsNoRole(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	role, err := store.CreateRole(ctx, "Temp", nil)
	require.NoError(t, err)
	user, err := store.CreateUser(ctx, User{Name: "Bo", Email: "bo@example.com", RoleID: &role.ID})
	require.NoError(t, err)
	require.NoError(t, store.DeleteRole(ctx, role.ID))

	principal, err := NewResolver(store, store).Principal(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, principal.Role)
	assert.Empty(t, principal.EffectivePermissions.Names())
	assert.Equal(t, []string{}, principal.Overrides)
}

func TestPopulateUsersBatchesLookups(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p1, _ := store.CreatePermission(ctx, "read_role", "")
	p2, _ := store.CreatePermission(ctx, "read_user", "")
	role, _ := store.CreateRole(ctx, "Viewer", []int64{p1.ID})
	u1, _ := store.CreateUser(ctx, User{Name: "A", Email: "a@example.com", RoleID: &role.ID})
	u2, _ := store.CreateUser(ctx, User{Name: "B", Email: "b@example.com", OverrideIDs: []int64{p2.ID}})

	views, err := NewResolver(store, store).PopulateUsers(ctx, []User{u1, u2})
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.NotNil(t, views[0].Role)
	assert.Equal(t, "read_role", views[0].Role.Permissions[0].Name)
	assert.Empty(t, views[0].Overrides)
	assert.Nil(t, views[1].Role)
	assert.Equal(t, "read_user", views[1].Overrides[0].Name)
}
