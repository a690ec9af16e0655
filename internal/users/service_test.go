package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

type plainHasher struct{}

func (plainHasher) Hash(secret string) (string, error) { return "hashed:" + secret, nil }

type fixture struct {
	svc     *Service
	store   *rbac.MemoryStore
	catalog *rbac.Service
	role    rbac.Role
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := rbac.NewMemoryStore()
	catalog := rbac.NewService(store, nil)
	perms, err := catalog.EnsureCatalog(ctx, []string{"read_user", "delete_user"})
	require.NoError(t, err)
	role, err := catalog.EnsureRole(ctx, "Viewer", []int64{perms[0].ID})
	require.NoError(t, err)
	return fixture{svc: NewService(store, store, catalog, plainHasher{}), store: store, catalog: catalog, role: role}
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	view, err := f.svc.CreateUser(ctx, CreateInput{Name: "Ann", Email: "Ann@Example.com", Password: "secret1", RoleID: &f.role.ID})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", view.Email)
	require.NotNil(t, view.Role)
	assert.Equal(t, "Viewer", view.Role.Name)
	assert.Empty(t, view.Overrides)

	stored, err := f.store.GetUser(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:secret1", stored.PasswordHash)

	_, err = f.svc.CreateUser(ctx, CreateInput{Name: "Ann 2", Email: "ANN@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, shared.ErrConflict)

	missing := int64(4242)
	_, err = f.svc.CreateUser(ctx, CreateInput{Name: "Bo", Email: "bo@example.com", Password: "secret1", RoleID: &missing})
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "role not found", verr.Fields["roleId"])
}

func TestUpdateUserPartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.svc.CreateUser(ctx, CreateInput{Name: "Ann", Email: "ann@example.com", Password: "secret1", RoleID: &f.role.ID})
	require.NoError(t, err)
	_, err = f.svc.CreateUser(ctx, CreateInput{Name: "Ben", Email: "ben@example.com", Password: "secret1"})
	require.NoError(t, err)

	name := "Annie"
	view, err := f.svc.UpdateUser(ctx, a.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Annie", view.Name)
	require.NotNil(t, view.Role, "role untouched when absent from the update")

	taken := "BEN@example.com"
	_, err = f.svc.UpdateUser(ctx, a.ID, UpdateInput{Email: &taken})
	assert.ErrorIs(t, err, shared.ErrConflict)

	same := "ann@example.com"
	_, err = f.svc.UpdateUser(ctx, a.ID, UpdateInput{Email: &same})
	require.NoError(t, err)

	view, err = f.svc.UpdateUser(ctx, a.ID, UpdateInput{Role: RoleRef{Set: true}})
	require.NoError(t, err)
	assert.Nil(t, view.Role)

	pw := "another1"
	_, err = f.svc.UpdateUser(ctx, a.ID, UpdateInput{Password: &pw})
	require.NoError(t, err)
	stored, err := f.store.GetUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:another1", stored.PasswordHash)

	_, err = f.svc.UpdateUser(ctx, 999, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, err := f.svc.CreateUser(ctx, CreateInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	view, err := f.svc.AssignRole(ctx, u.ID, &f.role.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Role)
	assert.Equal(t, f.role.ID, view.Role.ID)

	missing := int64(777)
	_, err = f.svc.AssignRole(ctx, u.ID, &missing)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.svc.AssignRole(ctx, 999, &f.role.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	view, err = f.svc.AssignRole(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, view.Role)
}

func TestPatchOverridesAndDeletedRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, err := f.svc.CreateUser(ctx, CreateInput{Name: "Ann", Email: "ann@example.com", Password: "secret1", RoleID: &f.role.ID})
	require.NoError(t, err)

	view, err := f.svc.PatchOverrides(ctx, u.ID, OverridePatch{Add: []string{"delete_user", "ghost"}})
	require.NoError(t, err)
	require.Len(t, view.Overrides, 1)
	assert.Equal(t, "delete_user", view.Overrides[0].Name)

	require.NoError(t, f.store.DeleteRole(ctx, f.role.ID))
	view, err = f.svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Role)
	assert.Len(t, view.Overrides, 1)

	list, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Role)

	require.NoError(t, f.svc.DeleteUser(ctx, u.ID))
	_, err = f.svc.PatchOverrides(ctx, u.ID, OverridePatch{Add: []string{"read_user"}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListUsersNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.svc.CreateUser(ctx, CreateInput{Name: "User", Email: email, Password: "secret1"})
		require.NoError(t, err)
	}
	list, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c@example.com", list[0].Email)
	assert.Equal(t, "a@example.com", list[2].Email)
}
