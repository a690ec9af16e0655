package users_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	"github.com/odyssey-erp/odyssey-iam/internal/users"
	_ "github.com/odyssey-erp/odyssey-iam/testing"
)

type staticTokens map[string]int64

func (s staticTokens) Authenticate(ctx context.Context, token string) (shared.TokenInfo, error) {
	id, ok := s[token]
	if !ok {
		return shared.TokenInfo{}, shared.ErrInvalidToken
	}
	return shared.TokenInfo{UserID: id}, nil
}

type upperHasher struct{}

func (upperHasher) Hash(secret string) (string, error) { return strings.ToUpper(secret), nil }

type env struct {
	router http.Handler
	store  *rbac.MemoryStore
	admin  rbac.Role
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	store := rbac.NewMemoryStore()
	catalog := rbac.NewService(store, nil)
	perms, err := catalog.EnsureCatalog(ctx, shared.PermissionCatalog())
	require.NoError(t, err)
	ids := make([]int64, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	admin, err := catalog.EnsureRole(ctx, shared.AdminRoleName, ids)
	require.NoError(t, err)
	root, err := store.CreateUser(ctx, rbac.User{Name: "Root", Email: "root@example.com", RoleID: &admin.ID})
	require.NoError(t, err)

	gate := rbac.Gate{Tokens: staticTokens{"root": root.ID}, Users: store, Resolver: catalog.Resolver()}
	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		r.Use(gate.Middleware)
		users.NewHandler(nil, users.NewService(store, store, catalog, upperHasher{}), gate).MountRoutes(r)
	})
	return env{router: r, store: store, admin: admin}
}

func (e env) send(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer root")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func problemOf(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var p httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func TestUserLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)

	rr := e.send(t, http.MethodPost, "/users/", `{"name":"Dana","email":"dana@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created rbac.UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotContains(t, rr.Body.String(), "SECRET1")
	path := "/users/" + strconv.FormatInt(created.ID, 10)

	rr = e.send(t, http.MethodPatch, path+"/assign-role", `{"roleId":"`+strconv.FormatInt(e.admin.ID, 10)+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var assigned rbac.UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &assigned))
	require.NotNil(t, assigned.Role)
	assert.Equal(t, shared.AdminRoleName, assigned.Role.Name)

	rr = e.send(t, http.MethodPatch, path+"/assign-role", `{"roleId":"99999"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "role not found", problemOf(t, rr).Errors["roleId"])

	rr = e.send(t, http.MethodPatch, path+"/assign-role", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "is required", problemOf(t, rr).Errors["roleId"])

	rr = e.send(t, http.MethodPatch, "/users/99999/assign-role", `{"roleId":null}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = e.send(t, http.MethodPatch, path+"/overrides", `{"add":["read_user","unknown"],"remove":[]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var patched rbac.UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &patched))
	require.Len(t, patched.Overrides, 1)
	assert.Equal(t, "read_user", patched.Overrides[0].Name)

	rr = e.send(t, http.MethodPatch, path, `{"name":"D","roleId":null}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "must be at least 2 characters", problemOf(t, rr).Errors["name"])

	rr = e.send(t, http.MethodPatch, path, `{"roleId":null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var cleared rbac.UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cleared))
	assert.Nil(t, cleared.Role)

	rr = e.send(t, http.MethodGet, "/users/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list []rbac.UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "dana@example.com", list[0].Email)

	rr = e.send(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = e.send(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	e := newEnv(t)

	rr := e.send(t, http.MethodPost, "/users/", `{"name":"Dana","email":"root@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = e.send(t, http.MethodPost, "/users/", `{"name":"Dana","email":"d@example.com","password":"secret1","roleId":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "must be a role id", problemOf(t, rr).Errors["roleId"])

	rr = e.send(t, http.MethodPost, "/users/", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "malformed JSON", problemOf(t, rr).Errors["body"])
}
