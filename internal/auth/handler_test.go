package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-iam/internal/auth"
	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/rbac"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
	_ "github.com/odyssey-erp/odyssey-iam/testing"
)

type authFixture struct {
	router  http.Handler
	store   *rbac.MemoryStore
	service *auth.Service
	redis   *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := rbac.NewMemoryStore()
	codec, err := auth.NewTokenCodec(auth.TokenConfig{Secret: []byte("handler-secret"), TTL: time.Hour, Issuer: "odyssey-iam"})
	require.NoError(t, err)
	service := auth.NewService(store, auth.NewBcryptHasher(bcrypt.MinCost), codec, auth.NewRedisRevocations(client), nil)
	gate := rbac.Gate{Tokens: service, Users: store, Resolver: rbac.NewResolver(store, store)}

	r := chi.NewRouter()
	r.Route("/auth", auth.NewHandler(nil, service, gate).MountRoutes)
	return authFixture{router: r, store: store, service: service, redis: mr}
}

func (f authFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeToken(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestRegisterLoginMeLogout(t *testing.T) {
	f := newAuthFixture(t)

	rr := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada", "email": "  Ada@Example.com ", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	decodeToken(t, rr)

	stored, err := f.store.FindUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Nil(t, stored.RoleID)
	assert.Empty(t, stored.OverrideIDs)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	rr = f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada Again", "email": "ADA@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	token := decodeToken(t, rr)

	rr = f.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		User struct {
			ID                   int64     `json:"id"`
			Email                string    `json:"email"`
			Role                 *struct{} `json:"role"`
			Overrides            []string  `json:"overrides"`
			EffectivePermissions []string  `json:"effectivePermissions"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, stored.ID, me.User.ID)
	assert.Equal(t, "ada@example.com", me.User.Email)
	assert.Nil(t, me.User.Role)
	assert.Empty(t, me.User.EffectivePermissions)

	rr = f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Len(t, f.redis.Keys(), 1)

	rr = f.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	rr := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	wrong := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "bob@example.com", "password": "wrong-pass"})
	unknown := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	_, err := f.service.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterValidatesFields(t *testing.T) {
	f := newAuthFixture(t)
	rr := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{"name": "A", "email": "nope", "password": "123"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, "must be at least 2 characters", problem.Errors["name"])
	assert.Equal(t, "must be a valid email", problem.Errors["email"])
	assert.Equal(t, "must be at least 6 characters", problem.Errors["password"])
}

func TestMeRequiresBearerHeader(t *testing.T) {
	f := newAuthFixture(t)
	rr := f.do(t, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, rbac.MsgInvalidHeader, problem.Detail)
}

func TestAuthenticateFailsWhenRevocationStoreIsDown(t *testing.T) {
	f := newAuthFixture(t)
	rr := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Cy", "email": "cy@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	token := decodeToken(t, rr)

	f.redis.Close()
	_, err := f.service.Authenticate(context.Background(), token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrInvalidToken)

	rr = f.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
