package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/appauth-server/internal/authz"
	"github.com/dtroode/appauth-server/internal/metrics"
	"github.com/dtroode/appauth-server/internal/model"
	"github.com/dtroode/appauth-server/internal/password"
	"github.com/dtroode/appauth-server/internal/service"
	"github.com/dtroode/appauth-server/internal/testutil"
	"github.com/dtroode/appauth-server/internal/token"
	"github.com/dtroode/appauth-server/internal/vault"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	engine *gin.Engine
	store  *testutil.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := testutil.NewMemoryStore()
	v, err := vault.New(strings.Repeat("cd", vault.MasterKeySize))
	require.NoError(t, err)
	hasher, err := password.NewHasher(bcrypt.MinCost, 4)
	require.NoError(t, err)

	log := testutil.MakeNoopLogger()
	m := metrics.New(prometheus.NewRegistry())
	jwt := token.NewJWT(token.NewSecretResolver("global-test-secret", store.Applications, v), time.Minute)
	tokens := service.NewTokenService(jwt, store.RefreshTokens, store.Users, store, 0, m, log)

	r := New(Services{
		Auth:         service.NewAuth(store.Users, store.Applications, hasher, tokens, store, 12, m, log),
		Tokens:       tokens,
		Recovery:     service.NewRecovery(store.Users, store.Recoveries, hasher, tokens, store, m, log),
		Applications: service.NewApplications(store.Applications, store.RefreshTokens, v, store, log),
		Roles:        service.NewRoles(store.Users, store.Roles, store, log),
		Guard:        authz.NewGuard(store.Users, store.Roles, log),
		DB:           okPinger{},
	}, m, log)

	return &testServer{engine: r.Register(), store: store}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// bootstrap registers an operator, an application and one user of it.
func (s *testServer) bootstrap(t *testing.T) (operator model.TokenPair, appID int64, user model.TokenPair) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/service/auth/register", "", gin.H{
		"email": "owner@example.com", "password": "OwnerPassword1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	operator = decode[model.TokenPair](t, rec)

	rec = s.do(t, http.MethodPost, "/v1/apps", operator.AccessToken, gin.H{"name": "shop"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[struct {
		ID int64 `json:"id"`
	}](t, rec)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/apps/%d/auth/register", app.ID), "", gin.H{
		"email": "alice@example.com", "password": "AlicePassword1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return operator, app.ID, decode[model.TokenPair](t, rec)
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ApplicationUserLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	operator, appID, user := s.bootstrap(t)
	base := fmt.Sprintf("/v1/apps/%d", appID)

	rec := s.do(t, http.MethodGet, base+"/me", user.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[struct {
		Email       string   `json:"email"`
		AppID       int64    `json:"appId"`
		Permissions []string `json:"permissions"`
	}](t, rec)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Equal(t, appID, me.AppID)
	assert.Empty(t, me.Permissions)

	t.Run("operator token is not accepted on application routes", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, base+"/me", operator.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token of another application is forbidden", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, fmt.Sprintf("/v1/apps/%d/me", appID+1000), user.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("refresh rotates once", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/auth/refresh", "", gin.H{"refreshToken": user.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rotated := decode[model.TokenPair](t, rec)
		assert.NotEqual(t, user.RefreshToken, rotated.RefreshToken)

		rec = s.do(t, http.MethodPost, base+"/auth/refresh", "", gin.H{"refreshToken": user.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = s.do(t, http.MethodPost, base+"/auth/logout", "", gin.H{"refreshToken": rotated.RefreshToken})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do(t, http.MethodPost, base+"/auth/logout", "", gin.H{"refreshToken": rotated.RefreshToken})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/auth/login", "", gin.H{"email": "alice@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRouter_AssignRolesRequiresPermission(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	_, appID, admin := s.bootstrap(t)
	base := fmt.Sprintf("/v1/apps/%d", appID)

	rec := s.do(t, http.MethodPost, base+"/auth/register", "", gin.H{
		"email": "bob@example.com", "password": "BobPassword12!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	bob, err := s.store.Users.GetByEmail(context.Background(), model.AppScope(appID), "bob@example.com")
	require.NoError(t, err)
	aliceUser, err := s.store.Users.GetByEmail(context.Background(), model.AppScope(appID), "alice@example.com")
	require.NoError(t, err)

	manager := s.store.SeedRole(appID, "manager", model.PermUsersManage, model.PermUsersRead)
	reader := s.store.SeedRole(appID, "reader", model.PermUsersRead)
	path := fmt.Sprintf("%s/users/%d/roles", base, bob.ID)

	rec = s.do(t, http.MethodPut, path, admin.AccessToken, gin.H{"roleIds": []int64{reader.ID}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, s.store.Roles.ReplaceUserRoles(context.Background(), appID, aliceUser.ID, []int64{manager.ID}))

	rec = s.do(t, http.MethodPut, path, admin.AccessToken, gin.H{"roleIds": []int64{reader.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	roles := decode[[]struct {
		Name        string   `json:"name"`
		Permissions []string `json:"permissions"`
	}](t, rec)
	require.Len(t, roles, 1)
	assert.Equal(t, "reader", roles[0].Name)
	assert.Equal(t, []string{model.PermUsersRead}, roles[0].Permissions)

	rec = s.do(t, http.MethodPut, path, admin.AccessToken, gin.H{"roleIds": []int64{reader.ID + 1000}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `authcore_guard_decisions_total{decision="deny",transport="http"} 1`)
	assert.Contains(t, rec.Body.String(), `authcore_guard_decisions_total{decision="allow",transport="http"} 2`)
}

func TestRouter_RecoveryReset(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	_, appID, user := s.bootstrap(t)
	base := fmt.Sprintf("/v1/apps/%d", appID)

	rec := s.do(t, http.MethodPost, base+"/recovery", user.AccessToken, gin.H{
		"question": "First pet?", "answer": "rex",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[model.RecoveryQuestion](t, rec)

	rec = s.do(t, http.MethodPost, base+"/recovery/ask", "", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.RecoveryQuestion{added}, decode[[]model.RecoveryQuestion](t, rec))

	rec = s.do(t, http.MethodPost, base+"/recovery/reset", "", gin.H{
		"recoveryId": added.ID, "email": "alice@example.com", "answer": "wrong", "newPassword": "NewPW!12345",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/recovery/reset", "", gin.H{
		"recoveryId": added.ID, "email": "alice@example.com", "answer": "rex", "newPassword": "NewPW!12345",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/auth/refresh", "", gin.H{"refreshToken": user.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "NewPW!12345",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("%s/recovery/%d", base, added.ID), user.AccessToken, gin.H{
		"currentPassword": "NewPW!12345",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_RegenerateSecret(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	operator, appID, user := s.bootstrap(t)

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/v1/apps/%d/secret", appID), user.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/v1/apps/%d/secret", appID), operator.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/v1/apps/%d/me", appID), user.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ServicePasswordChange(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	operator, _, _ := s.bootstrap(t)

	rec := s.do(t, http.MethodPut, "/v1/service/auth/password", operator.AccessToken, gin.H{
		"currentPassword": "OwnerPassword1!", "newPassword": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/v1/service/auth/password", operator.AccessToken, gin.H{
		"currentPassword": "OwnerPassword1!", "newPassword": "AnotherPassword2!",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/service/auth/refresh", "", gin.H{"refreshToken": operator.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
