package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpm-hub/internal/auth"
	"tpm-hub/internal/config"
	"tpm-hub/internal/handlers"
	"tpm-hub/internal/middleware"
	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/service"
	"tpm-hub/internal/testutil"
)

type testAPI struct {
	mux      *http.ServeMux
	authSvc  *auth.Service
	users    *repository.UserRepository
	sessions *repository.SessionRepository
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	fs := testutil.NewStore(t)

	userRepo := repository.NewUserRepository(fs)
	sessionRepo := repository.NewSessionRepository(fs)
	auditRepo := repository.NewAuditRepository(fs)

	authSvc := auth.NewService(testutil.JWTConfig())
	confirm := service.NewConfirmationBroker(time.Minute)
	userService := service.NewUserService(userRepo, sessionRepo, auditRepo, authSvc, confirm, config.BootstrapConfig{
		RootID:       "administrator",
		RootPassword: "rootpass",
		RootName:     "Administrator",
	}, time.Hour)

	authHandler := handlers.NewAuthHandler(userService)
	adminHandler := handlers.NewAdminHandler(userService, auditRepo)
	authMw := middleware.NewAuthMiddleware(authSvc, sessionRepo, userRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.Handle("GET /api/v1/auth/me", authMw.Authenticate(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/v1/auth/logout", authMw.Authenticate(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/v1/admin/users",
		authMw.Authenticate(middleware.RequireRole(models.RoleRoot)(http.HandlerFunc(adminHandler.ListUsers))))

	require.NoError(t, userService.EnsureRootAccount())
	return &testAPI{mux: mux, authSvc: authSvc, users: userRepo, sessions: sessionRepo}
}

func postJSON(t *testing.T, mux *http.ServeMux, url string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestLoginAndMe(t *testing.T) {
	api := newTestAPI(t)
	alice := testutil.SeedUser(t, api.users, api.authSvc, "alice", "Alice", models.RoleMember, "Dept A")

	rec := postJSON(t, api.mux, "/api/v1/auth/login", map[string]string{"id": "alice", "password": "password"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, alice.ID, login.User.ID)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/auth/me", login.Token)
	me := httptest.NewRecorder()
	api.mux.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)

	// Wrong password is rejected without a token.
	bad := postJSON(t, api.mux, "/api/v1/auth/login", map[string]string{"id": "alice", "password": "nope"}, "")
	assert.Equal(t, http.StatusForbidden, bad.Code)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	api := newTestAPI(t)
	alice := testutil.SeedUser(t, api.users, api.authSvc, "alice", "Alice", models.RoleMember, "Dept A")
	token := testutil.Login(t, api.authSvc, api.sessions, alice)

	rec := postJSON(t, api.mux, "/api/v1/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	// The session row is gone, so the same token no longer passes.
	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/auth/me", token)
	me := httptest.NewRecorder()
	api.mux.ServeHTTP(me, req)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestRegisterEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := postJSON(t, api.mux, "/api/v1/auth/register", map[string]string{
		"id": "bob", "password": "secret", "password_confirm": "secret", "name": "Bob", "department": "Dept B",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	dup := postJSON(t, api.mux, "/api/v1/auth/register", map[string]string{
		"id": "bob", "password": "secret", "password_confirm": "secret", "name": "Bob",
	}, "")
	assert.Equal(t, http.StatusBadRequest, dup.Code)
}

func TestAdminRouteRequiresRoot(t *testing.T) {
	api := newTestAPI(t)
	alice := testutil.SeedUser(t, api.users, api.authSvc, "alice", "Alice", models.RoleMember, "Dept A")
	memberToken := testutil.Login(t, api.authSvc, api.sessions, alice)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/admin/users", memberToken)
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	root, err := api.users.Get("administrator")
	require.NoError(t, err)
	rootToken := testutil.Login(t, api.authSvc, api.sessions, root)

	req = testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/admin/users", rootToken)
	rec = httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}
