package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tpm-hub/internal/auth"
	"tpm-hub/internal/config"
	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/store"
)

// JWTConfig is the token configuration shared by test fixtures.
func JWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:     "test-secret-key-for-testing-only",
		Expiration: time.Hour,
	}
}

// NewStore returns a CSV file store over a per-test temp directory.
func NewStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	return s
}

// SeedUser creates an account with the password "password".
func SeedUser(t *testing.T, users *repository.UserRepository, authSvc *auth.Service, id, name, role, department string) *models.User {
	t.Helper()
	hash, err := authSvc.HashPassword("password")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	u := &models.User{ID: id, PasswordHash: hash, Name: name, Role: role, Department: department}
	if err := users.Create(u); err != nil {
		t.Fatalf("Failed to seed user %s: %v", id, err)
	}
	return u
}

// Login issues a token for a seeded user and persists its session, so
// requests carrying it pass the auth middleware.
func Login(t *testing.T, authSvc *auth.Service, sessions *repository.SessionRepository, user *models.User) string {
	t.Helper()
	token, jti, err := authSvc.GenerateToken(user.ID, user.Name)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	now := time.Now()
	err = sessions.Create(&models.Session{
		JTI:       jti,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Failed to persist session: %v", err)
	}
	return token
}

// AuthenticatedRequest builds a request with a bearer token attached.
func AuthenticatedRequest(t *testing.T, method, url, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
