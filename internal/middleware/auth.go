package middleware

import (
	"context"
	"net/http"
	"strings"

	"tpm-hub/internal/auth"
	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
)

type contextKey string

const (
	UserKey contextKey = "user"
	JTIKey  contextKey = "jti"
)

// AuthMiddleware validates JWT tokens
type AuthMiddleware struct {
	authService *auth.Service
	sessionRepo *repository.SessionRepository
	userRepo    *repository.UserRepository
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service, sessionRepo *repository.SessionRepository, userRepo *repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
	}
}

// Authenticate validates the JWT token, checks the persisted session
// and resolves the acting user into the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		// A token whose session row is gone has been logged out or
		// revoked.
		if claims.ID != "" {
			if _, err := m.sessionRepo.GetByJTI(claims.ID); err != nil {
				respondWithError(w, http.StatusUnauthorized, "Token has been invalidated")
				return
			}
		}

		user, err := m.userRepo.Get(claims.UserID)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Account no longer exists")
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		ctx = context.WithValue(ctx, JTIKey, claims.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser retrieves the acting user from the request context
func GetUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserKey).(*models.User)
	return user, ok
}

// GetJTI retrieves the token id from the request context
func GetJTI(r *http.Request) (string, bool) {
	jti, ok := r.Context().Value(JTIKey).(string)
	return jti, ok
}

// Helper function to respond with JSON error
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
