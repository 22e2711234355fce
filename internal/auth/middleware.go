package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/internal/repository"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// UserIDHeader carries the authenticated user ID, injected by the
// upstream gateway after it verifies credentials.
const UserIDHeader = "X-User-ID"

// ProfileStore is the profile lookup the middleware needs
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}

// Middleware resolves the caller's marketplace profile from the gateway
// identity header and attaches the principal to the request context.
type Middleware struct {
	profiles ProfileStore
	logger   logger.Logger
}

// NewMiddleware creates the authentication middleware
func NewMiddleware(profiles ProfileStore, logger logger.Logger) *Middleware {
	return &Middleware{
		profiles: profiles,
		logger:   logger,
	}
}

// Handler wraps next with identity resolution. Requests without the
// identity header are rejected with 401; authenticated users with no
// marketplace profile get 403, which is distinct from a role check
// failure on a specific operation.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			m.reject(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		profile, err := m.profiles.GetByUserID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				m.reject(w, http.StatusForbidden, "no profile for user")
				return
			}
			m.logger.Error("Failed to resolve user profile", "error", err, "userID", userID)
			m.reject(w, http.StatusInternalServerError, "internal server error")
			return
		}

		principal := &Principal{
			UserID:   profile.UserID,
			Username: profile.Username,
			Role:     profile.Role,
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
