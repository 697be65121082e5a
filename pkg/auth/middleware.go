package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/relaycrm/outreach-engine/pkg/models"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to Service.
type Middleware struct {
	authService Service
	internalKey string
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware. internalKey may be empty,
// which disables the API-key fallback entirely.
func NewMiddleware(authService Service, internalKey string, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		internalKey: internalKey,
		logger:      logger,
	}
}

// RequireAuth validates the bearer token and puts the user in context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.bearerUser(w, r)
		if !ok {
			return
		}
		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// RequireAuthOrAPIKey accepts either a bearer token or the internal API
// key header. The dashboard's server-side renderer uses the key; browser
// and extension sessions use tokens.
func (m *Middleware) RequireAuthOrAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-Key"); key != "" && m.internalKey != "" &&
			subtle.ConstantTimeCompare([]byte(key), []byte(m.internalKey)) == 1 {
			internal := &models.User{Name: "Dashboard", Role: models.RoleAdmin, IsActive: true}
			next(w, r.WithContext(WithUser(r.Context(), internal)))
			return
		}

		user, ok := m.bearerUser(w, r)
		if !ok {
			return
		}
		next(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// RequireAdmin validates the bearer token and requires the admin role.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user, _ := GetUser(r.Context())
		if user == nil || user.Role != models.RoleAdmin {
			m.forbidden(w, "Admin access required")
			return
		}
		next(w, r)
	})
}

func (m *Middleware) bearerUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		m.unauthorized(w, "Authentication required")
		return nil, false
	}

	user, err := m.authService.ValidateToken(r.Context(), strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		m.logger.Debug("Token validation failed", zap.Error(err))
		m.unauthorized(w, "Invalid or expired token")
		return nil, false
	}

	return user, true
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "forbidden",
		"message": message,
	})
}
