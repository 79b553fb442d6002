package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/HatiCode/ridewise/pkg/httpx"
)

type contextKey struct{}

// WithUser returns a copy of ctx carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFromContext returns the user id stored by WithUser.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate resolves the caller of r. It returns ErrNoToken when the
// request is anonymous and ErrInvalidToken when the token fails to verify.
func (m *Manager) Authenticate(r *http.Request) (string, error) {
	token := BearerToken(r)
	if token == "" {
		return "", ErrNoToken
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.User(), nil
}

// Identify returns middleware that attaches the caller's user id to the
// request context when a valid bearer token is present. Anonymous requests
// and requests with bad tokens pass through without a user.
func Identify(m *Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := m.Authenticate(r)
			switch {
			case err == nil:
				r = r.WithContext(WithUser(r.Context(), userID))
			case !errors.Is(err, ErrNoToken):
				logger.Debug("ignoring bearer token", "path", r.URL.Path, "error", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser wraps next so that it only runs for requests carrying a valid
// bearer token. Others get a 401.
func RequireUser(m *Manager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			httpx.WriteErrorMessage(w, http.StatusUnauthorized, "Authentication is not configured")
			return
		}

		userID, err := m.Authenticate(r)
		if err != nil {
			if errors.Is(err, ErrNoToken) {
				httpx.WriteErrorMessage(w, http.StatusUnauthorized, "No token provided")
				return
			}
			httpx.WriteErrorMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}
