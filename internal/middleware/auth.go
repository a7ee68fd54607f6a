package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/forefold/leadsflow/internal/models"
)

type contextKey string

const userContextKey contextKey = "authenticated_user"

// TokenValidator resolves a bearer token to its account.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*models.User, error)
}

// ErrorWriter renders an error response; wired to the handlers package so
// middleware failures look identical to handler failures.
type ErrorWriter func(w http.ResponseWriter, err error)

// Auth returns middleware that requires a valid bearer token and stores the
// resolved account in the request context.
func Auth(validator TokenValidator, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"missing bearer token"}`))
				return
			}
			user, err := validator.ValidateAccessToken(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserFrom returns the authenticated account stored by Auth.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}
