// Package middleware adapts engine token verification to net/http. The
// guard reads the Authorization header, verifies the bearer token through
// the engine, and injects the claims into the request context. It makes no
// authentication decisions of its own.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/feedbackloop/identity"
	"github.com/feedbackloop/identity/token"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims injected by [Guard].
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok
}

// UserIDFromContext is a shortcut for the verified caller's user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

// Guard rejects requests without a valid bearer token. Compatible with
// chi's Use and any other func(http.Handler) http.Handler chain.
func Guard(engine *identity.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.VerifyToken(raw)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	raw := strings.TrimSpace(value[len(bearer):])
	return raw, raw != ""
}
