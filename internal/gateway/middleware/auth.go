package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/weddly/wedding-planner/internal/shared/infrastructure/jwt"
)

type contextKey string

const (
	ContextKeyMemberID contextKey = "member_id"
	ContextKeyRole     contextKey = "role"
)

type AuthMiddleWare struct {
	jwtSecret string
}

// NewAuthMiddleware creates the bearer token middleware for jwtSecret.
func NewAuthMiddleware(jwtSecret string) *AuthMiddleWare {
	return &AuthMiddleWare{jwtSecret: jwtSecret}
}

// RequireAuth rejects requests without a valid token and puts the member id
// and role into the request context. Browsers cannot set headers on
// EventSource or WebSocket handshakes, so a "token" query parameter is
// accepted as well.
func (m *AuthMiddleWare) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := ""
		authHeader := r.Header.Get("Authorization")

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenStr = parts[1]
			}
		}

		if tokenStr == "" {
			tokenStr = r.URL.Query().Get("token")
		}

		if tokenStr == "" {
			http.Error(w, `{"error": "missing or invalid authorization"}`, http.StatusUnauthorized)
			return
		}

		claims, err := jwt.ValidateToken(tokenStr, m.jwtSecret)
		if err != nil {
			http.Error(w, `{"error": "invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyMemberID, claims.MemberID)
		ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole wraps RequireAuth and additionally demands one of roles.
func (m *AuthMiddleWare) RequireRole(next http.Handler, roles ...string) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value(ContextKeyRole).(string)
		if !slices.Contains(roles, role) {
			http.Error(w, `{"error": "forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// MemberIDFrom returns the authenticated member id.
func MemberIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyMemberID).(int64)
	return id, ok && id > 0
}
