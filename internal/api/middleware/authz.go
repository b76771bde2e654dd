package middleware

import (
	"net/http"

	"github.com/coldtrace/coldtrace/internal/api/response"
	"github.com/coldtrace/coldtrace/internal/user"
)

// RequireAdmin returns middleware that rejects non-admin sessions with 403.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(user.RoleAdmin)
}

// RequireRole returns middleware that rejects sessions whose role claim is not
// in the allowed list. Requests without claims get 401.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			claims := GetClaims(r.Context())
			if claims == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
				return
			}

			if !allowed[claims.Role] {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
