package auth

import (
	"net/http"
	"strings"

	"github.com/example/community-platform/internal/platform/api"
	"github.com/example/community-platform/internal/platform/httpserver"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// RequireRole admits the request only if RequireUser already injected one of
// roles into the context. Comparison is case-insensitive.
func RequireRole(roles ...string) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := RoleFromContext(r.Context())
			if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
				api.Forbidden(w, "FORBIDDEN", "insufficient role", httpserver.RequestIDFromContext(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireModerator admits admins and moderators.
func RequireModerator(next http.Handler) http.Handler {
	return RequireRole(RoleAdmin, RoleModerator)(next)
}
