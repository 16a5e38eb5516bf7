package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/cloudincsa/leave-plugin-sub004/internal/handler/http/response"
)

// RequirePermission rejects callers whose role claim lacks permission. It
// runs after AuthRequired, so a missing role means an unknown one.
func RequirePermission(permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r.Context())
			if role == "" || !user.HasPermission(role, permission) {
				response.Forbidden(w, fmt.Sprintf("Role %q lacks permission %q", role, permission))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
