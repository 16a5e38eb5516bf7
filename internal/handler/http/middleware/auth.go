package middleware

import (
	"context"
	"net/http"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/user"
	"github.com/cloudincsa/leave-plugin-sub004/internal/handler/http/response"
	"github.com/cloudincsa/leave-plugin-sub004/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired accepts only verified access tokens that name a user.
func AuthRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.Unauthorized(w, "Invalid token")
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TokenTypeAccess {
			response.Unauthorized(w, "Invalid token")
			return
		}
		if userID, _ := claims["user_id"].(string); userID == "" {
			response.Unauthorized(w, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hfn)
}

// UserID returns the authenticated caller's id.
func UserID(ctx context.Context) string {
	_, claims, _ := jwtauth.FromContext(ctx)
	userID, _ := claims["user_id"].(string)
	return userID
}

// Role returns the authenticated caller's role claim.
func Role(ctx context.Context) user.Role {
	_, claims, _ := jwtauth.FromContext(ctx)
	role, _ := claims["role"].(string)
	return user.Role(role)
}
