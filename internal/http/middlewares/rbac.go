package middlewares

import (
	"net/http"

	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRoles must run after RequireAuth.
func (m *AuthMiddleware) RequireRoles(allowed ...user.Role) gin.HandlerFunc {
	set := make(map[user.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}

		if _, ok := set[role]; !ok {
			abort(c, http.StatusForbidden, "forbidden", "You are not allowed to perform this action")
			return
		}

		c.Next()
	}
}
