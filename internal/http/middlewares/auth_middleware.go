package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/carehub/internal/auth"
	"github.com/geocoder89/carehub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// UserLookup lets the middleware confirm the token's user is still ACTIVE.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserLookup
}

// NewAuthMiddleware builds the bearer check. users may be nil, in which case
// only the signature and expiry are checked.
func NewAuthMiddleware(jwt TokenVerifier, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		if m.users != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			u, err := m.users.GetByID(ctx, claims.UserID)
			cancel()

			if err != nil || !u.IsActive() || u.Email != claims.Email {
				abort(c, http.StatusUnauthorized, "unauthorized", "Account is not active")
				return
			}
			claims.Role = string(u.Role)
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)

		c.Next()
	}
}

// bearerToken accepts "Bearer <token>" or a bare token.
func bearerToken(h string) string {
	h = strings.TrimSpace(h)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxUserID)
}

func EmailFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, CtxEmail)
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	r, ok := stringFromContext(c, CtxRole)
	return user.Role(r), ok
}

func stringFromContext(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
