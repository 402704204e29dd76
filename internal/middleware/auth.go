package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/tendly/tendly/internal/auth"
	"github.com/tendly/tendly/pkg/errors"
	"github.com/tendly/tendly/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxIdentityKey = "authIdentity"
	CtxUserIDKey   = "userID"
	CtxEmailKey    = "userEmail"
	CtxRoleKey     = "userRole"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxIdentityKey, claims.Identity())
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxEmailKey, claims.Email)
		c.Set(CtxRoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole rejects authenticated callers whose role does not match.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRoleKey) != role {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Identity extracts the verified caller from the request context. The boolean
// is false when Auth did not run.
func Identity(c *gin.Context) (iauth.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return iauth.Identity{}, false
	}
	id, ok := v.(iauth.Identity)
	return id, ok
}
