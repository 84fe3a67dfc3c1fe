package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookchain-backend/internal/shared"
	"bookchain-backend/internal/shared/response"
	"bookchain-backend/pkg/jwt"
)

const principalKey = "principal"

// AuthMiddleware validates the bearer token and stores the resulting
// Principal on the request context.
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "invalid user id in token")
			c.Abort()
			return
		}

		c.Set(principalKey, shared.Principal{
			UserID:     userID,
			Role:       shared.Role(claims.Role),
			LedgerAddr: claims.LedgerAddr,
		})

		c.Next()
	}
}

// GetPrincipal reads the Principal set by AuthMiddleware
func GetPrincipal(c *gin.Context) (shared.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return shared.Principal{}, false
	}
	principal, ok := v.(shared.Principal)
	return principal, ok
}

// RequireRoles rejects requests whose principal has none of the given roles
func RequireRoles(roles ...shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}

		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "access denied: insufficient role",
		})
		c.Abort()
	}
}
