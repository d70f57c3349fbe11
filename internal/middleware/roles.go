package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reviewhub/internal/domain"
)

// RequireRoleMiddleware rejects authenticated users below the threshold
// role. It must run after JWTAuthMiddleware.
func RequireRoleMiddleware(threshold string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !user.RoleAtLeast(threshold) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient privileges"})
			return
		}
		c.Next()
	}
}

// AdminOnlyMiddleware gates routes reserved for administrators.
func AdminOnlyMiddleware() gin.HandlerFunc {
	return RequireRoleMiddleware(domain.RoleAdmin)
}
