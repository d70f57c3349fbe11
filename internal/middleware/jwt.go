package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reviewhub/internal/domain"
	"reviewhub/internal/utils"
)

// ContextUserKey is where the authenticated user is stored in the gin context.
const ContextUserKey = "user"

// JWTAuthMiddleware validates the bearer token and loads the account it
// belongs to. Requests without a valid token are rejected.
func JWTAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := userFromHeader(c, db, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user from the context, if any.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}

// userFromHeader parses the Authorization header and resolves the account.
func userFromHeader(c *gin.Context, db *gorm.DB, secret string) (*domain.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, false
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	claims, err := utils.ParseJWT(tokenStr, secret)
	if err != nil {
		return nil, false
	}
	var user domain.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, false
	}
	return &user, true
}
