package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tagframe/sessions"
	"tagframe/utils"
)

// Context keys set by JwtAuthMiddleware.
const (
	UserIDKey    = "user_id"
	EmailKey     = "email"
	SessionIDKey = "session_id"
)

// JwtAuthMiddleware Accept only requests carrying a valid token whose
// session is still registered
func JwtAuthMiddleware(secret string, registry *sessions.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := utils.ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		claims, err := utils.ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		session, err := registry.Read(claims.Id)
		if err != nil || session.UserID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, please sign in again"})
			return
		}

		c.Set(UserIDKey, session.UserID)
		c.Set(EmailKey, session.Email)
		c.Set(SessionIDKey, session.ID)
		c.Next()
	}
}

// CurrentUser Identity stored on the context by JwtAuthMiddleware
func CurrentUser(c *gin.Context) (userID uint, email string) {
	return c.GetUint(UserIDKey), c.GetString(EmailKey)
}
