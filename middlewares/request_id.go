package middlewares

import (
	"github.com/gin-gonic/gin"
	uuid "github.com/twinj/uuid"
)

const RequestIDKey = "request_id"

// RequestIDMiddleware Generate a UUID and attach it to each request, unless
// the caller already sent one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewV4().String()
		}
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}
