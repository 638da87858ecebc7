package middlewares

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CorsMiddleware Use middleware for CORS (Cross-Origin Resource Sharing)
// with the configured origins. "*" allows every origin, without
// credentials. Preflight requests are cached for 12 hours.
func CorsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Disposition", "X-Request-Id", ExportDefaultedHeader, ExportSkippedHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
		}
	}
	if !config.AllowAllOrigins {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

// Headers describing how lossy a COCO export was.
const (
	ExportDefaultedHeader = "X-Export-Defaulted-Images"
	ExportSkippedHeader   = "X-Export-Skipped-Annotations"
)
