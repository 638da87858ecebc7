package controllers

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tagframe/coco"
	"tagframe/metrics"
	"tagframe/middlewares"
	"tagframe/sessions"
	"tagframe/store"
	"tagframe/uploads"
	"tagframe/utils"
)

// Dependencies Everything the handlers need, built once at startup
type Dependencies struct {
	Config   *utils.Config
	DB       *gorm.DB
	Factory  store.ShareDaoFactory
	Sessions *sessions.Registry
	Uploads  *uploads.Store
	Exporter *coco.Exporter
	Metrics  *metrics.Metrics
	Version  string
}

// NewRouter Build the gin engine with middlewares and all routes
func NewRouter(deps Dependencies) *gin.Engine {
	config, factory := deps.Config, deps.Factory

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestIDMiddleware())
	r.Use(middlewares.RequestLogger(deps.Metrics))
	r.Use(middlewares.CorsMiddleware(config.Server.CorsOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Version tag to test against
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": deps.Version})
	})
	r.GET("/healthz", Health(deps.DB))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", middlewares.Limiter(config.Auth.LoginRatePerMinute), Register(factory, deps.Sessions, config))
		auth.POST("/login", middlewares.Limiter(config.Auth.LoginRatePerMinute), Login(factory, deps.Sessions, config))
	}

	protected := v1.Group("")
	protected.Use(middlewares.JwtAuthMiddleware(config.Auth.JwtSecret, deps.Sessions))
	{
		protected.POST("/auth/logout", Logout(deps.Sessions))
		protected.GET("/auth/me", CurrentUser(factory))

		protected.GET("/projects", FindProjects(factory))
		protected.POST("/projects", CreateProject(factory))
		protected.GET("/projects/:id", FindProject(factory))
		protected.PATCH("/projects/:id", UpdateProject(factory))
		protected.DELETE("/projects/:id", DeleteProject(factory, deps.Uploads))

		protected.GET("/projects/:id/members", FindMembers(factory))
		protected.POST("/projects/:id/members", InviteMember(factory))
		protected.PATCH("/projects/:id/members/:email", UpdateMember(factory))
		protected.DELETE("/projects/:id/members/:email", RemoveMember(factory))

		protected.GET("/projects/:id/labels", FindProjectLabels(factory))
		protected.GET("/projects/:id/labels/stats", LabelStats(factory))
		protected.POST("/projects/:id/labels/:labelId", AttachLabel(factory))
		protected.DELETE("/projects/:id/labels/:labelId", DetachLabel(factory))

		protected.GET("/projects/:id/images", FindImages(factory))
		protected.POST("/projects/:id/images", UploadImages(factory, deps.Uploads, config))
		protected.PUT("/projects/:id/images/order", ReorderImages(factory))

		protected.GET("/projects/:id/export/coco", ExportCOCO(factory, deps.Exporter, deps.Metrics))

		protected.GET("/images/:id", FindImage(factory))
		protected.GET("/images/:id/file", ImageFile(factory))
		protected.DELETE("/images/:id", DeleteImage(factory, deps.Uploads))
		protected.GET("/images/:id/annotations", FindAnnotations(factory))
		protected.POST("/images/:id/annotations", SaveAnnotations(factory))

		protected.PATCH("/annotations/:id/label", UpdateAnnotationLabel(factory))
		protected.DELETE("/annotations/:id", DeleteAnnotation(factory))

		protected.GET("/labels", FindLabels(factory))
		protected.POST("/labels", CreateLabel(factory))
		protected.PATCH("/labels/:id", UpdateLabel(factory))
		protected.DELETE("/labels/:id", DeleteLabel(factory))
	}

	return r
}

// Health Report whether the database answers
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
