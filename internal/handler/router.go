package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"icesos/familyhub/internal/config"
	"icesos/familyhub/internal/handler/middleware"
	jwtpkg "icesos/familyhub/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	familyHandler *FamilyHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.POST("/family-invite-management", familyHandler.Manage)

		protected.GET("/family/invites", familyHandler.ListInvites)
		protected.GET("/family/members", familyHandler.ListMembers)
	}

	return r
}
