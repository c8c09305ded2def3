package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/khoahotran/talentsin/pkg/auth"
	"github.com/khoahotran/talentsin/pkg/logger"
)

type RouterDeps struct {
	Auth           *AuthHandler
	CVs            *CVHandler
	CVFiles        *CVFileHandler
	JWT            *auth.JWTService
	Logger         logger.Logger
	ServiceName    string
	AllowedOrigins []string
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if d.ServiceName != "" {
		router.Use(otelgin.Middleware(d.ServiceName))
	}
	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(ErrorMiddleware(d.Logger))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		api.POST("/auth/login", d.Auth.Login)

		private := api.Group("/")
		private.Use(AuthMiddleware(d.JWT, d.Logger))
		{
			private.GET("/auth/me", d.Auth.Me)

			cvs := private.Group("/cvs")
			{
				cvs.GET("", d.CVs.ListCVs)
				cvs.POST("", d.CVs.CreateCV)
				cvs.GET("/:id", d.CVs.GetCV)
				cvs.PATCH("/:id", d.CVs.UpdateCV)
				cvs.DELETE("/:id", d.CVs.DeleteCV)
				cvs.PUT("/:id/primary", d.CVs.SetPrimary)
			}

			files := private.Group("/cv-files")
			{
				files.POST("", d.CVFiles.Upload)
				files.GET("", d.CVFiles.List)
				files.GET("/events", d.CVFiles.Events)
				files.GET("/:id", d.CVFiles.Get)
				files.DELETE("/:id", d.CVFiles.Remove)
			}
		}
	}

	return router
}
