package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ambralab/tpdb-backend/internal/handlers"
	"github.com/ambralab/tpdb-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins       []string
	MediaRoot          string
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	CompoundHandler    *handlers.CompoundHandler
	UploadHandler      *handlers.UploadHandler
	HealthcheckHandler *handlers.HealthcheckHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthcheckHandler.Healthcheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
		api.POST("/login-link", cfg.AuthHandler.RequestLoginLink)
		api.POST("/login-link/:token", cfg.AuthHandler.RedeemLoginLink)
	}

	// Molecule images and other stored media.
	if cfg.MediaRoot != "" {
		router.Static("/media", cfg.MediaRoot)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Compound queries
	protected.GET("/compounds", cfg.CompoundHandler.List)
	protected.GET("/compounds/:id", cfg.CompoundHandler.Get)
	protected.GET("/metadata", cfg.CompoundHandler.Metadata)

	// ===============
	// || Staff     ||
	// ===============
	staff := protected.Group("/")
	staff.Use(cfg.AuthMiddleware.RequireStaff())
	staff.POST("/uploads", cfg.UploadHandler.Create)
	staff.GET("/uploads", cfg.UploadHandler.ListMine)
	staff.GET("/uploads/:id", cfg.UploadHandler.Get)

	return router
}
