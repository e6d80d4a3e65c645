package router

import (
	"kindred-sheets/backend/internal/api"
	"kindred-sheets/backend/internal/chat"
	"kindred-sheets/backend/pkg/config"
	"kindred-sheets/backend/pkg/di"
	"kindred-sheets/backend/pkg/errors"
	"kindred-sheets/backend/pkg/logger"
	"kindred-sheets/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger middleware first so every request is captured
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Logger)
	characterHandler := api.NewCharacterHandler(r.Container.CharacterService, r.Logger)
	coterieHandler := api.NewCoterieHandler(r.Container.CoterieService, r.Container.ChatServer, r.Logger)

	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	publicRoutes := v1.Group("/")
	{
		publicRoutes.GET("/health", r.Container.Health.Handler())

		authRoutes := publicRoutes.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth, authHandler.Me)
		}
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		protectedRoutes.GET("/characters", characterHandler.List)

		coterieRoutes := protectedRoutes.Group("/coteries")
		{
			coterieRoutes.GET("", coterieHandler.List)
			coterieRoutes.GET("/:id", coterieHandler.Get)
			coterieRoutes.GET("/:id/presence", coterieHandler.Presence)
		}
	}

	// WebSocket route authenticates inside the handshake: browsers cannot
	// set an Authorization header on a WebSocket upgrade
	r.Engine.GET("/ws", chat.ServeWS(r.Container.ChatServer, r.Container.JWTService))
}

// CORS middleware that explicitly allows WebSocket-specific headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
