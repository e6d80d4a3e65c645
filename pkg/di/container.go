package di

import (
	"context"
	"time"

	"kindred-sheets/backend/internal/analytics"
	"kindred-sheets/backend/internal/chat"
	"kindred-sheets/backend/internal/service"
	"kindred-sheets/backend/pkg/cache"
	"kindred-sheets/backend/pkg/config"
	"kindred-sheets/backend/pkg/health"
	"kindred-sheets/backend/pkg/jwt"
	"kindred-sheets/backend/pkg/logger"
	"kindred-sheets/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB               *gorm.DB
	Logger           *logger.Logger
	Redis            *redis.Client
	JWTService       *jwt.Service
	UserService      *service.UserService
	CharacterService *service.CharacterService
	CoterieService   *service.CoterieService
	Analytics        *analytics.RedisRecorder
	ChatServer       *chat.Server
	Health           *health.Checker
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig logger.Config
	JWTSecret    string
	JWTExpiry    time.Duration
	Chat         chat.Config
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	cfg := config.Get()
	return &Config{
		LoggerConfig: logger.DefaultConfig(),
		JWTSecret:    cfg.JWT.Secret,
		JWTExpiry:    cfg.JWT.ExpiryHours,
		Chat: chat.Config{
			RateLimitWindow: cfg.Chat.RateLimitWindow,
			RateLimitMax:    cfg.Chat.RateLimitMax,
			SessionExpiry:   cfg.Chat.SessionExpiry,
			SweepInterval:   cfg.Chat.SweepInterval,
			SendBuffer:      cfg.Chat.SendBuffer,
		},
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *Config) (*Container, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	log := logger.New(cfg.LoggerConfig)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry)

	accessCache := cache.NewCache()
	userService := service.NewUserService(db, jwtService)
	characterService := service.NewCharacterService(db)
	coterieService := service.NewCoterieService(db, accessCache)

	redisClient := redis.NewClient()
	recorder := analytics.NewRedisRecorder(redisClient, config.Get().Redis.Stream, log)

	chatServer := chat.NewServer(
		cfg.Chat,
		service.NewChatAccessAdapter(coterieService),
		recorder,
		log,
	)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterCheck("database", func() (health.Status, string, error) {
		if err := config.TestConnection(db); err != nil {
			return health.StatusDown, "Database unreachable", err
		}
		return health.StatusUp, "Database connection OK", nil
	})
	checker.RegisterCheck("redis", func() (health.Status, string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx); err != nil {
			// Analytics degrades to dropped events; chat itself keeps working
			return health.StatusDegraded, "Redis unreachable, analytics disabled", err
		}
		return health.StatusUp, "Redis connection OK", nil
	})

	return &Container{
		DB:               db,
		Logger:           log,
		Redis:            redisClient,
		JWTService:       jwtService,
		UserService:      userService,
		CharacterService: characterService,
		CoterieService:   coterieService,
		Analytics:        recorder,
		ChatServer:       chatServer,
		Health:           checker,
	}, nil
}
