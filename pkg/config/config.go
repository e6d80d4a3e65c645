package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Redis configuration (analytics sink)
	Redis struct {
		Addr     string
		Password string
		DB       int
		Stream   string
	}

	// JWT configuration
	JWT struct {
		Secret      string
		ExpiryHours time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
	}

	// Chat holds the realtime session-chat limits and cadences
	Chat struct {
		// MaxFrameBytes is the hard cap on a raw inbound frame
		MaxFrameBytes int64
		// MaxParseBytes is the cap applied at the parse step
		MaxParseBytes int
		// MaxMessageChars bounds chat text length in characters
		MaxMessageChars int
		// RateLimitWindow is the fixed rate-limit window length
		RateLimitWindow time.Duration
		// RateLimitMax is the number of actions allowed per window
		RateLimitMax int
		// SessionExpiry is the idle threshold for temporary sessions
		SessionExpiry time.Duration
		// SweepInterval is the cadence of both background sweeps
		SweepInterval time.Duration
		// SendBuffer is the per-connection outbound queue size
		SendBuffer int
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "kindred-sheets")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Redis config
		instance.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
		instance.Redis.Password = getEnvString("REDIS_PASSWORD", "")
		instance.Redis.DB = getEnvInt("REDIS_DB", 0)
		instance.Redis.Stream = getEnvString("ANALYTICS_STREAM", "chat-events")

		// JWT config
		instance.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
		instance.JWT.ExpiryHours = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})

		// Chat config
		instance.Chat.MaxFrameBytes = getEnvInt64("CHAT_MAX_FRAME_BYTES", 100<<10)
		instance.Chat.MaxParseBytes = getEnvInt("CHAT_MAX_PARSE_BYTES", 50<<10)
		instance.Chat.MaxMessageChars = getEnvInt("CHAT_MAX_MESSAGE_CHARS", 5000)
		instance.Chat.RateLimitWindow = getEnvDuration("CHAT_RATE_WINDOW", time.Minute)
		instance.Chat.RateLimitMax = getEnvInt("CHAT_RATE_MAX", 60)
		instance.Chat.SessionExpiry = getEnvDuration("CHAT_SESSION_EXPIRY", 24*time.Hour)
		instance.Chat.SweepInterval = getEnvDuration("CHAT_SWEEP_INTERVAL", time.Hour)
		instance.Chat.SendBuffer = getEnvInt("CHAT_SEND_BUFFER", 256)

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
