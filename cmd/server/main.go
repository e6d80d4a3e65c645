package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kindred-sheets/backend/internal/models"
	"kindred-sheets/backend/pkg/config"
	"kindred-sheets/backend/pkg/di"
	"kindred-sheets/backend/pkg/logger"
	"kindred-sheets/backend/pkg/router"
	"kindred-sheets/backend/pkg/secrets"
	"kindred-sheets/backend/shared/observability"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present; real environments set variables directly
	_ = godotenv.Load()

	cfg := config.Get()

	log := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		JSON:      cfg.Logging.Format == "json",
		AddSource: cfg.Server.Env == "development",
	})
	logger.SetGlobal(log)

	if err := secrets.Init(log); err != nil {
		log.Warn("Secrets manager unavailable, falling back to environment", "error", err.Error())
	}
	ctx := context.Background()
	cfg.JWT.Secret = secrets.GetSecretWithDefault(ctx, "jwt_secret", cfg.JWT.Secret)

	db, err := config.NewDB()
	if err != nil {
		log.Error("Failed to connect to database", "error", err.Error())
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Character{},
		&models.CharacterShare{},
		&models.Coterie{},
		&models.CoterieMember{},
	); err != nil {
		log.Error("Failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	container, err := di.New(db, nil)
	if err != nil {
		log.Error("Failed to build container", "error", err.Error())
		os.Exit(1)
	}

	shutdownTracing := observability.SetupTracing("kindred-sheets")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(":2112")

	container.Health.Start()

	// Session sweeps and rate limit GC run until the root context is cancelled
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go container.ChatServer.Run(runCtx)

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	cancel()

	// Close live websocket connections before the HTTP listener so clients
	// get a going-away frame instead of a dropped TCP connection
	container.ChatServer.Shutdown()
	container.Analytics.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err.Error())
	}
	_ = container.Redis.Close()

	log.Info("Server exited")
}
