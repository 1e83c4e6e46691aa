package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Gurilao-dev/exmonitor/internal/api"
	"github.com/Gurilao-dev/exmonitor/internal/config"
	"github.com/Gurilao-dev/exmonitor/internal/database"
	"github.com/Gurilao-dev/exmonitor/internal/handlers"
	"github.com/Gurilao-dev/exmonitor/internal/logging"
	"github.com/Gurilao-dev/exmonitor/internal/repository"
	"github.com/Gurilao-dev/exmonitor/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if cfg.UsingDefaultSecret() {
		logger.Warn("no JWT secret configured, using built-in development secret; unsafe for production")
	}

	db, err := database.NewPostgresDB(cfg.Database.ToDBConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Block store: redis when configured, in-process otherwise. Everything
	// else the abuse guard tracks is local state.
	var blocks services.BlockStore
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		blocks = services.NewRedisBlockStore(redisClient)
	} else {
		blocks = services.NewMemoryBlockStore()
	}

	// Core services
	tokenService := services.NewTokenService(cfg.JWTSecret(), services.NewMemoryRevocationList())
	guard := services.NewAbuseGuard(blocks, logger)

	// Directory service repositories
	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	accessLogRepo := repository.NewAccessLogRepository(db, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(tokenService, userRepo, cfg.Auth.GlobalPassword, logger)
	deviceHandler := handlers.NewDeviceHandler(tokenService, deviceRepo, logger)
	streamHandler := handlers.NewStreamHandler(deviceRepo, accessLogRepo, logger)
	signalingHandler := handlers.NewSignalingHandler(tokenService, handlers.NewConnectionRegistry(), logger)

	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(router, api.Deps{
		Logger:    logger,
		Tokens:    tokenService,
		Guard:     guard,
		Auth:      authHandler,
		Devices:   deviceHandler,
		Streams:   streamHandler,
		Signaling: signalingHandler,
		Recorder:  accessLogRepo,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("Server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("Starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("signaling", "/ws/signaling"))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}
}
