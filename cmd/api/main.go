package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/postmangpx/postmangpx/internal/config"
	"github.com/postmangpx/postmangpx/internal/events"
	"github.com/postmangpx/postmangpx/internal/handler"
	"github.com/postmangpx/postmangpx/internal/infra/postgresql"
	"github.com/postmangpx/postmangpx/internal/infra/postgresql/migrations"
	infraredis "github.com/postmangpx/postmangpx/internal/infra/redis"
	"github.com/postmangpx/postmangpx/internal/observability"
	"github.com/postmangpx/postmangpx/internal/provider"
	"github.com/postmangpx/postmangpx/internal/repository"
	"github.com/postmangpx/postmangpx/internal/service"
	"github.com/postmangpx/postmangpx/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	var publisher events.Publisher = events.NewNoopPublisher()
	if cfg.RabbitMQURL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal("rabbitmq initialization failed", zap.Error(err))
		}
		publisher = rabbitPublisher
	}
	defer publisher.Close() //nolint:errcheck

	limiter, err := infraredis.NewRedisRateLimiter(rdb)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	messageRepo := repository.NewGormMessageRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)
	credentialRepo := repository.NewGormCredentialRepo(db)
	channelRepo := repository.NewGormChannelRepo(db)
	callerRepo := repository.NewGormCallerRepo(db)

	metrics := observability.NewMetrics()

	credentialService, err := service.NewCredentialService(credentialRepo, limiter, logger, cfg.DefaultRateLimit, cfg.DefaultRateWindow)
	if err != nil {
		logger.Fatal("credential service initialization failed", zap.Error(err))
	}

	registry, err := service.NewChannelRegistry(channelRepo, logger)
	if err != nil {
		logger.Fatal("channel registry initialization failed", zap.Error(err))
	}

	dispatchService, err := service.NewDispatchService(
		messageRepo,
		attemptRepo,
		registry,
		provider.NewSelector(),
		provider.NewSimulatedChecker(),
		publisher,
		metrics,
		logger,
		time.Duration(cfg.DispatchTimeoutSec)*time.Second,
	)
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}

	provisionService, err := service.NewProvisionService(callerRepo, logger)
	if err != nil {
		logger.Fatal("provision service initialization failed", zap.Error(err))
	}

	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := provisionService.EnsureAdminCaller(bootstrapCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		cancelBootstrap()
		logger.Fatal("admin provisioning failed", zap.Error(err))
	}
	cancelBootstrap()

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterMessageRoutes(app, dispatchService, handler.APIKeyAuth(credentialService, metrics)); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
