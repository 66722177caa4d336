package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/api/handlers"
	"github.com/gridworx/helios-ai-gateway/internal/api/routes"
	"github.com/gridworx/helios-ai-gateway/internal/config"
	"github.com/gridworx/helios-ai-gateway/internal/crypto"
	"github.com/gridworx/helios-ai-gateway/internal/database"
	"github.com/gridworx/helios-ai-gateway/internal/repository"
	"github.com/gridworx/helios-ai-gateway/internal/service/assistant"
	"github.com/gridworx/helios-ai-gateway/internal/service/gateway"
	"github.com/gridworx/helios-ai-gateway/internal/service/history"
	"github.com/gridworx/helios-ai-gateway/internal/service/ratelimit"
	"github.com/gridworx/helios-ai-gateway/internal/service/tools"
	"github.com/gridworx/helios-ai-gateway/internal/service/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger := newLogger(cfg.Log)
	defer logger.Sync() //nolint:errcheck

	if cfg.Encryption.Key != "" {
		if err := crypto.Initialize(cfg.Encryption.Key); err != nil {
			logger.Fatal("failed to initialize encryption", zap.Error(err))
		}
	} else {
		logger.Warn("ENCRYPTION_KEY not set, API keys will be stored in plaintext")
	}

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := db.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, chat history cache disabled", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}

	configRepo := repository.NewAIConfigRepository(db.DB)
	usageRepo := repository.NewUsageLogRepository(db.DB)
	chatRepo := repository.NewChatMessageRepository(db.DB)

	usageService := usage.NewService(usageRepo, logger)
	historyService := history.NewService(chatRepo, redisClient, logger)

	limiter := ratelimit.NewLimiter()
	caller := gateway.NewHTTPClient(cfg.Gateway.EndpointTimeout, logger)
	gatewayService := gateway.NewService(configRepo, usageService, limiter, caller, logger)

	knowledgeRegistry := tools.NewRegistry(logger)
	tools.RegisterKnowledgeHandlers(knowledgeRegistry)

	// Directory data-query handlers are registered by the deployment's
	// directory integration. Unregistered tools resolve to a structured
	// error the model can recover from.
	dataRegistry := tools.NewRegistry(logger)

	assistantService := assistant.NewService(
		gatewayService,
		configRepo,
		historyService,
		dataRegistry,
		knowledgeRegistry,
		cfg.Gateway.HistoryLimit,
		logger,
	)

	aiHandler := handlers.NewAIHandler(
		assistantService,
		gatewayService,
		configRepo,
		historyService,
		usageService,
		logger,
	)
	healthHandler := handlers.NewHealthHandler(db)

	router := routes.Setup(cfg, &routes.Handlers{
		AI:     aiHandler,
		Health: healthHandler,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if level, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		zapCfg.Level = level
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	return logger
}
