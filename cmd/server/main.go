package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/api/handlers"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/api/routes"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/config"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/chat"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/history"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/prompts"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/settings"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/service/summary"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/interfaces"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/memory"
	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/postgres"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm"
	"github.com/EvgenyTerebenin/AI-challenge-4/pkg/llm/providers"

	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := setupLogger(cfg.Logging)
	if err != nil {
		panic(fmt.Sprintf("Failed to setup logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting chef-chat server",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Int("compact_threshold", cfg.Chat.CompactThreshold),
	)

	// Инициализация хранилища
	store, err := setupStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// Инициализация маршрутизатора провайдеров
	router, err := providers.NewRouter(map[llm.Provider]providers.Config{
		llm.ProviderYandex:   toProviderConfig(cfg.Providers.Yandex),
		llm.ProviderDeepSeek: toProviderConfig(cfg.Providers.DeepSeek),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM router", zap.Error(err))
	}
	if len(router.Providers()) == 0 {
		logger.Warn("No LLM providers configured, all chat requests will fail")
	}

	// Инициализация сервисов
	settingsManager := settings.NewManager(store, logger)
	promptsManager := prompts.NewManager(store, logger)
	historyManager := history.NewManager(store, logger)
	summaryService := summary.NewService(router, logger)

	if err := promptsManager.InitializeDefault(context.Background()); err != nil {
		logger.Fatal("Failed to initialize default system prompt", zap.Error(err))
	}

	chatService := chat.NewService(
		router,
		historyManager,
		settingsManager,
		promptsManager,
		summaryService,
		chat.Config{
			CompactThreshold: cfg.Chat.CompactThreshold,
			CompactBlockSize: cfg.Chat.CompactBlockSize,
			RequestTimeout:   cfg.Chat.RequestTimeout,
		},
		logger,
	)
	defer chatService.State().Close()
	logger.Info("Chat service initialized")

	// Инициализация handlers
	chatHandler := handlers.NewChatHandler(chatService, logger)
	settingsHandler := handlers.NewSettingsHandler(settingsManager, logger)
	promptsHandler := handlers.NewPromptsHandler(promptsManager, logger)
	modelsHandler := handlers.NewModelsHandler(router, logger)
	healthHandler := handlers.NewHealthHandler(version)

	engine := routes.SetupRoutes(cfg, logger, chatHandler, settingsHandler, promptsHandler, modelsHandler, healthHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (interfaces.PreferenceStore, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "postgres":
		store, err := postgres.New(cfg.Storage.DSN, logger)
		if err != nil {
			return nil, err
		}

		migrator := postgres.NewMigrator(store.GetDB(), logger)
		if err := migrator.RunMigrationsFromStrings(context.Background(), postgres.EmbeddedMigrations); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("PostgreSQL storage initialized",
			zap.String("dsn", maskDSN(cfg.Storage.DSN)),
		)
		return store, nil
	default:
		logger.Info("In-memory storage initialized, data will not survive restart")
		return memory.New(), nil
	}
}

func toProviderConfig(p config.ProviderConfig) providers.Config {
	return providers.Config{
		BaseURL:    p.BaseURL,
		APIKey:     p.APIKey,
		FolderID:   p.FolderID,
		Timeout:    p.Timeout,
		PricePer1K: p.PricePer1K,
	}
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

func setupLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
