package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scam-quiz-bot/internal/analyzer"
	"scam-quiz-bot/internal/bot"
	"scam-quiz-bot/internal/generator"
	"scam-quiz-bot/internal/leaderboard"
	"scam-quiz-bot/internal/quiz"
	"scam-quiz-bot/internal/storage"
	"scam-quiz-bot/internal/templates"
	"scam-quiz-bot/internal/textgen"
	"scam-quiz-bot/pkg/config"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	// Initialize storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// Text completion backend, shared by the generator and the analyzer
	gen := textgen.NewOpenAIGenerator(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second,
		logger,
	)

	urls := templates.NewURLPool(
		cfg.Templates.FakeURLSource,
		time.Duration(cfg.Templates.FeedCacheMinutes)*time.Minute,
		logger,
	)

	examples := generator.New(
		templates.DefaultBank(),
		urls,
		gen,
		generator.ParseMode(cfg.Quiz.Mode),
		logger,
	)

	var explain analyzer.Analyzer
	if cfg.Quiz.Analyzer == "rules" {
		logger.Info("Using rule-based analyzer")
		explain = analyzer.NewRuleAnalyzer()
	} else {
		explain = analyzer.NewLLMAnalyzer(gen, logger)
	}

	board := leaderboard.New(
		leaderboard.ParseStyle(cfg.Quiz.Leaderboard.Style),
		cfg.Quiz.Leaderboard.NameWidth,
	)

	engine := quiz.NewEngine(store, examples, explain, board, logger)

	// LINE webhook transport
	lineBot, err := bot.NewLineBot(cfg.Line.ChannelSecret, cfg.Line.ChannelToken, engine, store, logger)
	if err != nil {
		logger.Fatal("Failed to create LINE bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional Telegram transport
	if cfg.Telegram.Enabled {
		tgBot, err := bot.NewTelegramBot(cfg.Telegram.Token, engine, store, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram bot", zap.Error(err))
		}
		go func() {
			if err := tgBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Telegram bot stopped", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      lineBot.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("Starting webhook server", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

func newStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "redis":
		logger.Info("Using Redis storage", zap.String("addr", cfg.Storage.Redis.Addr))
		return storage.NewRedisStorage(storage.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Storage.Postgres.Host,
			Port:     cfg.Storage.Postgres.Port,
			User:     cfg.Storage.Postgres.User,
			Password: cfg.Storage.Postgres.Password,
			DBName:   cfg.Storage.Postgres.DBName,
			SSLMode:  cfg.Storage.Postgres.SSLMode,
		})
	default:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}
