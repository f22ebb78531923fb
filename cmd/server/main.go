package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"climatesage-backend/internal/config"
	"climatesage-backend/internal/database"
	"climatesage-backend/internal/handlers"
	"climatesage-backend/internal/middleware"
	"climatesage-backend/internal/models"
	"climatesage-backend/internal/repository"
	"climatesage-backend/internal/router"
	"climatesage-backend/internal/services"
	"climatesage-backend/internal/websocket"
	"climatesage-backend/migrations"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger, closeLog := config.SetupLogger("climatesage-server", cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("starting ClimateSage backend", "env", cfg.Env, "storage", cfg.StorageType)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	defer redisClients.Close()
	logger.Info("redis connected")

	// ──── Step 3: PostgreSQL (only when it backs client storage) ────
	var pool *pgxpool.Pool
	if cfg.StorageType == "postgres" {
		pool, err = database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			logger.Error("database migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("postgres connected, migrations applied")
	}

	// ──── Step 4: Client Storage ────
	kv, err := repository.NewKeyValue(cfg.StorageType, redisClients.Store, pool)
	if err != nil {
		logger.Error("client storage unavailable", "error", err)
		os.Exit(1)
	}
	sessionStore := repository.NewJSONStore[models.ChatSession](kv, repository.ChatSessionsNamespace, logger)
	historyStore := repository.NewJSONStore[models.QuizHistoryEntry](kv, repository.QuizHistoryNamespace, logger)

	// ──── Step 5: AI Clients ────
	tutor, err := services.NewTutorService(ctx, cfg.Gateway.GeminiAPIKey, cfg.GeminiChatModel, logger)
	if err != nil {
		logger.Error("gemini client initialization failed", "error", err)
		os.Exit(1)
	}
	defer tutor.Close()

	httpClient := &http.Client{Timeout: 90 * time.Second}
	gateway, err := services.NewGateway(cfg.Gateway, httpClient, logger)
	if err != nil {
		logger.Error("gateway configuration invalid", "error", err)
		os.Exit(1)
	}
	voice := services.NewElevenLabsService(httpClient, cfg.ElevenLabsBaseURL, cfg.ElevenLabsAPIKey, cfg.ElevenLabsAgentID, cfg.ElevenLabsClimateAgentID)
	logger.Info("AI clients ready", "chat_endpoint", cfg.Gateway.ChatEndpoint, "quiz_models", len(gateway.Candidates()))

	// ──── Step 6: Services & Handlers ────
	publisher := services.NewRedisPublisher(redisClients.Store)
	chatService := services.NewChatService(sessionStore, gateway, publisher, logger)
	quizService := services.NewQuizService(historyStore, gateway, publisher, logger)

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	h := router.Handlers{
		Clients:   handlers.NewClientHandler(jwtAuth),
		Chat:      handlers.NewChatHandler(chatService),
		Quiz:      handlers.NewQuizHandler(quizService),
		Functions: handlers.NewFunctionsHandler(tutor, voice, logger),
	}

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(jwtAuth, websocket.RedisSource(redisClients.PubSub), logger)
	defer wsHub.Close()

	// ──── Step 8: Start HTTP Server ────
	r := router.New(jwtAuth, h, wsHub, router.Options{
		FrontendURL:      cfg.FrontendURL,
		FunctionsToken:   cfg.ChatAPIToken,
		AIRequestsPerMin: cfg.AIRequestsPerMin,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // quiz fallback walks several models in sequence
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("ClimateSage backend ready",
		"api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
		"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port),
		"functions", fmt.Sprintf("http://localhost:%s/functions/v1", cfg.Port),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
