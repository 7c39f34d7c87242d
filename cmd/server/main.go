package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/database"
	"github.com/lateralab/soup-backend/internal/handler"
	"github.com/lateralab/soup-backend/internal/identity"
	"github.com/lateralab/soup-backend/internal/logger"
	"github.com/lateralab/soup-backend/internal/puzzle"
	"github.com/lateralab/soup-backend/internal/reasoning"
	"github.com/lateralab/soup-backend/internal/router"
	"github.com/lateralab/soup-backend/internal/service"
	"github.com/lateralab/soup-backend/internal/store"
	"github.com/lateralab/soup-backend/internal/transcribe"
	"github.com/lateralab/soup-backend/internal/validator"
	"github.com/lateralab/soup-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Soup Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Gateways ──────────────────────────────────────────────────────
	verifier, err := identity.NewSupabaseVerifier(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize identity verifier")
	}

	puzzles, err := puzzle.NewSupabaseGateway(cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize puzzle gateway")
	}

	ai := reasoning.NewHTTPClient(cfg, log)

	stt, err := transcribe.NewGoogleSpeech(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize speech client")
	}
	defer stt.Close()

	// ─── Session Store ─────────────────────────────────────────────────
	sessions := store.NewPostgresStore(pool)

	// ─── Services ──────────────────────────────────────────────────────
	sessionService := service.NewSessionService(sessions, puzzles, ai, stt, rdb, log)
	evalService := service.NewEvalService(ai, log)

	// ─── Handlers ──────────────────────────────────────────────────────
	handlers := &router.Handlers{
		Profile: handler.NewProfileHandler(verifier),
		Puzzle:  handler.NewPuzzleHandler(puzzles),
		Story:   handler.NewStoryHandler(sessionService),
		Chat:    handler.NewChatHandler(sessionService, evalService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	expiryWorker := worker.NewExpiryWorker(sessions, cfg.SessionIdleExpiry, log)
	go expiryWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(verifier, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
