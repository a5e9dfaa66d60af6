package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/event"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/quizapi"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/router"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"github.com/stemsi/exstem-proctor/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "exstem-proctor")
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("quiz_api", cfg.QuizAPIURL).
		Msg("Starting ExStem Proctor")

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

	// ─── Connect to RabbitMQ (optional) ────────────────────────────────
	publisher, err := event.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	attemptStore := repository.NewAttemptStore(rdb, cfg.SnapshotTTL)
	monitorRepo := repository.NewMonitorRepository(pool)
	orderRepo := repository.NewQuestionOrderRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	quizClient := quizapi.NewClient(cfg.QuizAPIURL, cfg.QuizAPITimeout, log)
	authService := service.NewAuthService(cfg)
	proctorService := service.NewProctorService(cfg, quizClient, attemptStore, orderRepo, publisher, log)
	monitorService := service.NewMonitorService(attemptStore, monitorRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	attemptCtx, attemptCancel := context.WithCancel(context.Background())
	defer attemptCancel()

	handlers := &router.Handlers{
		Attempt: handler.NewAttemptWSHandler(attemptCtx, proctorService, cfg.AllowedOrigins, log),
		Monitor: handler.NewMonitorHandler(monitorService, attemptStore, log),
		System:  handler.NewSystemHandler(pool, rdb, log),
	}
	wsLimiter := middleware.NewRateLimiter(rdb, "ws", cfg.WSRateLimit, time.Minute, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	eventWorker := worker.NewProctorEventWorker(pool, rdb, log)
	orderWorker := worker.NewQuestionOrderWorker(pool, rdb, log)

	workers.Add(2)
	go func() {
		defer workers.Done()
		eventWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		orderWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, wsLimiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. End open attempts so their abandon events reach the queue.
	attemptCancel()
	handlers.Attempt.Wait()

	// 3. Stop background workers; each flushes its buffer on the way out.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
