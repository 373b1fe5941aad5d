package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"autoreply/internal/config"
	"autoreply/internal/handlers"
	"autoreply/internal/router"
	"autoreply/internal/services"
	"autoreply/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.VerifyToken == "" {
		logger.Warn("VERIFY_TOKEN is empty, webhook verification will always be rejected")
	}
	if cfg.OwnAccountHandle == "" && cfg.OwnAccountID == "" {
		logger.Warn("OWN_ACCOUNT_HANDLE and OWN_ACCOUNT_ID are empty, self-authored comments cannot be recognized")
	}

	threads, err := store.NewThreadStore(cfg.MaxRepliesPerThread, cfg.ThreadTTL, cfg.StoreCapacity, store.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create thread store: %v", err)
	}
	services.RegisterThreadGauge(threads.Len)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	threads.StartSweeper(ctx, cfg.SweepInterval)

	orchestrator := &services.Orchestrator{
		Policy: services.AdmissionPolicy{
			Owner:               services.Owner{Handle: cfg.OwnAccountHandle, AccountID: cfg.OwnAccountID},
			MaxRepliesPerThread: cfg.MaxRepliesPerThread,
		},
		Store:             threads,
		Generator:         services.NewLLMService(cfg.LLM),
		Sender:            services.NewGraphClient(cfg.Graph),
		Formatter:         services.NewReplyFormatter(),
		Logger:            logger,
		GenerationTimeout: cfg.GenerationTimeout,
		DispatchTimeout:   cfg.DispatchTimeout,
	}
	dispatcher := services.NewDispatcher(orchestrator, cfg.DispatchConcurrency, logger)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	router.RegisterRoutes(r, router.Handlers{
		Webhook:    handlers.NewWebhookHandler(cfg.VerifyToken, dispatcher, logger),
		Thread:     handlers.NewThreadHandler(threads),
		AdminToken: cfg.AdminToken,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("autoreply server starting", "addr", srv.Addr, "max_replies", cfg.MaxRepliesPerThread, "ttl", cfg.ThreadTTL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
