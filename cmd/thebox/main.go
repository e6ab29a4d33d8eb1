package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appamqp "github.com/controlboxthe-coder/THE-BOX/internal/amqp"
	"github.com/controlboxthe-coder/THE-BOX/internal/assistant"
	"github.com/controlboxthe-coder/THE-BOX/internal/backend"
	"github.com/controlboxthe-coder/THE-BOX/internal/config"
	apphttp "github.com/controlboxthe-coder/THE-BOX/internal/http"
	"github.com/controlboxthe-coder/THE-BOX/internal/identity"
	"github.com/controlboxthe-coder/THE-BOX/internal/log"
	"github.com/controlboxthe-coder/THE-BOX/internal/session"
	"github.com/controlboxthe-coder/THE-BOX/internal/store"
	"github.com/controlboxthe-coder/THE-BOX/internal/store/memory"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Storage cleanup failed", log.FieldError, err)
			}
		}
	}()

	// The memory backend doubles as the session store; the SQLite backend
	// holds snapshots only, so sessions stay in-process there.
	sessions := store.SessionStore(memory.New())
	if s, ok := res.Store.(store.SessionStore); ok {
		sessions = s
	}

	// AMQP is optional. Without it saves still reach durable storage, they
	// just are not announced to the mirror worker.
	var publisher session.Publisher
	var amqpClient *appamqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without sync announcements", log.FieldError, err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	controller := session.NewController(session.Options{
		Snapshots:  res.Store,
		Sessions:   sessions,
		Publisher:  publisher,
		Logger:     logger,
		LoginDelay: cfg.LoginDelay,
	})
	defer controller.Close()

	// Pick up the session pointer a previous run left behind.
	if err := controller.Resume(context.Background()); err != nil {
		logger.Warn("Session resume failed, starting signed out", log.FieldError, err)
	}

	var bridge *assistant.Bridge
	if os.Getenv("GEMINI_API_KEY") != "" {
		gen, err := assistant.NewGenAIGenerator(context.Background())
		if err != nil {
			logger.Warn("Assistant unavailable", log.FieldError, err)
		} else {
			bridge = assistant.NewBridge(gen, cfg.AssistantModel, cfg.AssistantTimeout, logger)
			logger.Info("Assistant enabled", "model", cfg.AssistantModel)
		}
	} else {
		logger.Info("Assistant disabled - no GEMINI_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, controller, identity.NewService(), bridge, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting thebox server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
