package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SafePlan/internal/config"
	"SafePlan/internal/database"
	"SafePlan/internal/geminiservice"
	"SafePlan/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	// Code that reads the logger from a context without one gets the global logger.
	zerolog.DefaultContextLogger = &log.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}
	setupLogger(cfg)

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := database.NewStore(startupCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("could not initialize plan store")
	}
	defer store.Close()

	ai, err := geminiservice.NewServiceFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize Gemini service")
	}

	srv := server.NewServer(cfg, store, ai)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, done)

	log.Info().
		Str("addr", srv.Addr).
		Str("env", cfg.Env).
		Str("storage", cfg.StorageBackend).
		Str("text_model", cfg.GeminiTextModel).
		Msg("SafePlan API listening")

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server error")
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
