package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/app"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/config"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/logging"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/metrics"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	log.Logger = logger

	// Create providers and services
	reg := metrics.New()
	a := app.New(cfg, reg)
	for _, p := range a.Providers {
		logger.Info().
			Str("provider", p.Name).
			Strs("datasets", p.Datasets).
			Bool("enabled", p.Enabled).
			Str("reason", p.Reason).
			Msg("provider configured")
	}

	// Create router
	router := api.NewRouter(a.System, a.AdjustedPrice, reg.Handler(), logger, cfg)

	// Create HTTP server; the write timeout leaves room for a full composition
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Engine.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.Addr).Str("version", version.Version).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Info().Msg("Server exited")
}
