package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Spaces/internal/adapters/apiclient"
	router "github.com/dkeye/Spaces/internal/adapters/http"
	"github.com/dkeye/Spaces/internal/adapters/media"
	"github.com/dkeye/Spaces/internal/app"
	"github.com/dkeye/Spaces/internal/config"
	"github.com/dkeye/Spaces/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	repo := apiclient.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	registry := app.NewRegistry()

	deps := router.Deps{
		Cfg:      cfg,
		Repo:     repo,
		Sessions: registry,
		Clock:    time.Now,
		NewEngine: func() core.MediaEngine {
			return media.NewEngine(cfg.SignalURL)
		},
	}

	r := router.SetupRouter(ctx, deps)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Spaces gateway started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
