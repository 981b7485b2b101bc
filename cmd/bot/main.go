package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/studmisto/opsbot/internal/config"
	"github.com/studmisto/opsbot/internal/db"
	httpapi "github.com/studmisto/opsbot/internal/http"
	"github.com/studmisto/opsbot/internal/service"
	"github.com/studmisto/opsbot/internal/sheets"
	"github.com/studmisto/opsbot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "opsbot").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close(ctx)
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to create indexes")
	}

	client, err := telegram.NewClient(cfg.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create bot client")
	}

	mirror, err := sheets.NewService(ctx, cfg.SpreadsheetID, cfg.GoogleServiceAccountJSON)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create sheets client")
	}
	if !mirror.Enabled() {
		logger.Info().Msg("sheets mirror disabled")
	}

	svc, err := service.New(store, client, mirror, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build service")
	}

	if cfg.WebhookURL != "" {
		if err := client.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			logger.Fatal().Err(err).Msg("failed to register webhook")
		}
	}

	router := httpapi.Router(cfg, store, svc, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	svc.AnnounceStartup(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
