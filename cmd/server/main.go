package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ardaeerol/smart-connect4/internal/analytics"
	"github.com/ardaeerol/smart-connect4/internal/bot"
	"github.com/ardaeerol/smart-connect4/internal/config"
	"github.com/ardaeerol/smart-connect4/internal/server"
	"github.com/ardaeerol/smart-connect4/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config")
	}
	log := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var book storage.MoveBook = storage.NewMemoryBook()
	if cfg.PostgresURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.Warn().Err(err).Msg("postgres disabled, using in-memory move book")
		} else {
			defer pg.Close()
			if err := pg.EnsureTables(ctx); err != nil {
				log.Warn().Err(err).Msg("postgres ensure tables failed")
			}
			book = pg
		}
	}

	producer := analytics.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	defer producer.Close()

	engine := bot.New(bot.Config{
		Depth:    cfg.AIDepth,
		Strategy: cfg.AIStrategy,
		Timeout:  cfg.AITimeout,
		Book:     book,
		Logger:   log.With().Str("component", "bot").Logger(),
	})

	srv := server.New(server.Config{
		Bot:        engine,
		SessionTTL: cfg.SessionTTL,
		SweepEvery: cfg.SweepEvery,
		Analytics:  producer,
		Logger:     log,
	})

	log.Info().Int("depth", cfg.AIDepth).Str("strategy", string(cfg.AIStrategy)).
		Bool("kafka", producer != nil).Bool("postgres", cfg.PostgresURL != "").Msg("starting")
	if err := srv.Run(ctx, cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
