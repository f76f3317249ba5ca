package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openjudge/content-evaluator/internal/config"
	"github.com/openjudge/content-evaluator/internal/setup"
	"github.com/openjudge/content-evaluator/internal/setup/logger"
	"github.com/openjudge/content-evaluator/internal/stream"
	"github.com/openjudge/content-evaluator/internal/stream/redis"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	cfg := config.Load()
	appLogger := logger.New(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := setup.Wire(ctx, cfg, &appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	streamCfg := &stream.StreamConfig{
		Provider: os.Getenv("STREAM_PROVIDER"),
		RedisConfig: &redis.RedisStreamConfig{
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RequestStream: cfg.RequestStream,
			ResultStream:  cfg.ResultStream,
			Group:         cfg.ConsumerGroup,
			ConsumerName:  cfg.ConsumerName,
		},
	}

	consumer, err := stream.NewStreamConsumer(ctx, streamCfg, deps.Engine, deps.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stream consumer")
	}

	if err := consumer.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup consumer")
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error().Err(err).Msg("Consumer stopped with error")
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("Shutting down...")

	if err := consumer.Stop(); err != nil {
		appLogger.Error().Err(err).Msg("Failed to stop consumer")
	}

	log.Info().Msg("Streaming evaluator stopped")
}
