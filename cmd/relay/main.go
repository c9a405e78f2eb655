package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/parking-event-driven/internal/config"
	"github.com/example/parking-event-driven/internal/infrastructure/bus"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/example/parking-event-driven/internal/outbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.ConnectPostgres(cfg.Postgres.BuildDSN())
	if err != nil {
		logger.Error("failed to connect to postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	publisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize publisher", slog.Any("error", err))
		os.Exit(1)
	}
	defer publisher.Close()

	relay := outbox.NewRelay(
		store.NewPostgresOutboxStore(db),
		publisher,
		cfg.Relay.PollInterval,
		cfg.Relay.BatchSize,
		logger,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("relay started",
		slog.String("bus", cfg.Bus.Backend),
		slog.Duration("poll_interval", cfg.Relay.PollInterval),
	)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("relay stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (bus.Publisher, error) {
	switch cfg.Bus.Backend {
	case "kafka":
		return bus.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	default:
		conn, err := bus.DialWithRetry(ctx, bus.DialOptions{
			URL:      cfg.AMQP.URL,
			Attempts: cfg.AMQP.DialAttempts,
			Delay:    cfg.AMQP.DialDelay,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return bus.NewAMQPPublisher(conn, cfg.AMQP.Exchange, logger)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
