package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/parking-event-driven/internal/config"
	"github.com/example/parking-event-driven/internal/infrastructure/bus"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/example/parking-event-driven/internal/notification"
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

	readStore, cleanup, err := buildReadStore(cfg)
	if err != nil {
		logger.Error("failed to initialize read store", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	handler := notification.NewHandler(&notification.LogSender{Log: logger}, readStore, logger)

	consumer, err := buildConsumer(ctx, cfg, "notifier", logger)
	if err != nil {
		logger.Error("failed to initialize consumer", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Close()

	go func() {
		logger.Info("notifier started", slog.String("bus", cfg.Bus.Backend))
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", slog.Any("error", err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
}

func buildReadStore(cfg config.Config) (store.ReadStoreInterface, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := store.ConnectPostgres(cfg.Postgres.BuildDSN())
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresReadStore(db), func() { db.Close() }, nil
	default:
		return store.NewReadStore(), func() {}, nil
	}
}

type consumer interface {
	Consume(ctx context.Context, handler bus.MessageHandler) error
	Close() error
}

func buildConsumer(ctx context.Context, cfg config.Config, name string, logger *slog.Logger) (consumer, error) {
	switch cfg.Bus.Backend {
	case "kafka":
		group := cfg.Kafka.GroupID
		if group == "" {
			group = name
		}
		return bus.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, group, logger), nil
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
		queue := cfg.AMQP.Queue
		if queue == "" {
			queue = name
		}
		return bus.NewAMQPConsumer(conn, cfg.AMQP.Exchange, queue, cfg.AMQP.PrefetchCount, logger)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
