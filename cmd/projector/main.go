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
	"github.com/example/parking-event-driven/internal/projection"
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

	readStore, eventStore, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize stores", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	projector := projection.NewProjector(readStore, logger)

	// Rebuild the read models from the log before consuming live traffic.
	// Upserts make replaying already-applied events harmless.
	if eventStore != nil {
		events, err := eventStore.GetAllEvents(ctx)
		if err != nil {
			logger.Error("failed to replay events", slog.Any("error", err))
			os.Exit(1)
		}
		for _, event := range events {
			if err := projector.HandleEvent(ctx, event); err != nil {
				logger.Error("replay failed",
					slog.String("event_id", event.ID),
					slog.Any("error", err),
				)
				os.Exit(1)
			}
		}
		logger.Info("replay complete", slog.Int("events", len(events)))
	}

	consumer, err := buildConsumer(ctx, cfg, "projector", logger)
	if err != nil {
		logger.Error("failed to initialize consumer", slog.Any("error", err))
		os.Exit(1)
	}
	defer consumer.Close()

	go func() {
		logger.Info("projector started", slog.String("bus", cfg.Bus.Backend))
		if err := consumer.Consume(ctx, projector.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Error("consumer stopped", slog.Any("error", err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
}

// buildStores picks the read store and, where a durable log exists, the
// event store used for the startup replay.
func buildStores(ctx context.Context, cfg config.Config) (store.ReadStoreInterface, store.EventStoreInterface, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := store.ConnectPostgres(cfg.Postgres.BuildDSN())
		if err != nil {
			return nil, nil, nil, err
		}
		return store.NewPostgresReadStore(db), store.NewPostgresEventStore(db), func() { db.Close() }, nil
	case "dynamo":
		client, err := store.ConnectDynamo(ctx, cfg.Dynamo.Region)
		if err != nil {
			return nil, nil, nil, err
		}
		eventStore := store.NewDynamoEventStore(client, cfg.Dynamo.EventTable, cfg.Dynamo.SnapshotTable)
		return store.NewReadStore(), eventStore, func() {}, nil
	default:
		// No durable log to replay from; read models start empty.
		return store.NewReadStore(), nil, func() {}, nil
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
