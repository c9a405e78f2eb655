// Package outbox ships stored-but-unpublished events to the broker.
// Events and outbox rows are written in the same transaction as the
// append, so a crash between store and publish only delays delivery,
// it never loses it. Redelivery after a crash between publish and
// mark is possible; consumers are idempotent.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/parking-event-driven/internal/infrastructure/bus"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// Relay polls the outbox and publishes pending entries in id order.
type Relay struct {
	outbox       store.OutboxStoreInterface
	publisher    bus.Publisher
	pollInterval time.Duration
	batchSize    int
	log          *slog.Logger
}

func NewRelay(outbox store.OutboxStoreInterface, publisher bus.Publisher, pollInterval time.Duration, batchSize int, logger *slog.Logger) *Relay {
	return &Relay{
		outbox:       outbox,
		publisher:    publisher,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		log:          logger,
	}
}

// Run polls until ctx is cancelled. Publish failures are logged and the
// batch is retried on the next tick; entries are only marked published
// after the broker accepted them.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				r.log.Error("outbox drain failed", slog.Any("error", err))
			}
		}
	}
}

// Drain publishes one batch of pending entries. Exposed separately so a
// deploy hook or test can flush the outbox without running the loop.
func (r *Relay) Drain(ctx context.Context) error {
	for {
		entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		published := make([]int64, 0, len(entries))
		for _, entry := range entries {
			if err := r.publisher.Publish(ctx, entry.Event); err != nil {
				// Stop at the first failure to preserve per-aggregate
				// ordering; everything from here on is retried later.
				r.log.Warn("publish failed, will retry",
					slog.Int64("outbox_id", entry.ID),
					slog.String("event_id", entry.Event.ID),
					slog.Any("error", err),
				)
				break
			}
			published = append(published, entry.ID)
		}

		if len(published) > 0 {
			if err := r.outbox.MarkPublished(ctx, published); err != nil {
				return err
			}
		}
		if len(published) < len(entries) {
			return nil
		}
	}
}
