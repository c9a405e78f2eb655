package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/parking-event-driven/internal/domain/aggregate"
	"github.com/example/parking-event-driven/internal/domain/reservation"
	"github.com/example/parking-event-driven/internal/domain/slot"
	"github.com/example/parking-event-driven/internal/domain/user"
	"github.com/example/parking-event-driven/internal/errs"
	"github.com/example/parking-event-driven/internal/infrastructure/bus"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// Handler orchestrates one command against one aggregate:
// load (snapshot + trailing events) -> decide -> append under the version
// guard -> publish -> maybe snapshot. It holds no locks across that window;
// concurrent commands against the same aggregate are resolved by the
// store's version guard, and a conflict surfaces as a retryable error the
// caller must handle — the handler never auto-retries.
type Handler struct {
	eventStore        store.EventStoreInterface
	snapshotStore     store.SnapshotStoreInterface
	publisher         bus.Publisher
	snapshotFrequency int
	log               *slog.Logger
}

// NewHandler wires a command handler. publisher may be nil when an outbox
// relay owns publication (the Postgres outbox store writes the outbox rows
// inside the append transaction).
func NewHandler(
	eventStore store.EventStoreInterface,
	snapshotStore store.SnapshotStoreInterface,
	publisher bus.Publisher,
	snapshotFrequency int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		eventStore:        eventStore,
		snapshotStore:     snapshotStore,
		publisher:         publisher,
		snapshotFrequency: snapshotFrequency,
		log:               logger,
	}
}

// CreateReservation places a new reservation.
func (h *Handler) CreateReservation(ctx context.Context, cmd CreateReservation) (*reservation.Reservation, error) {
	r := reservation.New()
	if err := r.Create(uuid.New().String(), reservation.CreateParams{
		UserID:      cmd.UserID,
		SlotID:      cmd.SlotID,
		SiteID:      cmd.SiteID,
		StartDate:   cmd.StartDate,
		StartTime:   cmd.StartTime,
		EndDate:     cmd.EndDate,
		EndTime:     cmd.EndTime,
		UTCOffset:   cmd.UTCOffset,
		VehicleType: cmd.VehicleType,
	}); err != nil {
		return nil, err
	}

	if err := h.commit(ctx, r, reservation.AggregateType, 0); err != nil {
		return nil, err
	}

	h.log.Info("reservation created",
		slog.String("reservation_id", r.ID),
		slog.String("slot_id", r.SlotID),
	)
	return r, nil
}

// UpdateReservationStatus moves a reservation through its lifecycle.
func (h *Handler) UpdateReservationStatus(ctx context.Context, cmd UpdateReservationStatus) error {
	r, found, err := aggregate.Load(ctx, h.eventStore, h.snapshotStore, cmd.ReservationID, reservation.New)
	if err != nil {
		return errs.Mark(errs.Wrap(err, "failed to load reservation"), errs.ErrStoreUnavailable)
	}
	if !found {
		return reservation.ErrReservationNotFound
	}

	expectedVersion := r.GetVersion()
	if err := r.UpdateStatus(cmd.NewStatus); err != nil {
		return err
	}

	if err := h.commit(ctx, r, reservation.AggregateType, expectedVersion); err != nil {
		return err
	}

	h.log.Info("reservation status updated",
		slog.String("reservation_id", r.ID),
		slog.String("status", r.Status),
	)
	return nil
}

// CreateSlot registers a new parking slot.
func (h *Handler) CreateSlot(ctx context.Context, cmd CreateSlot) (*slot.Slot, error) {
	s := slot.New()
	if err := s.Create(uuid.New().String(), cmd.Name, cmd.SiteID, cmd.FloorID, cmd.ZoneID, cmd.SlotNumber, cmd.VehicleType); err != nil {
		return nil, err
	}

	if err := h.commit(ctx, s, slot.AggregateType, 0); err != nil {
		return nil, err
	}

	h.log.Info("slot created",
		slog.String("slot_id", s.ID),
		slog.String("site_id", s.SiteID),
	)
	return s, nil
}

// CreateUser registers a new user account.
func (h *Handler) CreateUser(ctx context.Context, cmd CreateUser) (*user.User, error) {
	u := user.New()
	if err := u.Create(uuid.New().String(), cmd.Name, cmd.Email); err != nil {
		return nil, err
	}

	if err := h.commit(ctx, u, user.AggregateType, 0); err != nil {
		return nil, err
	}

	h.log.Info("user created", slog.String("user_id", u.ID))
	return u, nil
}

// commit persists the aggregate's uncommitted events at expectedVersion,
// publishes them in order, and takes a best-effort snapshot when the new
// version crosses the snapshot frequency. A command that produced no
// events is a successful no-op: nothing is appended or published.
func (h *Handler) commit(ctx context.Context, agg aggregate.Aggregate, aggregateType string, expectedVersion int) error {
	events := agg.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	stored, err := h.eventStore.Append(ctx, agg.GetID(), aggregateType, events, expectedVersion)
	if err != nil {
		if errors.Is(err, store.ErrConcurrencyConflict) {
			return errs.Mark(err, errs.ErrConflict)
		}
		return errs.Mark(errs.Wrap(err, "failed to append events"), errs.ErrStoreUnavailable)
	}

	if h.publisher != nil {
		for _, event := range stored {
			if err := h.publisher.Publish(ctx, event); err != nil {
				// The events are durably stored; only delivery failed.
				return errs.Mark(errs.Wrap(err, "failed to publish event"), errs.ErrBrokerUnavailable)
			}
		}
	}

	agg.ClearUncommittedEvents()
	h.maybeSnapshot(ctx, agg, aggregateType)
	return nil
}

// maybeSnapshot saves a snapshot of the post-command state. Snapshots are
// a pure optimization: failures are logged and swallowed, never failing
// the command.
func (h *Handler) maybeSnapshot(ctx context.Context, agg aggregate.Aggregate, aggregateType string) {
	if h.snapshotFrequency <= 0 || agg.GetVersion()%h.snapshotFrequency != 0 {
		return
	}

	snapshot, err := aggregate.TakeSnapshot(agg, aggregateType)
	if err != nil {
		h.log.Warn("snapshot skipped",
			slog.String("aggregate_id", agg.GetID()),
			slog.Any("error", err),
		)
		return
	}
	if err := h.snapshotStore.Save(ctx, snapshot); err != nil {
		h.log.Warn("snapshot save failed",
			slog.String("aggregate_id", agg.GetID()),
			slog.Int("version", snapshot.Version),
			slog.Any("error", err),
		)
	}
}
