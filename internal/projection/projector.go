// Package projection folds the event stream into the read models. Each
// projector instance owns its read store exclusively; the writer side is
// never affected by projection failures.
package projection

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/example/parking-event-driven/internal/domain/reservation"
	"github.com/example/parking-event-driven/internal/domain/slot"
	"github.com/example/parking-event-driven/internal/domain/user"
	"github.com/example/parking-event-driven/internal/errs"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/example/parking-event-driven/internal/readmodel"
)

type Projector struct {
	readStore store.ReadStoreInterface
	log       *slog.Logger
}

func NewProjector(readStore store.ReadStoreInterface, logger *slog.Logger) *Projector {
	return &Projector{readStore: readStore, log: logger}
}

// HandleEvent applies one delivered event to the detail read model and the
// history trail, all-or-nothing: an error from either applier fails the
// whole delivery (the consumer nacks), and nothing is acked until both
// succeeded. Events of unknown aggregate or event type fail closed: they
// are logged and skipped, never guessed at.
//
// Appliers are idempotent upserts keyed by the identity carried in the
// event, so at-least-once redelivery converges to the same read model.
func (p *Projector) HandleEvent(ctx context.Context, event store.Event) error {
	p.log.Debug("event received",
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
		slog.Int("version", event.Version),
	)

	var err error
	switch event.AggregateType {
	case reservation.AggregateType:
		err = p.applyReservationEvent(event)
	case slot.AggregateType:
		err = p.applySlotEvent(event)
	case user.AggregateType:
		err = p.applyUserEvent(event)
	default:
		p.log.Warn("unknown aggregate type skipped",
			slog.String("aggregate_type", event.AggregateType),
			slog.String("event_type", event.EventType),
		)
		return nil
	}
	if err != nil {
		return errs.Mark(err, errs.ErrProjection)
	}

	if err := p.applyHistory(event); err != nil {
		return errs.Mark(err, errs.ErrProjection)
	}
	return nil
}

func (p *Projector) applyReservationEvent(event store.Event) error {
	switch event.EventType {
	case reservation.EventReservationCreated:
		var e reservation.ReservationCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Set(store.CollectionReservations, e.ReservationID, &readmodel.ReservationReadModel{
			ID:          e.ReservationID,
			UserID:      e.UserID,
			SlotID:      e.SlotID,
			SiteID:      e.SiteID,
			StartDate:   e.StartDate,
			StartTime:   e.StartTime,
			EndDate:     e.EndDate,
			EndTime:     e.EndTime,
			UTCOffset:   e.UTCOffset,
			VehicleType: e.VehicleType,
			Status:      e.Status,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.CreatedAt,
		})

	case reservation.EventReservationStatusUpdated:
		var e reservation.ReservationStatusUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		updated, err := p.readStore.Update(store.CollectionReservations, e.ReservationID, func(current any) any {
			r := current.(*readmodel.ReservationReadModel)
			r.Status = e.Status
			r.UpdatedAt = e.UpdatedAt
			return r
		})
		if err != nil {
			return err
		}
		if !updated {
			// The create event has not been seen yet. Keep a stub row so
			// the status survives out-of-order-looking delivery.
			return p.readStore.Set(store.CollectionReservations, e.ReservationID, &readmodel.ReservationReadModel{
				ID:        e.ReservationID,
				Status:    e.Status,
				UpdatedAt: e.UpdatedAt,
			})
		}
		return nil

	default:
		p.log.Warn("unknown reservation event skipped", slog.String("event_type", event.EventType))
		return nil
	}
}

func (p *Projector) applySlotEvent(event store.Event) error {
	switch event.EventType {
	case slot.EventSlotCreated:
		var e slot.SlotCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Set(store.CollectionSlots, e.SlotID, &readmodel.SlotReadModel{
			ID:          e.SlotID,
			Name:        e.Name,
			SiteID:      e.SiteID,
			FloorID:     e.FloorID,
			ZoneID:      e.ZoneID,
			SlotNumber:  e.SlotNumber,
			VehicleType: e.VehicleType,
			Status:      e.Status,
			CreatedAt:   e.CreatedAt,
		})

	default:
		p.log.Warn("unknown slot event skipped", slog.String("event_type", event.EventType))
		return nil
	}
}

func (p *Projector) applyUserEvent(event store.Event) error {
	switch event.EventType {
	case user.EventUserCreated:
		var e user.UserCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Set(store.CollectionUsers, e.UserID, &readmodel.UserReadModel{
			ID:        e.UserID,
			Name:      e.Name,
			Email:     e.Email,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
		})

	default:
		p.log.Warn("unknown user event skipped", slog.String("event_type", event.EventType))
		return nil
	}
}

// applyHistory records the delivered event in the audit trail. It uses the
// event exactly as delivered — never a re-read of the log, which could
// observe a different "latest" event under concurrent writers. Keying by
// event id makes redelivery overwrite the same row.
func (p *Projector) applyHistory(event store.Event) error {
	return p.readStore.Set(store.CollectionHistory, event.ID, &readmodel.HistoryEntry{
		EventID:       event.ID,
		AggregateID:   event.AggregateID,
		AggregateType: event.AggregateType,
		EventType:     event.EventType,
		Version:       event.Version,
		Data:          event.Data,
		OccurredAt:    event.Timestamp,
	})
}
