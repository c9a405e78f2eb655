// Package notification is an independent consumer of the event stream.
// It runs off its own queue, so it and the projector can be at different
// points in the stream without affecting each other.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/parking-event-driven/internal/domain/reservation"
	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/example/parking-event-driven/internal/readmodel"
)

// Sender delivers one notice to a recipient. The transport (email, push,
// webhook) is an external collaborator.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender writes notices to the log. Default sender for environments
// without a delivery transport.
type LogSender struct {
	Log *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, recipient, subject, body string) error {
	s.Log.Info("notice",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

// Handler processes events for sending notifications
type Handler struct {
	sender    Sender
	readStore store.ReadStoreInterface
	log       *slog.Logger
}

func NewHandler(sender Sender, readStore store.ReadStoreInterface, logger *slog.Logger) *Handler {
	return &Handler{
		sender:    sender,
		readStore: readStore,
		log:       logger,
	}
}

// HandleEvent notifies the reservation's owner about lifecycle events.
// Events outside the reservation aggregate are ignored.
func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case reservation.EventReservationCreated:
		return h.handleCreated(ctx, event)
	case reservation.EventReservationStatusUpdated:
		return h.handleStatusUpdated(ctx, event)
	}
	return nil
}

func (h *Handler) handleCreated(ctx context.Context, event store.Event) error {
	var e reservation.ReservationCreated
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.log.Error("failed to unmarshal ReservationCreated", slog.Any("error", err))
		return err
	}

	email, ok := h.lookupEmail(e.UserID)
	if !ok {
		// The user projection may lag behind; a missed notice is
		// acceptable, a stuck queue is not.
		h.log.Warn("user not found, notice skipped", slog.String("user_id", e.UserID))
		return nil
	}

	subject := "Reservation confirmed"
	body := fmt.Sprintf(
		"Your reservation %s for slot %s is booked from %s %s to %s %s (UTC%s).",
		e.ReservationID, e.SlotID, e.StartDate, e.StartTime, e.EndDate, e.EndTime, e.UTCOffset,
	)
	return h.sender.Send(ctx, email, subject, body)
}

func (h *Handler) handleStatusUpdated(ctx context.Context, event store.Event) error {
	var e reservation.ReservationStatusUpdated
	if err := json.Unmarshal(event.Data, &e); err != nil {
		h.log.Error("failed to unmarshal ReservationStatusUpdated", slog.Any("error", err))
		return err
	}

	data, ok, err := h.readStore.Get(store.CollectionReservations, e.ReservationID)
	if err != nil || !ok {
		h.log.Warn("reservation not found, notice skipped", slog.String("reservation_id", e.ReservationID))
		return nil
	}
	r := data.(*readmodel.ReservationReadModel)

	email, ok := h.lookupEmail(r.UserID)
	if !ok {
		h.log.Warn("user not found, notice skipped", slog.String("user_id", r.UserID))
		return nil
	}

	subject := fmt.Sprintf("Reservation %s", e.Status)
	body := fmt.Sprintf("Your reservation %s is now %s.", e.ReservationID, e.Status)
	return h.sender.Send(ctx, email, subject, body)
}

func (h *Handler) lookupEmail(userID string) (string, bool) {
	data, ok, err := h.readStore.Get(store.CollectionUsers, userID)
	if err != nil || !ok {
		return "", false
	}
	u, ok := data.(*readmodel.UserReadModel)
	if !ok {
		return "", false
	}
	return u.Email, true
}
