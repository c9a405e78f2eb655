package query

import (
	"log/slog"
	"sort"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
	"github.com/example/parking-event-driven/internal/readmodel"
)

type Handler struct {
	readStore store.ReadStoreInterface
	log       *slog.Logger
}

func NewHandler(readStore store.ReadStoreInterface, logger *slog.Logger) *Handler {
	return &Handler{readStore: readStore, log: logger}
}

// Reservations
func (h *Handler) GetReservation(id string) (*readmodel.ReservationReadModel, bool) {
	data, ok, err := h.readStore.Get(store.CollectionReservations, id)
	if err != nil {
		h.log.Error("failed to get reservation", slog.String("id", id), slog.Any("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*readmodel.ReservationReadModel), true
}

func (h *Handler) ListReservationsByUser(userID string) []*readmodel.ReservationReadModel {
	items, err := h.readStore.GetAll(store.CollectionReservations)
	if err != nil {
		h.log.Error("failed to list reservations", slog.Any("error", err))
		return nil
	}
	reservations := make([]*readmodel.ReservationReadModel, 0)
	for _, item := range items {
		r := item.(*readmodel.ReservationReadModel)
		if r.UserID == userID {
			reservations = append(reservations, r)
		}
	}
	return reservations
}

// Slots
func (h *Handler) GetSlot(id string) (*readmodel.SlotReadModel, bool) {
	data, ok, err := h.readStore.Get(store.CollectionSlots, id)
	if err != nil {
		h.log.Error("failed to get slot", slog.String("id", id), slog.Any("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*readmodel.SlotReadModel), true
}

func (h *Handler) ListSlotsBySite(siteID string) []*readmodel.SlotReadModel {
	items, err := h.readStore.GetAll(store.CollectionSlots)
	if err != nil {
		h.log.Error("failed to list slots", slog.Any("error", err))
		return nil
	}
	slots := make([]*readmodel.SlotReadModel, 0)
	for _, item := range items {
		s := item.(*readmodel.SlotReadModel)
		if s.SiteID == siteID {
			slots = append(slots, s)
		}
	}
	return slots
}

// Users
func (h *Handler) GetUser(id string) (*readmodel.UserReadModel, bool) {
	data, ok, err := h.readStore.Get(store.CollectionUsers, id)
	if err != nil {
		h.log.Error("failed to get user", slog.String("id", id), slog.Any("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return data.(*readmodel.UserReadModel), true
}

// History returns the audit trail for one aggregate, oldest first.
func (h *Handler) GetHistory(aggregateID string) []*readmodel.HistoryEntry {
	items, err := h.readStore.GetAll(store.CollectionHistory)
	if err != nil {
		h.log.Error("failed to list history", slog.Any("error", err))
		return nil
	}
	entries := make([]*readmodel.HistoryEntry, 0)
	for _, item := range items {
		e := item.(*readmodel.HistoryEntry)
		if e.AggregateID == aggregateID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Version < entries[j].Version
	})
	return entries
}
