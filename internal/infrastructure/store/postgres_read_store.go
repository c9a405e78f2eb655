package store

import (
	"database/sql"
	"fmt"

	"github.com/example/parking-event-driven/internal/readmodel"
)

// PostgresReadStore implements ReadStoreInterface on the read_* tables.
// Every write is an upsert keyed by the model's domain identity, so
// replaying or redelivering an event converges to the same row.
type PostgresReadStore struct {
	db *sql.DB
}

func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// Set stores a read model
func (rs *PostgresReadStore) Set(collection, id string, data any) error {
	switch collection {
	case CollectionReservations:
		return rs.setReservation(id, data.(*readmodel.ReservationReadModel))
	case CollectionSlots:
		return rs.setSlot(id, data.(*readmodel.SlotReadModel))
	case CollectionUsers:
		return rs.setUser(id, data.(*readmodel.UserReadModel))
	case CollectionHistory:
		return rs.setHistory(id, data.(*readmodel.HistoryEntry))
	}
	return fmt.Errorf("unknown collection: %s", collection)
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(collection, id string) (any, bool, error) {
	switch collection {
	case CollectionReservations:
		return rs.getReservation(id)
	case CollectionSlots:
		return rs.getSlot(id)
	case CollectionUsers:
		return rs.getUser(id)
	case CollectionHistory:
		return rs.getHistory(id)
	}
	return nil, false, fmt.Errorf("unknown collection: %s", collection)
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(collection string) ([]any, error) {
	switch collection {
	case CollectionReservations:
		return rs.getAllReservations()
	case CollectionSlots:
		return rs.getAllSlots()
	case CollectionUsers:
		return rs.getAllUsers()
	case CollectionHistory:
		return rs.getAllHistory()
	}
	return nil, fmt.Errorf("unknown collection: %s", collection)
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(collection, id string) error {
	table, key, err := tableFor(collection)
	if err != nil {
		return err
	}
	_, err = rs.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, key), id)
	return err
}

// Update modifies a read model using an update function
func (rs *PostgresReadStore) Update(collection, id string, updateFn func(current any) any) (bool, error) {
	current, ok, err := rs.Get(collection, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := rs.Set(collection, id, updateFn(current)); err != nil {
		return false, err
	}
	return true, nil
}

func tableFor(collection string) (table, key string, err error) {
	switch collection {
	case CollectionReservations:
		return "read_reservations", "id", nil
	case CollectionSlots:
		return "read_slots", "id", nil
	case CollectionUsers:
		return "read_users", "id", nil
	case CollectionHistory:
		return "read_history", "event_id", nil
	}
	return "", "", fmt.Errorf("unknown collection: %s", collection)
}

func (rs *PostgresReadStore) setReservation(id string, r *readmodel.ReservationReadModel) error {
	_, err := rs.db.Exec(
		`INSERT INTO read_reservations
		   (id, user_id, slot_id, site_id, start_date, start_time, end_date, end_time,
		    utc_offset, vehicle_type, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE
		 SET user_id = EXCLUDED.user_id, slot_id = EXCLUDED.slot_id,
		     site_id = EXCLUDED.site_id, start_date = EXCLUDED.start_date,
		     start_time = EXCLUDED.start_time, end_date = EXCLUDED.end_date,
		     end_time = EXCLUDED.end_time, utc_offset = EXCLUDED.utc_offset,
		     vehicle_type = EXCLUDED.vehicle_type, status = EXCLUDED.status,
		     created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`,
		id, r.UserID, r.SlotID, r.SiteID, r.StartDate, r.StartTime, r.EndDate, r.EndTime,
		r.UTCOffset, r.VehicleType, r.Status, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (rs *PostgresReadStore) getReservation(id string) (any, bool, error) {
	r := &readmodel.ReservationReadModel{}
	err := rs.db.QueryRow(
		`SELECT id, user_id, slot_id, site_id, start_date, start_time, end_date, end_time,
		        utc_offset, vehicle_type, status, created_at, updated_at
		 FROM read_reservations WHERE id = $1`, id,
	).Scan(&r.ID, &r.UserID, &r.SlotID, &r.SiteID, &r.StartDate, &r.StartTime, &r.EndDate,
		&r.EndTime, &r.UTCOffset, &r.VehicleType, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (rs *PostgresReadStore) getAllReservations() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, user_id, slot_id, site_id, start_date, start_time, end_date, end_time,
		        utc_offset, vehicle_type, status, created_at, updated_at
		 FROM read_reservations ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		r := &readmodel.ReservationReadModel{}
		if err := rows.Scan(&r.ID, &r.UserID, &r.SlotID, &r.SiteID, &r.StartDate, &r.StartTime,
			&r.EndDate, &r.EndTime, &r.UTCOffset, &r.VehicleType, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (rs *PostgresReadStore) setSlot(id string, s *readmodel.SlotReadModel) error {
	_, err := rs.db.Exec(
		`INSERT INTO read_slots
		   (id, name, site_id, floor_id, zone_id, slot_number, vehicle_type, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, site_id = EXCLUDED.site_id, floor_id = EXCLUDED.floor_id,
		     zone_id = EXCLUDED.zone_id, slot_number = EXCLUDED.slot_number,
		     vehicle_type = EXCLUDED.vehicle_type, status = EXCLUDED.status,
		     created_at = EXCLUDED.created_at`,
		id, s.Name, s.SiteID, s.FloorID, s.ZoneID, s.SlotNumber, s.VehicleType, s.Status, s.CreatedAt,
	)
	return err
}

func (rs *PostgresReadStore) getSlot(id string) (any, bool, error) {
	s := &readmodel.SlotReadModel{}
	err := rs.db.QueryRow(
		`SELECT id, name, site_id, floor_id, zone_id, slot_number, vehicle_type, status, created_at
		 FROM read_slots WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.SiteID, &s.FloorID, &s.ZoneID, &s.SlotNumber, &s.VehicleType, &s.Status, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (rs *PostgresReadStore) getAllSlots() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, name, site_id, floor_id, zone_id, slot_number, vehicle_type, status, created_at
		 FROM read_slots ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		s := &readmodel.SlotReadModel{}
		if err := rows.Scan(&s.ID, &s.Name, &s.SiteID, &s.FloorID, &s.ZoneID, &s.SlotNumber,
			&s.VehicleType, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (rs *PostgresReadStore) setUser(id string, u *readmodel.UserReadModel) error {
	_, err := rs.db.Exec(
		`INSERT INTO read_users (id, name, email, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, email = EXCLUDED.email,
		     status = EXCLUDED.status, created_at = EXCLUDED.created_at`,
		id, u.Name, u.Email, u.Status, u.CreatedAt,
	)
	return err
}

func (rs *PostgresReadStore) getUser(id string) (any, bool, error) {
	u := &readmodel.UserReadModel{}
	err := rs.db.QueryRow(
		`SELECT id, name, email, status, created_at FROM read_users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Status, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (rs *PostgresReadStore) getAllUsers() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT id, name, email, status, created_at FROM read_users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		u := &readmodel.UserReadModel{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Status, &u.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (rs *PostgresReadStore) setHistory(eventID string, h *readmodel.HistoryEntry) error {
	_, err := rs.db.Exec(
		`INSERT INTO read_history
		   (event_id, aggregate_id, aggregate_type, event_type, version, data, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (event_id) DO UPDATE
		 SET aggregate_id = EXCLUDED.aggregate_id, aggregate_type = EXCLUDED.aggregate_type,
		     event_type = EXCLUDED.event_type, version = EXCLUDED.version,
		     data = EXCLUDED.data, occurred_at = EXCLUDED.occurred_at`,
		eventID, h.AggregateID, h.AggregateType, h.EventType, h.Version, []byte(h.Data), h.OccurredAt,
	)
	return err
}

func (rs *PostgresReadStore) getHistory(eventID string) (any, bool, error) {
	h := &readmodel.HistoryEntry{}
	err := rs.db.QueryRow(
		`SELECT event_id, aggregate_id, aggregate_type, event_type, version, data, occurred_at
		 FROM read_history WHERE event_id = $1`, eventID,
	).Scan(&h.EventID, &h.AggregateID, &h.AggregateType, &h.EventType, &h.Version, &h.Data, &h.OccurredAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return h, true, nil
}

func (rs *PostgresReadStore) getAllHistory() ([]any, error) {
	rows, err := rs.db.Query(
		`SELECT event_id, aggregate_id, aggregate_type, event_type, version, data, occurred_at
		 FROM read_history ORDER BY occurred_at ASC, version ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		h := &readmodel.HistoryEntry{}
		if err := rows.Scan(&h.EventID, &h.AggregateID, &h.AggregateType, &h.EventType,
			&h.Version, &h.Data, &h.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

var _ ReadStoreInterface = (*PostgresReadStore)(nil)
