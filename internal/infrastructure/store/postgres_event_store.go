package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresEventStore stores events in PostgreSQL.
//
// Append runs as a single transaction: the aggregate's version pointer row
// is advanced with a guarded UPDATE (WHERE version = expected), the event
// rows are inserted, and outbox rows are written alongside when the store
// was built with outbox support. The guard and the write commit together,
// so concurrent appends against the same aggregate resolve at the store.
// A unique constraint on (aggregate_id, version) backs the guard up.
type PostgresEventStore struct {
	db          *sql.DB
	writeOutbox bool
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// NewPostgresEventStoreWithOutbox returns a store that writes an outbox row
// for every appended event in the same transaction. A relay publishes the
// rows and marks them sent, closing the store-then-publish gap.
func NewPostgresEventStoreWithOutbox(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db, writeOutbox: true}
}

// Append stores events iff the aggregate's current version equals expectedVersion.
func (es *PostgresEventStore) Append(ctx context.Context, aggregateID, aggregateType string, events []EventData, expectedVersion int) ([]Event, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	tx, err := es.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	newVersion := expectedVersion + len(events)
	latestEventData := events[len(events)-1].Data

	// Advance the version pointer under the expected-version guard.
	var res sql.Result
	if expectedVersion == 0 {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO aggregates (aggregate_id, aggregate_type, version, latest_event_data)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (aggregate_id) DO NOTHING`,
			aggregateID, aggregateType, newVersion, []byte(latestEventData),
		)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE aggregates
			 SET version = $1, latest_event_data = $2
			 WHERE aggregate_id = $3 AND version = $4`,
			newVersion, []byte(latestEventData), aggregateID, expectedVersion,
		)
	}
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrConcurrencyConflict
	}

	stored := make([]Event, 0, len(events))
	for i, e := range events {
		event := Event{
			ID:            uuid.New().String(),
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			EventType:     e.EventType,
			Data:          e.Data,
			Timestamp:     time.Now(),
			Version:       expectedVersion + i + 1,
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			event.ID, event.AggregateID, event.AggregateType, event.EventType,
			[]byte(event.Data), event.Version, event.Timestamp,
		)
		if err != nil {
			return nil, err
		}

		if es.writeOutbox {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO outbox (event_id, aggregate_id, aggregate_type, event_type, data, version, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				event.ID, event.AggregateID, event.AggregateType, event.EventType,
				[]byte(event.Data), event.Version, event.Timestamp,
			)
			if err != nil {
				return nil, err
			}
		}

		stored = append(stored, event)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// GetEvents returns all events for an aggregate ordered by version ascending.
func (es *PostgresEventStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	rows, err := es.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 WHERE aggregate_id = $1
		 ORDER BY version ASC`,
		aggregateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetEventsAfterVersion returns events with a version greater than version,
// ordered by version ascending. Used after loading a snapshot.
func (es *PostgresEventStore) GetEventsAfterVersion(ctx context.Context, aggregateID string, version int) ([]Event, error) {
	rows, err := es.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 WHERE aggregate_id = $1 AND version > $2
		 ORDER BY version ASC`,
		aggregateID, version,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetAllEvents returns all events ordered by creation time, for startup replay.
func (es *PostgresEventStore) GetAllEvents(ctx context.Context) ([]Event, error) {
	rows, err := es.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Data, &e.Version, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

var _ EventStoreInterface = (*PostgresEventStore)(nil)
