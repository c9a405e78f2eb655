package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// OutboxEntry is an event awaiting publication by the relay. Rows are
// written in the same transaction as their event, so every committed event
// has exactly one outbox row.
type OutboxEntry struct {
	ID    int64
	Event Event
}

// OutboxStoreInterface is consumed by the outbox relay.
type OutboxStoreInterface interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// PostgresOutboxStore reads and settles outbox rows.
type PostgresOutboxStore struct {
	db *sql.DB
}

func NewPostgresOutboxStore(db *sql.DB) *PostgresOutboxStore {
	return &PostgresOutboxStore{db: db}
}

// FetchUnpublished returns up to limit rows not yet published, oldest first.
func (os *PostgresOutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	rows, err := os.db.QueryContext(ctx,
		`SELECT id, event_id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM outbox
		 WHERE published_at IS NULL
		 ORDER BY id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		e := &entry.Event
		if err := rows.Scan(&entry.ID, &e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Data, &e.Version, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkPublished stamps the rows as sent.
func (os *PostgresOutboxStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := os.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2)`,
		time.Now(), pq.Array(ids),
	)
	return err
}

var _ OutboxStoreInterface = (*PostgresOutboxStore)(nil)
