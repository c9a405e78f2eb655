package store

import (
	"context"
	"database/sql"
)

// PostgresSnapshotStore keeps one snapshot row per aggregate.
type PostgresSnapshotStore struct {
	db *sql.DB
}

func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// Save upserts the snapshot. The WHERE clause on the conflict update is the
// compare-and-swap: a stale snapshot racing a newer one is discarded.
func (ss *PostgresSnapshotStore) Save(ctx context.Context, snapshot *Snapshot) error {
	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO snapshots (aggregate_id, aggregate_type, version, state, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (aggregate_id) DO UPDATE
		 SET aggregate_type = EXCLUDED.aggregate_type,
		     version = EXCLUDED.version,
		     state = EXCLUDED.state,
		     created_at = EXCLUDED.created_at
		 WHERE snapshots.version < EXCLUDED.version`,
		snapshot.AggregateID, snapshot.AggregateType, snapshot.Version,
		[]byte(snapshot.State), snapshot.CreatedAt,
	)
	return err
}

// Load returns the latest snapshot for an aggregate, or nil if none exists.
func (ss *PostgresSnapshotStore) Load(ctx context.Context, aggregateID string) (*Snapshot, error) {
	var s Snapshot
	err := ss.db.QueryRowContext(ctx,
		`SELECT aggregate_id, aggregate_type, version, state, created_at
		 FROM snapshots
		 WHERE aggregate_id = $1`,
		aggregateID,
	).Scan(&s.AggregateID, &s.AggregateType, &s.Version, &s.State, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

var _ SnapshotStoreInterface = (*PostgresSnapshotStore)(nil)
