package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Snapshot represents a point-in-time state of an aggregate. At most one
// live snapshot exists per aggregate; a snapshot is a pure optimization
// and loading always re-applies events with a version greater than the
// snapshot's recorded version.
type Snapshot struct {
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"` // Event version at snapshot time
	State         json.RawMessage `json:"state"`   // Serialized aggregate state
	CreatedAt     time.Time       `json:"created_at"`
}

// SnapshotStoreInterface defines snapshot persistence. Save upserts keyed
// by aggregate id with compare-and-swap on version: a snapshot older than
// the stored one is silently discarded, so racing writers cannot replace a
// newer snapshot with a stale one. Load returns nil when no snapshot exists.
type SnapshotStoreInterface interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, aggregateID string) (*Snapshot, error)
}

// SnapshotStore is an in-memory snapshot store.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]*Snapshot),
	}
}

// Save upserts the snapshot unless a newer one is already stored.
func (ss *SnapshotStore) Save(ctx context.Context, snapshot *Snapshot) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if existing, ok := ss.snapshots[snapshot.AggregateID]; ok && existing.Version >= snapshot.Version {
		return nil
	}
	ss.snapshots[snapshot.AggregateID] = snapshot
	return nil
}

// Load returns the latest snapshot for an aggregate, or nil if none exists.
func (ss *SnapshotStore) Load(ctx context.Context, aggregateID string) (*Snapshot, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	snapshot, ok := ss.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	return snapshot, nil
}

var _ SnapshotStoreInterface = (*SnapshotStore)(nil)
