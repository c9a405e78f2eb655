package mocks

import (
	"context"
	"sync"

	"github.com/example/parking-event-driven/internal/infrastructure/store"
)

// MockSnapshotStore is an in-memory SnapshotStoreInterface for testing
type MockSnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*store.Snapshot

	// For tracking calls in tests
	SaveCalls []store.Snapshot
	SaveErr   error
	LoadErr   error
}

// NewMockSnapshotStore creates a new MockSnapshotStore
func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{
		snapshots: make(map[string]*store.Snapshot),
		SaveCalls: make([]store.Snapshot, 0),
	}
}

// Save stores a snapshot, keeping the highest version like the real backends
func (m *MockSnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls = append(m.SaveCalls, *snapshot)

	if m.SaveErr != nil {
		return m.SaveErr
	}

	if existing, ok := m.snapshots[snapshot.AggregateID]; ok && existing.Version >= snapshot.Version {
		return nil
	}
	cp := *snapshot
	m.snapshots[snapshot.AggregateID] = &cp
	return nil
}

// Load returns the stored snapshot, or nil when none exists
func (m *MockSnapshotStore) Load(ctx context.Context, aggregateID string) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}

	snapshot, ok := m.snapshots[aggregateID]
	if !ok {
		return nil, nil
	}
	cp := *snapshot
	return &cp, nil
}

// SetSnapshot places a snapshot directly for testing
func (m *MockSnapshotStore) SetSnapshot(snapshot *store.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *snapshot
	m.snapshots[snapshot.AggregateID] = &cp
}

// Reset clears all snapshots and recorded calls
func (m *MockSnapshotStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = make(map[string]*store.Snapshot)
	m.SaveCalls = make([]store.Snapshot, 0)
	m.SaveErr = nil
	m.LoadErr = nil
}
