package scoring

import (
	"context"
	"sync"

	id "burogate/pkg/domain"
)

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots []Snapshot
	lastID    int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AppendSnapshot(_ context.Context, snapshot Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	snapshot.ID = s.lastID
	s.snapshots = append(s.snapshots, snapshot)
	return snapshot, nil
}

func (s *InMemoryStore) ListSnapshots(_ context.Context, entityID id.EntityID, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0)
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if s.snapshots[i].EntityID == entityID {
			out = append(out, s.snapshots[i])
		}
	}
	return out, nil
}

func (s *InMemoryStore) LatestSnapshot(_ context.Context, entityID id.EntityID) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].EntityID == entityID {
			found := s.snapshots[i]
			return &found, nil
		}
	}
	return nil, nil
}
