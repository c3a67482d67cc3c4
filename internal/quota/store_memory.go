package quota

import (
	"context"
	"sync"
	"time"

	id "burogate/pkg/domain"
)

type counterKey struct {
	entityID    id.EntityID
	periodStart time.Time
}

// InMemoryStore backs unit tests and local development. The mutex gives the
// same read-modify-write atomicity the postgres upsert provides.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[counterKey]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counters: make(map[counterKey]int)}
}

func (s *InMemoryStore) GetUsage(_ context.Context, entityID id.EntityID, periodStart time.Time) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Usage{
		EntityID:         entityID,
		PeriodStart:      periodStart,
		QueriesPerformed: s.counters[counterKey{entityID, periodStart}],
	}, nil
}

func (s *InMemoryStore) IncrementUsage(_ context.Context, entityID id.EntityID, periodStart time.Time) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey{entityID, periodStart}
	s.counters[key]++
	return Usage{
		EntityID:         entityID,
		PeriodStart:      periodStart,
		QueriesPerformed: s.counters[key],
	}, nil
}
