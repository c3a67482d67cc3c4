package querylog

import (
	"context"
	"sync"

	id "burogate/pkg/domain"
)

// InMemoryStore backs unit tests and local development. Entries keep insertion
// order; lists return newest first like the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []QueryLog
	lastID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry QueryLog) (QueryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	entry.ID = s.lastID
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *InMemoryStore) ListByConsultant(_ context.Context, consultantID id.EntityID, limit int) ([]QueryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(e QueryLog) bool { return e.ConsultantID == consultantID }, limit), nil
}

func (s *InMemoryStore) ListByTitular(_ context.Context, titularID id.EntityID, limit int) ([]QueryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(e QueryLog) bool { return e.TitularID == titularID }, limit), nil
}

func (s *InMemoryStore) collect(match func(QueryLog) bool, limit int) []QueryLog {
	out := make([]QueryLog, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if match(s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out
}
