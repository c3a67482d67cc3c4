package entity

import (
	"context"
	"sync"

	id "burogate/pkg/domain"
)

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.EntityID]*Entity
	byTaxID map[id.TaxID]*Entity
	lastID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.EntityID]*Entity),
		byTaxID: make(map[id.TaxID]*Entity),
	}
}

// Seed registers an entity, assigning an ID when none is set.
func (s *InMemoryStore) Seed(e *Entity) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == 0 {
		s.lastID++
		e.ID = id.EntityID(s.lastID)
	}
	cp := *e
	s.byID[cp.ID] = &cp
	s.byTaxID[cp.TaxID] = &cp
	return e
}

func (s *InMemoryStore) FindByID(_ context.Context, entityID id.EntityID) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.byID[entityID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (s *InMemoryStore) FindByTaxID(_ context.Context, taxID id.TaxID) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.byTaxID[taxID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}
