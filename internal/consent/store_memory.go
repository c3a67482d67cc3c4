package consent

import (
	"context"
	"sync"
	"time"

	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
)

// InMemoryStore backs tests and local development. A single mutex guards both
// consent kinds so the create-exclusivity check and the insert are atomic.
type InMemoryStore struct {
	mu           sync.RWMutex
	entityByID   map[id.ConsentID]EntityConsent
	queryByID    map[id.ConsentID]QueryConsent
	lastEntityID int64
	lastQueryID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entityByID: make(map[id.ConsentID]EntityConsent),
		queryByID:  make(map[id.ConsentID]QueryConsent),
	}
}

func (s *InMemoryStore) CreateEntityConsent(_ context.Context, c EntityConsent, now time.Time) (EntityConsent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entityByID {
		if existing.EntityID == c.EntityID && existing.IsActive(now) {
			return EntityConsent{}, dErrors.New(dErrors.CodeConflict, "entity already has an active consent")
		}
	}
	s.lastEntityID++
	c.ID = id.ConsentID(s.lastEntityID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	s.entityByID[c.ID] = c
	return c, nil
}

func (s *InMemoryStore) GetEntityConsent(_ context.Context, consentID id.ConsentID) (*EntityConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entityByID[consentID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *InMemoryStore) FindActiveEntityConsent(_ context.Context, entityID id.EntityID, now time.Time) (*EntityConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.entityByID {
		if c.EntityID == entityID && c.IsActive(now) {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) RevokeEntityConsent(_ context.Context, consentID id.ConsentID, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entityByID[consentID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	c.Revoked = true
	c.RevokedAt = &revokedAt
	s.entityByID[consentID] = c
	return nil
}

func (s *InMemoryStore) ExtendEntityConsent(_ context.Context, consentID id.ConsentID, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entityByID[consentID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	c.Expiry = expiry
	s.entityByID[consentID] = c
	return nil
}

func (s *InMemoryStore) CreateQueryConsent(_ context.Context, c QueryConsent) (QueryConsent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQueryID++
	c.ID = id.ConsentID(s.lastQueryID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.Start
	}
	s.queryByID[c.ID] = c
	return c, nil
}

func (s *InMemoryStore) GetQueryConsent(_ context.Context, consentID id.ConsentID) (*QueryConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.queryByID[consentID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *InMemoryStore) FindActiveQueryConsent(_ context.Context, titularID, consultantID id.EntityID, now time.Time) (*QueryConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *QueryConsent
	for _, c := range s.queryByID {
		if c.TitularID != titularID || c.ConsultantID != consultantID || !c.IsActive(now) {
			continue
		}
		if best == nil || c.Expiry.After(best.Expiry) {
			found := c
			best = &found
		}
	}
	return best, nil
}

func (s *InMemoryStore) ListQueryConsentsByTitular(_ context.Context, titularID id.EntityID) ([]QueryConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectQueryConsents(func(c QueryConsent) bool { return c.TitularID == titularID }), nil
}

func (s *InMemoryStore) ListQueryConsentsByConsultant(_ context.Context, consultantID id.EntityID) ([]QueryConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectQueryConsents(func(c QueryConsent) bool { return c.ConsultantID == consultantID }), nil
}

func (s *InMemoryStore) collectQueryConsents(match func(QueryConsent) bool) []QueryConsent {
	out := make([]QueryConsent, 0)
	for _, c := range s.queryByID {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *InMemoryStore) RevokeQueryConsent(_ context.Context, consentID id.ConsentID, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.queryByID[consentID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	c.Revoked = true
	c.RevokedAt = &revokedAt
	s.queryByID[consentID] = c
	return nil
}

func (s *InMemoryStore) ExtendQueryConsent(_ context.Context, consentID id.ConsentID, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.queryByID[consentID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	c.Expiry = expiry
	s.queryByID[consentID] = c
	return nil
}

func (s *InMemoryStore) RecordQueryConsentUsage(_ context.Context, consentID id.ConsentID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.queryByID[consentID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	c.QueriesPerformed++
	c.LastUsedAt = &usedAt
	s.queryByID[consentID] = c
	return nil
}
