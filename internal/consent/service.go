package consent

import (
	"context"
	"log/slog"
	"time"

	"burogate/internal/entity"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

// EntityDirectory resolves the counterpart entity when a titular grants a
// query consent.
type EntityDirectory interface {
	FindByID(ctx context.Context, entityID id.EntityID) (*entity.Entity, error)
}

// Service owns the consent lifecycle: grant, read, revoke and renew, for both
// consent kinds. The authorization decision itself lives in Authorizer.
type Service struct {
	store    Store
	entities EntityDirectory
	logger   *slog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(store Store, entities EntityDirectory, opts ...ServiceOption) *Service {
	s := &Service{store: store, entities: entities, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSelfConsent records the caller's authorization for the platform to
// hold its data. At most one active self-consent may exist per entity; the
// store rejects overlapping grants with a conflict.
func (s *Service) CreateSelfConsent(ctx context.Context, caller id.EntityID, expiry time.Time) (EntityConsent, error) {
	now := requestcontext.Now(ctx)
	if !expiry.After(now) {
		return EntityConsent{}, dErrors.New(dErrors.CodeValidation, "expiry must be in the future")
	}
	created, err := s.store.CreateEntityConsent(ctx, EntityConsent{
		EntityID: caller,
		Start:    now,
		Expiry:   expiry,
	}, now)
	if err != nil {
		return EntityConsent{}, err
	}
	s.logger.InfoContext(ctx, "self consent created",
		"log_type", "audit",
		"entity_id", caller,
		"consent_id", created.ID,
		"expiry", created.Expiry)
	return created, nil
}

func (s *Service) GetSelfConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (EntityConsent, error) {
	c, err := s.store.GetEntityConsent(ctx, consentID)
	if err != nil {
		return EntityConsent{}, err
	}
	if c == nil {
		return EntityConsent{}, dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	if c.EntityID != caller {
		return EntityConsent{}, dErrors.New(dErrors.CodeForbidden, "consent belongs to another entity")
	}
	return *c, nil
}

func (s *Service) RevokeSelfConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (EntityConsent, error) {
	now := requestcontext.Now(ctx)
	c, err := s.GetSelfConsent(ctx, caller, consentID)
	if err != nil {
		return EntityConsent{}, err
	}
	if c.Revoked {
		return EntityConsent{}, dErrors.New(dErrors.CodeConflict, "consent is already revoked")
	}
	if err := s.store.RevokeEntityConsent(ctx, consentID, now); err != nil {
		return EntityConsent{}, err
	}
	c.Revoked = true
	c.RevokedAt = &now
	s.logger.InfoContext(ctx, "self consent revoked",
		"log_type", "audit",
		"entity_id", caller,
		"consent_id", consentID)
	return c, nil
}

// RenewSelfConsent extends an active consent. Expired and revoked consents
// cannot be renewed; the entity must grant a fresh one.
func (s *Service) RenewSelfConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID, expiry time.Time) (EntityConsent, error) {
	now := requestcontext.Now(ctx)
	c, err := s.GetSelfConsent(ctx, caller, consentID)
	if err != nil {
		return EntityConsent{}, err
	}
	if c.State(now) != StateActive {
		return EntityConsent{}, dErrors.New(dErrors.CodeConflict, "only an active consent can be renewed")
	}
	if !expiry.After(c.Expiry) {
		return EntityConsent{}, dErrors.New(dErrors.CodeValidation, "new expiry must extend the current one")
	}
	if err := s.store.ExtendEntityConsent(ctx, consentID, expiry); err != nil {
		return EntityConsent{}, err
	}
	c.Expiry = expiry
	s.logger.InfoContext(ctx, "self consent renewed",
		"log_type", "audit",
		"entity_id", caller,
		"consent_id", consentID,
		"expiry", expiry)
	return c, nil
}

// CreateQueryConsent lets the caller, acting as titular, authorize another
// entity to query its data. The grant becomes effective at midnight of the
// current day so a consent created mid-morning covers queries made earlier
// the same day during onboarding flows.
func (s *Service) CreateQueryConsent(ctx context.Context, titular, consultant id.EntityID, expiry time.Time) (QueryConsent, error) {
	now := requestcontext.Now(ctx)
	if consultant == titular {
		return QueryConsent{}, dErrors.New(dErrors.CodeValidation, "consultant must differ from titular")
	}
	counterpart, err := s.entities.FindByID(ctx, consultant)
	if err != nil {
		return QueryConsent{}, err
	}
	if counterpart == nil {
		return QueryConsent{}, dErrors.New(dErrors.CodeNotFound, "consultant entity not found")
	}
	if !counterpart.Active {
		return QueryConsent{}, dErrors.New(dErrors.CodeConflict, "consultant entity is inactive")
	}

	start := midnight(now)
	if !expiry.After(start) || !expiry.After(now) {
		return QueryConsent{}, dErrors.New(dErrors.CodeValidation, "expiry must be in the future")
	}

	created, err := s.store.CreateQueryConsent(ctx, QueryConsent{
		TitularID:    titular,
		ConsultantID: consultant,
		Start:        start,
		Expiry:       expiry,
		OriginIP:     requestcontext.ClientIP(ctx),
	})
	if err != nil {
		return QueryConsent{}, err
	}
	s.logger.InfoContext(ctx, "query consent created",
		"log_type", "audit",
		"titular_id", titular,
		"consultant_id", consultant,
		"consent_id", created.ID,
		"expiry", created.Expiry)
	return created, nil
}

// GetQueryConsent returns a consent visible to either party of the grant.
func (s *Service) GetQueryConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (QueryConsent, error) {
	c, err := s.store.GetQueryConsent(ctx, consentID)
	if err != nil {
		return QueryConsent{}, err
	}
	if c == nil {
		return QueryConsent{}, dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	if c.TitularID != caller && c.ConsultantID != caller {
		return QueryConsent{}, dErrors.New(dErrors.CodeForbidden, "consent does not involve the caller")
	}
	return *c, nil
}

// ListGrantedConsents returns the consents the caller issued as titular.
func (s *Service) ListGrantedConsents(ctx context.Context, caller id.EntityID) ([]QueryConsent, error) {
	return s.store.ListQueryConsentsByTitular(ctx, caller)
}

// ListReceivedConsents returns the consents granted to the caller as
// consultant.
func (s *Service) ListReceivedConsents(ctx context.Context, caller id.EntityID) ([]QueryConsent, error) {
	return s.store.ListQueryConsentsByConsultant(ctx, caller)
}

// RevokeQueryConsent withdraws a grant. Only the titular may revoke.
func (s *Service) RevokeQueryConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID) (QueryConsent, error) {
	now := requestcontext.Now(ctx)
	c, err := s.store.GetQueryConsent(ctx, consentID)
	if err != nil {
		return QueryConsent{}, err
	}
	if c == nil {
		return QueryConsent{}, dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	if c.TitularID != caller {
		return QueryConsent{}, dErrors.New(dErrors.CodeForbidden, "only the titular can revoke a query consent")
	}
	if c.Revoked {
		return QueryConsent{}, dErrors.New(dErrors.CodeConflict, "consent is already revoked")
	}
	if err := s.store.RevokeQueryConsent(ctx, consentID, now); err != nil {
		return QueryConsent{}, err
	}
	c.Revoked = true
	c.RevokedAt = &now
	s.logger.InfoContext(ctx, "query consent revoked",
		"log_type", "audit",
		"titular_id", c.TitularID,
		"consultant_id", c.ConsultantID,
		"consent_id", consentID)
	return *c, nil
}

// RenewQueryConsent extends an active grant. Only the titular may renew.
func (s *Service) RenewQueryConsent(ctx context.Context, caller id.EntityID, consentID id.ConsentID, expiry time.Time) (QueryConsent, error) {
	now := requestcontext.Now(ctx)
	c, err := s.store.GetQueryConsent(ctx, consentID)
	if err != nil {
		return QueryConsent{}, err
	}
	if c == nil {
		return QueryConsent{}, dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	if c.TitularID != caller {
		return QueryConsent{}, dErrors.New(dErrors.CodeForbidden, "only the titular can renew a query consent")
	}
	if c.State(now) != StateActive {
		return QueryConsent{}, dErrors.New(dErrors.CodeConflict, "only an active consent can be renewed")
	}
	if !expiry.After(c.Expiry) {
		return QueryConsent{}, dErrors.New(dErrors.CodeValidation, "new expiry must extend the current one")
	}
	if err := s.store.ExtendQueryConsent(ctx, consentID, expiry); err != nil {
		return QueryConsent{}, err
	}
	c.Expiry = expiry
	s.logger.InfoContext(ctx, "query consent renewed",
		"log_type", "audit",
		"titular_id", c.TitularID,
		"consultant_id", c.ConsultantID,
		"consent_id", consentID,
		"expiry", expiry)
	return *c, nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
