package consent

import (
	"context"
	"time"

	id "burogate/pkg/domain"
)

// Store persists both consent kinds. Find* methods return (nil, nil) when no
// matching record exists. CreateEntityConsent must enforce the single-active
// invariant and return a conflict-coded error when it would be violated.
type Store interface {
	CreateEntityConsent(ctx context.Context, c EntityConsent, now time.Time) (EntityConsent, error)
	GetEntityConsent(ctx context.Context, consentID id.ConsentID) (*EntityConsent, error)
	FindActiveEntityConsent(ctx context.Context, entityID id.EntityID, now time.Time) (*EntityConsent, error)
	RevokeEntityConsent(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) error
	ExtendEntityConsent(ctx context.Context, consentID id.ConsentID, expiry time.Time) error

	CreateQueryConsent(ctx context.Context, c QueryConsent) (QueryConsent, error)
	GetQueryConsent(ctx context.Context, consentID id.ConsentID) (*QueryConsent, error)
	FindActiveQueryConsent(ctx context.Context, titularID, consultantID id.EntityID, now time.Time) (*QueryConsent, error)
	ListQueryConsentsByTitular(ctx context.Context, titularID id.EntityID) ([]QueryConsent, error)
	ListQueryConsentsByConsultant(ctx context.Context, consultantID id.EntityID) ([]QueryConsent, error)
	RevokeQueryConsent(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) error
	ExtendQueryConsent(ctx context.Context, consentID id.ConsentID, expiry time.Time) error
	RecordQueryConsentUsage(ctx context.Context, consentID id.ConsentID, usedAt time.Time) error
}
