package consent

import (
	"context"
	"log/slog"

	id "burogate/pkg/domain"
	"burogate/pkg/requestcontext"
)

// Authorizer answers the single question that gates every credit query: may
// this consultant read this titular's data right now?
type Authorizer struct {
	store  Store
	logger *slog.Logger
}

type AuthorizerOption func(*Authorizer)

func WithAuthorizerLogger(logger *slog.Logger) AuthorizerOption {
	return func(a *Authorizer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewAuthorizer(store Store, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// VerifyQueryPermission decides whether consultant may query titular's data.
// Self-queries are decided on the titular's self-consent alone; third-party
// queries additionally need an active query consent between the two parties.
// A denial is a result, not an error: errors are reserved for store failures.
func (a *Authorizer) VerifyQueryPermission(ctx context.Context, consultantID, titularID id.EntityID) (Permission, error) {
	now := requestcontext.Now(ctx)

	if consultantID == titularID {
		self, err := a.store.FindActiveEntityConsent(ctx, titularID, now)
		if err != nil {
			return Permission{}, err
		}
		if self == nil {
			return Permission{SelfQuery: true, Reason: ReasonNoSelfConsent}, nil
		}
		return Permission{Permitted: true, SelfQuery: true}, nil
	}

	titularSelf, err := a.store.FindActiveEntityConsent(ctx, titularID, now)
	if err != nil {
		return Permission{}, err
	}
	if titularSelf == nil {
		return Permission{Reason: ReasonTitularNotSharing}, nil
	}

	grant, err := a.store.FindActiveQueryConsent(ctx, titularID, consultantID, now)
	if err != nil {
		return Permission{}, err
	}
	if grant == nil {
		a.logger.InfoContext(ctx, "query permission denied",
			"consultant_id", consultantID,
			"titular_id", titularID,
			"reason", ReasonNoConsentBetween)
		return Permission{Reason: ReasonNoConsentBetween}, nil
	}

	return Permission{Permitted: true, ConsentID: grant.ID}, nil
}
