// Package consent holds the two consent kinds the gateway enforces and the
// authorization decision built on them. Self-consent authorizes the platform
// to hold an entity's data at all; query consent authorizes one named
// consultant to read a titular's data for a bounded time.
package consent

import (
	"time"

	id "burogate/pkg/domain"
)

// State is the derived lifecycle state of a consent. Only REVOCADO is stored;
// EXPIRADO is computed against the clock at read time.
type State string

const (
	StateActive  State = "ACTIVO"
	StateExpired State = "EXPIRADO"
	StateRevoked State = "REVOCADO"
)

// EntityConsent is an entity's authorization for the platform to hold and
// process its own data (self-consent).
// Invariant: at most one non-revoked, unexpired EntityConsent per entity.
type EntityConsent struct {
	ID        id.ConsentID
	EntityID  id.EntityID
	Start     time.Time
	Expiry    time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
}

// IsActive reports whether the consent currently authorizes processing.
func (c EntityConsent) IsActive(now time.Time) bool {
	return !c.Revoked && !now.Before(c.Start) && !now.After(c.Expiry)
}

// State derives the lifecycle state at the given instant.
func (c EntityConsent) State(now time.Time) State {
	switch {
	case c.Revoked:
		return StateRevoked
	case now.After(c.Expiry):
		return StateExpired
	default:
		return StateActive
	}
}

// QueryConsent is a titular-to-consultant authorization.
// Invariant: titular id != consultant id; self-queries are decided on
// EntityConsent alone and never consult these records.
type QueryConsent struct {
	ID           id.ConsentID
	TitularID    id.EntityID
	ConsultantID id.EntityID
	Start        time.Time
	Expiry       time.Time
	Revoked      bool
	RevokedAt    *time.Time
	// QueriesPerformed and LastUsedAt are bumped by the audit log service on
	// successful queries; they survive revocation for historical reads.
	QueriesPerformed int
	LastUsedAt       *time.Time
	OriginIP         string
	CreatedAt        time.Time
}

func (c QueryConsent) IsActive(now time.Time) bool {
	return !c.Revoked && !now.Before(c.Start) && !now.After(c.Expiry)
}

func (c QueryConsent) State(now time.Time) State {
	switch {
	case c.Revoked:
		return StateRevoked
	case now.After(c.Expiry):
		return StateExpired
	default:
		return StateActive
	}
}

// Permission is the result of an authorization check. ConsentID is the
// query-consent attribution for third-party grants; self-queries carry the
// synthetic zero ID.
type Permission struct {
	Permitted bool
	SelfQuery bool
	Reason    string
	ConsentID id.ConsentID
}

// Denial reasons surfaced to callers and recorded in audit logs.
const (
	ReasonNoSelfConsent     = "entity lacks active self-consent"
	ReasonTitularNotSharing = "titular has not authorized data sharing"
	ReasonNoConsentBetween  = "no active consent between the parties"
)
