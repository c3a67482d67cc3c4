// Package querylog is the append-only audit trail of every credit query
// attempt, permitted or not. Rows are never updated or deleted; the only
// side effect of recording is the usage bump on the attributed consent.
package querylog

import (
	"time"

	id "burogate/pkg/domain"
)

// QueryType names the dataset a query attempt targeted.
type QueryType string

const (
	QueryTypeFullHistory QueryType = "HISTORIAL_COMPLETO"
	QueryTypeSummary     QueryType = "RESUMEN_CREDITICIO"
	QueryTypeObligations QueryType = "OBLIGACIONES_CREDITICIAS"
	QueryTypePayments    QueryType = "HISTORIAL_PAGOS"
	QueryTypeScoring     QueryType = "CALCULO_SCORING"
)

func (t QueryType) IsValid() bool {
	switch t {
	case QueryTypeFullHistory, QueryTypeSummary, QueryTypeObligations,
		QueryTypePayments, QueryTypeScoring:
		return true
	}
	return false
}

// Outcome classifies how a query attempt ended.
type Outcome string

const (
	OutcomeSuccess         Outcome = "EXITOSO"
	OutcomeDeniedNoConsent Outcome = "DENEGADO_SIN_CONSENTIMIENTO"
	OutcomeDeniedQuota     Outcome = "DENEGADO_LIMITE_EXCEDIDO"
	OutcomeUpstreamError   Outcome = "ERROR_FUENTE_EXTERNA"
)

func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeDeniedNoConsent, OutcomeDeniedQuota, OutcomeUpstreamError:
		return true
	}
	return false
}

// QueryLog is one audit row. ConsentID is zero for self-queries and for
// denials that never reached a grant.
type QueryLog struct {
	ID             int64
	ConsentID      id.ConsentID
	TitularID      id.EntityID
	ConsultantID   id.EntityID
	OperatorUserID id.UserID
	QueryType      QueryType
	Outcome        Outcome
	Reason         string
	OriginIP       string
	CreatedAt      time.Time
}

// Event is the wire form published to the audit topic.
type Event struct {
	EventID        string    `json:"event_id"`
	ConsentID      int64     `json:"consent_id,omitempty"`
	TitularID      int64     `json:"titular_id"`
	ConsultantID   int64     `json:"consultant_id"`
	OperatorUserID int64     `json:"operator_user_id"`
	QueryType      QueryType `json:"query_type"`
	Outcome        Outcome   `json:"outcome"`
	Reason         string    `json:"reason,omitempty"`
	OriginIP       string    `json:"origin_ip,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
	RequestID      string    `json:"request_id,omitempty"`
}
