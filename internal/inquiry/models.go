// Package inquiry sequences the gated query pipeline: consent authorization,
// quota enforcement, bureau fetch, scoring, and audit logging. Handlers call
// this package only; the gating order is not theirs to rearrange.
package inquiry

import (
	"time"

	"burogate/internal/bureau"
	"burogate/internal/entity"
	"burogate/internal/scoring"
	id "burogate/pkg/domain"
)

// TitularInfo identifies the data subject in query responses.
type TitularInfo struct {
	ID        id.EntityID `json:"id"`
	LegalName string      `json:"nombre_legal"`
	TaxID     id.TaxID    `json:"rfc"`
	Kind      entity.Kind `json:"tipo_entidad"`
}

func titularInfo(e *entity.Entity) TitularInfo {
	return TitularInfo{ID: e.ID, LegalName: e.LegalName, TaxID: e.TaxID, Kind: e.Kind}
}

// FullHistory is the complete credit report: the payment statistics plus the
// obligation and payment detail lists. Payments are capped at the most
// recent 50.
type FullHistory struct {
	Titular     TitularInfo          `json:"titular"`
	Stats       *bureau.PaymentStats `json:"resumen_crediticio"`
	Obligations []bureau.Obligation  `json:"obligaciones"`
	Payments    []bureau.Payment     `json:"pagos"`
	// QueriesRemaining is the consultant's headroom after this query;
	// -1 when the plan is unmetered.
	QueriesRemaining int `json:"consultas_restantes"`
}

// SummaryReport carries the payment-statistics record the bureau aggregates
// per subject.
type SummaryReport struct {
	Titular          TitularInfo          `json:"titular"`
	Stats            *bureau.PaymentStats `json:"resumen_crediticio"`
	QueriesRemaining int                  `json:"consultas_restantes"`
}

// ObligationsReport lists the titular's credit obligations.
type ObligationsReport struct {
	Titular          TitularInfo         `json:"titular"`
	Obligations      []bureau.Obligation `json:"obligaciones"`
	Total            int                 `json:"total_obligaciones"`
	QueriesRemaining int                 `json:"consultas_restantes"`
}

// PaymentsReport lists the titular's payment history.
type PaymentsReport struct {
	Titular          TitularInfo      `json:"titular"`
	Payments         []bureau.Payment `json:"pagos"`
	Total            int              `json:"total_pagos"`
	QueriesRemaining int              `json:"consultas_restantes"`
}

// ScoreReport is the result of a fresh scoring computation.
type ScoreReport struct {
	Titular          TitularInfo    `json:"titular"`
	Score            scoring.Result `json:"scoring"`
	QueriesRemaining int            `json:"consultas_restantes"`
}

// ScoreSnapshot is the presented form of a persisted score computation.
type ScoreSnapshot struct {
	ID              int64             `json:"id"`
	Score           int               `json:"puntaje_score"`
	TierLevel       scoring.TierLevel `json:"nivel_riesgo"`
	PositiveFactors []string          `json:"factores_positivos"`
	NegativeFactors []string          `json:"factores_negativos"`
	ComputedAt      time.Time         `json:"fecha_calculo"`
}

func snapshotView(s scoring.Snapshot) ScoreSnapshot {
	return ScoreSnapshot{
		ID:              s.ID,
		Score:           s.Score,
		TierLevel:       s.TierLevel,
		PositiveFactors: s.PositiveFactors,
		NegativeFactors: s.NegativeFactors,
		ComputedAt:      s.ComputedAt,
	}
}

// ScoreHistory is the titular's recent snapshot window, newest first.
type ScoreHistory struct {
	Titular   TitularInfo     `json:"titular"`
	Snapshots []ScoreSnapshot `json:"historial"`
	Total     int             `json:"total_registros"`
}

// LatestScore is the titular's most recent snapshot.
type LatestScore struct {
	Titular  TitularInfo   `json:"titular"`
	Snapshot ScoreSnapshot `json:"scoring"`
}

// ScoreComparison contrasts the two most recent snapshots. The pointer
// fields are null when only one snapshot exists.
type ScoreComparison struct {
	Titular       TitularInfo `json:"titular"`
	CurrentScore  int         `json:"score_actual"`
	PreviousScore *int        `json:"score_anterior"`
	Difference    *int        `json:"diferencia"`
	PercentChange *float64    `json:"porcentaje_cambio"`
	Improved      *bool       `json:"mejoro"`
	CurrentAt     time.Time   `json:"fecha_actual"`
	PreviousAt    *time.Time  `json:"fecha_anterior"`
}
