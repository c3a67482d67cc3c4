// Package scoring computes the 0-1000 credit score from bureau data. The
// engine is a pure function of its three inputs; persistence of snapshots is
// a separate explicit step so callers decide what becomes history.
package scoring

import (
	"time"

	id "burogate/pkg/domain"
)

// Component max point allocations. The five caps sum to 1000.
const (
	MaxPaymentHistoryPoints = 350
	MaxDebtLevelPoints      = 300
	MaxCreditAgePoints      = 150
	MaxCreditMixPoints      = 100
	MaxRecentBehaviorPoints = 100
)

// Component is one scored dimension with its explanatory factors.
type Component struct {
	Points      int      `json:"puntos"`
	MaxPoints   int      `json:"max_puntos"`
	Percentage  float64  `json:"porcentaje"`
	Positives   []string `json:"positivos"`
	Negatives   []string `json:"negativos"`
	CreditTypes []string `json:"tipos_credito,omitempty"`
}

// Components groups the five dimensions under their reporting names.
type Components struct {
	PaymentHistory Component `json:"historial_pagos"`
	DebtLevel      Component `json:"nivel_endeudamiento"`
	CreditAge      Component `json:"antiguedad_crediticia"`
	CreditMix      Component `json:"mix_crediticio"`
	RecentBehavior Component `json:"comportamiento_reciente"`
}

// TierLevel is the risk classification label.
type TierLevel string

const (
	TierExcellent TierLevel = "EXCELENTE"
	TierVeryGood  TierLevel = "MUY_BUENO"
	TierGood      TierLevel = "BUENO"
	TierRegular   TierLevel = "REGULAR"
	TierBad       TierLevel = "MALO"
	TierVeryBad   TierLevel = "MUY_MALO"
	TierNoHistory TierLevel = "SIN_HISTORIAL"
)

// RiskTier is the presented form of a tier.
type RiskTier struct {
	Level       TierLevel `json:"nivel"`
	Description string    `json:"descripcion"`
	Color       string    `json:"color"`
	Range       string    `json:"rango"`
}

// Recommendation is one actionable suggestion derived from component scores.
type Recommendation struct {
	Priority    string `json:"prioridad"`
	Category    string `json:"categoria"`
	Title       string `json:"titulo"`
	Description string `json:"descripcion"`
	Impact      string `json:"impacto"`
}

// Recommendation priorities.
const (
	PriorityHigh   = "ALTA"
	PriorityMedium = "MEDIA"
	PriorityLow    = "BAJA"
)

// BaseData echoes the headline bureau figures the score was computed from.
type BaseData struct {
	TotalObligations int     `json:"total_obligaciones"`
	TotalBalance     float64 `json:"saldo_total"`
	HistoryMonths    int     `json:"meses_historial"`
}

// Result is one complete scoring computation. NoHistory marks the terminal
// "bureau has no record" case, distinguishable from a true zero score.
type Result struct {
	TotalScore      int              `json:"score_total"`
	Tier            RiskTier         `json:"nivel_riesgo"`
	Components      Components       `json:"componentes"`
	PositiveFactors []string         `json:"factores_positivos"`
	NegativeFactors []string         `json:"factores_negativos"`
	Recommendations []Recommendation `json:"recomendaciones"`
	NoHistory       bool             `json:"sin_historial"`
	BaseData        BaseData         `json:"datos_base"`
}

// Snapshot is one persisted scoring result. History is append-only.
type Snapshot struct {
	ID              int64
	EntityID        id.EntityID
	Score           int
	TierLevel       TierLevel
	PositiveFactors []string
	NegativeFactors []string
	ComputedAt      time.Time
}
