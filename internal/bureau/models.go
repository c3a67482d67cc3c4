// Package bureau is the outbound client for the credit bureau data source.
// Three datasets feed the scoring engine (summary, obligation details,
// pending payments); payment statistics and the payment list feed the credit
// history endpoints. "Not found" is data, not an error: a subject unknown to
// the bureau yields nil summaries and empty lists.
package bureau

// Summary is the bureau's aggregate view of a subject.
type Summary struct {
	MaxDiasAtraso               int     `json:"max_dias_atraso"`
	TotalPagosAtrasados         int     `json:"total_pagos_atrasados"`
	ObligacionesVencidas        int     `json:"obligaciones_vencidas"`
	ObligacionesCarteraVencida  int     `json:"obligaciones_cartera_vencida"`
	SaldoTotalActual            float64 `json:"saldo_total_actual"`
	MontoTotalVencido           float64 `json:"monto_total_vencido"`
	MesesHistorialCrediticio    int     `json:"meses_historial_crediticio"`
	ObligacionesReestructuradas int     `json:"obligaciones_reestructuradas"`
	ObligacionesVigentes        int     `json:"obligaciones_vigentes"`
	TotalObligaciones           int     `json:"total_obligaciones"`
}

// PaymentStats is the payment-statistics dataset backing the credit summary
// endpoint.
type PaymentStats struct {
	TotalPagos         int     `json:"total_pagos"`
	PagosATiempo       int     `json:"pagos_a_tiempo"`
	PagosAtrasados     int     `json:"pagos_atrasados"`
	PromedioDiasAtraso float64 `json:"promedio_dias_atraso"`
	MaxDiasAtraso      int     `json:"max_dias_atraso"`
}

// Obligation is one credit line as reported by the bureau.
type Obligation struct {
	ID            int64   `json:"id"`
	TipoCredito   string  `json:"tipo_credito"`
	Estado        string  `json:"estado"`
	LimiteCredito float64 `json:"limite_credito"`
	SaldoActual   float64 `json:"saldo_actual"`
	SaldoVencido  float64 `json:"saldo_vencido"`
}

// Obligation estados reported by the source.
const (
	ObligationStateCurrent      = "VIGENTE"
	ObligationStateClosed       = "CERRADA"
	ObligationStateOverdue      = "VENCIDA"
	ObligationStateRestructured = "REESTRUCTURADA"
)

// Payment is one historical payment record.
type Payment struct {
	ID           int64   `json:"id"`
	ObligacionID int64   `json:"obligacion_id"`
	Monto        float64 `json:"monto"`
	FechaPago    string  `json:"fecha_pago"`
	DiasAtraso   int     `json:"dias_atraso"`
	Estado       string  `json:"estado"`
}

// PendingPayment is a payment the subject still owes.
type PendingPayment struct {
	ID                  int64   `json:"id"`
	ObligacionID        int64   `json:"obligacion_id"`
	Monto               float64 `json:"monto"`
	FechaVencimiento    string  `json:"fecha_vencimiento"`
	DiasAtrasoCalculado int     `json:"dias_atraso_calculado"`
}
