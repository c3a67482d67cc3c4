package scoring

import (
	"fmt"
	"math"

	"burogate/internal/bureau"
	platstrings "burogate/pkg/platform/strings"
)

// ComputeScore evaluates the five score components over the bureau datasets.
// It is deterministic and side-effect free. A nil summary means the bureau
// has no record of the subject and yields the SIN_HISTORIAL terminal result.
func ComputeScore(summary *bureau.Summary, obligations []bureau.Obligation, pending []bureau.PendingPayment) Result {
	if summary == nil {
		return noHistoryResult()
	}

	components := Components{
		PaymentHistory: scorePaymentHistory(summary),
		DebtLevel:      scoreDebtLevel(summary, obligations),
		CreditAge:      scoreCreditAge(summary),
		CreditMix:      scoreCreditMix(obligations),
		RecentBehavior: scoreRecentBehavior(summary, pending),
	}

	total := components.PaymentHistory.Points +
		components.DebtLevel.Points +
		components.CreditAge.Points +
		components.CreditMix.Points +
		components.RecentBehavior.Points

	ordered := []Component{
		components.PaymentHistory,
		components.DebtLevel,
		components.CreditAge,
		components.CreditMix,
		components.RecentBehavior,
	}

	return Result{
		TotalScore:      total,
		Tier:            riskTier(total),
		Components:      components,
		PositiveFactors: consolidate(ordered, func(c Component) []string { return c.Positives }),
		NegativeFactors: consolidate(ordered, func(c Component) []string { return c.Negatives }),
		Recommendations: recommendations(total, components),
		BaseData: BaseData{
			TotalObligations: summary.TotalObligaciones,
			TotalBalance:     summary.SaldoTotalActual,
			HistoryMonths:    summary.MesesHistorialCrediticio,
		},
	}
}

// scorePaymentHistory penalizes late-payment severity and delinquent
// obligations, starting from the full allocation.
func scorePaymentHistory(summary *bureau.Summary) Component {
	points := MaxPaymentHistoryPoints
	var positives, negatives []string

	switch {
	case summary.MaxDiasAtraso == 0:
		positives = append(positives, "Sin atrasos registrados")
	case summary.MaxDiasAtraso <= 30:
		points -= 50
		negatives = append(negatives, fmt.Sprintf("Atraso máximo de %d días", summary.MaxDiasAtraso))
	case summary.MaxDiasAtraso <= 60:
		points -= 100
		negatives = append(negatives, fmt.Sprintf("Atraso significativo de %d días", summary.MaxDiasAtraso))
	case summary.MaxDiasAtraso <= 90:
		points -= 150
		negatives = append(negatives, fmt.Sprintf("Atraso grave de %d días", summary.MaxDiasAtraso))
	default:
		points -= 250
		negatives = append(negatives, fmt.Sprintf("Atraso crítico de %d días", summary.MaxDiasAtraso))
	}

	switch {
	case summary.TotalPagosAtrasados == 0:
		positives = append(positives, "Todos los pagos al día")
	case summary.TotalPagosAtrasados <= 2:
		points -= 30
		negatives = append(negatives, fmt.Sprintf("%d pagos atrasados", summary.TotalPagosAtrasados))
	case summary.TotalPagosAtrasados <= 5:
		points -= 60
		negatives = append(negatives, fmt.Sprintf("%d pagos atrasados", summary.TotalPagosAtrasados))
	default:
		points -= 100
		negatives = append(negatives, fmt.Sprintf("%d pagos atrasados (alto)", summary.TotalPagosAtrasados))
	}

	if summary.ObligacionesVencidas > 0 {
		points -= summary.ObligacionesVencidas * 40
		negatives = append(negatives, fmt.Sprintf("%d obligación(es) vencida(s)", summary.ObligacionesVencidas))
	}
	if summary.ObligacionesCarteraVencida > 0 {
		points -= summary.ObligacionesCarteraVencida * 50
		negatives = append(negatives, fmt.Sprintf("%d en cartera vencida", summary.ObligacionesCarteraVencida))
	}

	return component(points, MaxPaymentHistoryPoints, positives, negatives)
}

// scoreDebtLevel penalizes credit utilization, the overdue share of the
// balance, and very large absolute debt.
func scoreDebtLevel(summary *bureau.Summary, obligations []bureau.Obligation) Component {
	points := MaxDebtLevelPoints
	var positives, negatives []string

	var withLimit int
	var utilizationSum float64
	for _, o := range obligations {
		if o.LimiteCredito > 0 {
			withLimit++
			utilizationSum += o.SaldoActual / o.LimiteCredito
		}
	}
	if withLimit > 0 {
		utilization := utilizationSum / float64(withLimit)
		switch {
		case utilization <= 0.30:
			positives = append(positives, "Utilización de crédito baja (≤30%)")
		case utilization <= 0.50:
			points -= 50
			negatives = append(negatives, "Utilización de crédito moderada (30-50%)")
		case utilization <= 0.75:
			points -= 100
			negatives = append(negatives, "Utilización de crédito alta (50-75%)")
		default:
			points -= 150
			negatives = append(negatives, "Utilización de crédito muy alta (>75%)")
		}
	}

	// A zero balance cannot have an overdue share.
	overdueRatio := 0.0
	if summary.SaldoTotalActual > 0 {
		overdueRatio = summary.MontoTotalVencido / summary.SaldoTotalActual
	}
	switch {
	case overdueRatio == 0:
		positives = append(positives, "Sin montos vencidos")
	case overdueRatio <= 0.05:
		points -= 30
	case overdueRatio <= 0.15:
		points -= 70
		negatives = append(negatives, "Monto vencido moderado (5-15% del saldo)")
	default:
		points -= 120
		negatives = append(negatives, "Monto vencido alto (>15% del saldo)")
	}

	switch {
	case summary.SaldoTotalActual > 1_000_000:
		points -= 30
		negatives = append(negatives, "Nivel de deuda alto (>$1,000,000)")
	case summary.SaldoTotalActual > 500_000:
		positives = append(positives, "Nivel de deuda moderado")
	case summary.SaldoTotalActual > 0:
		positives = append(positives, "Nivel de deuda bajo")
	}

	return component(points, MaxDebtLevelPoints, positives, negatives)
}

// scoreCreditAge only awards points; there is nothing to subtract from a
// short history beyond not granting it.
func scoreCreditAge(summary *bureau.Summary) Component {
	months := summary.MesesHistorialCrediticio
	var points int
	var positives, negatives []string

	switch {
	case months >= 60:
		points = 150
		positives = append(positives, "Historial crediticio extenso (>5 años)")
	case months >= 36:
		points = 120
		positives = append(positives, "Historial crediticio sólido (3-5 años)")
	case months >= 24:
		points = 90
		positives = append(positives, "Historial crediticio moderado (2-3 años)")
	case months >= 12:
		points = 60
		negatives = append(negatives, "Historial crediticio limitado (1-2 años)")
	case months > 0:
		points = 30
		negatives = append(negatives, "Historial crediticio muy reciente (<1 año)")
	default:
		negatives = append(negatives, "Sin historial crediticio")
	}

	return component(points, MaxCreditAgePoints, positives, negatives)
}

// scoreCreditMix awards diversification across distinct credit types plus a
// capped bonus for successfully closed obligations.
func scoreCreditMix(obligations []bureau.Obligation) Component {
	rawTypes := make([]string, 0, len(obligations))
	var closed int
	for _, o := range obligations {
		rawTypes = append(rawTypes, o.TipoCredito)
		if o.Estado == bureau.ObligationStateClosed {
			closed++
		}
	}
	types := platstrings.DedupeAndTrim(rawTypes)

	var points int
	var positives, negatives []string
	switch {
	case len(types) >= 4:
		points = 100
		positives = append(positives, "Excelente diversificación de créditos")
	case len(types) == 3:
		points = 75
		positives = append(positives, "Buena diversificación de créditos")
	case len(types) == 2:
		points = 50
		positives = append(positives, "Diversificación moderada de créditos")
	case len(types) == 1:
		points = 25
		negatives = append(negatives, "Poca diversificación de créditos")
	default:
		negatives = append(negatives, "Sin diversificación de créditos")
	}

	if closed > 0 {
		bonus := closed * 5
		if bonus > 25 {
			bonus = 25
		}
		points += bonus
		if points > MaxCreditMixPoints {
			points = MaxCreditMixPoints
		}
		positives = append(positives, fmt.Sprintf("%d crédito(s) cerrado(s) exitosamente", closed))
	}

	c := component(points, MaxCreditMixPoints, positives, negatives)
	c.CreditTypes = types
	return c
}

// scoreRecentBehavior penalizes severely late pending payments and
// restructured obligations.
func scoreRecentBehavior(summary *bureau.Summary, pending []bureau.PendingPayment) Component {
	points := MaxRecentBehaviorPoints
	var positives, negatives []string

	var severelyLate int
	for _, p := range pending {
		if p.DiasAtrasoCalculado > 30 {
			severelyLate++
		}
	}
	switch {
	case severelyLate == 0:
		positives = append(positives, "Sin pagos pendientes atrasados")
	case severelyLate <= 2:
		points -= 30
		negatives = append(negatives, fmt.Sprintf("%d pago(s) muy atrasado(s)", severelyLate))
	default:
		points -= 60
		negatives = append(negatives, fmt.Sprintf("%d pagos muy atrasados (crítico)", severelyLate))
	}

	if summary.ObligacionesReestructuradas > 0 {
		points -= summary.ObligacionesReestructuradas * 20
		negatives = append(negatives, fmt.Sprintf("%d obligación(es) reestructurada(s)", summary.ObligacionesReestructuradas))
	}

	total := summary.TotalObligaciones
	if total < 1 {
		total = 1
	}
	if float64(summary.ObligacionesVigentes)/float64(total) >= 0.8 {
		positives = append(positives, "Mayoría de obligaciones vigentes y saludables")
	}

	return component(points, MaxRecentBehaviorPoints, positives, negatives)
}

var tierRanges = []struct {
	level       TierLevel
	min, max    int
	color       string
	description string
}{
	{TierExcellent, 800, 1000, "#10B981", "Riesgo crediticio mínimo - Excelente perfil"},
	{TierVeryGood, 700, 799, "#3B82F6", "Riesgo crediticio bajo - Muy buen perfil"},
	{TierGood, 600, 699, "#F59E0B", "Riesgo crediticio moderado bajo - Buen perfil"},
	{TierRegular, 500, 599, "#F97316", "Riesgo crediticio moderado - Perfil promedio"},
	{TierBad, 400, 499, "#EF4444", "Riesgo crediticio alto - Perfil con problemas"},
	{TierVeryBad, 0, 399, "#DC2626", "Riesgo crediticio muy alto - Perfil crítico"},
}

func riskTier(total int) RiskTier {
	for _, r := range tierRanges {
		if total >= r.min && total <= r.max {
			return RiskTier{
				Level:       r.level,
				Description: r.description,
				Color:       r.color,
				Range:       fmt.Sprintf("%d-%d", r.min, r.max),
			}
		}
	}
	return RiskTier{
		Level:       TierVeryBad,
		Description: "Riesgo crediticio muy alto - Perfil crítico",
		Color:       "#DC2626",
		Range:       "0-399",
	}
}

// recommendations fires fixed threshold rules in a fixed order. Several may
// fire at once.
func recommendations(total int, c Components) []Recommendation {
	out := make([]Recommendation, 0)

	if c.PaymentHistory.Points < 250 {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Category:    "HISTORIAL_PAGOS",
			Title:       "Mejorar historial de pagos",
			Description: "Realice todos los pagos a tiempo para recuperar su score",
			Impact:      "+100 puntos",
		})
	}
	if c.DebtLevel.Points < 200 {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Category:    "ENDEUDAMIENTO",
			Title:       "Reducir nivel de endeudamiento",
			Description: "Reduzca el saldo de sus tarjetas por debajo del 30% del límite",
			Impact:      "+80 puntos",
		})
	}
	if c.CreditAge.Points < 60 {
		out = append(out, Recommendation{
			Priority:    PriorityMedium,
			Category:    "ANTIGUEDAD",
			Title:       "Construir historial crediticio",
			Description: "Mantenga cuentas antiguas abiertas para aumentar su antigüedad",
			Impact:      "+30 puntos",
		})
	}
	if c.RecentBehavior.Points < 70 {
		out = append(out, Recommendation{
			Priority:    PriorityHigh,
			Category:    "COMPORTAMIENTO",
			Title:       "Atender pagos pendientes",
			Description: "Ponga al día los pagos atrasados inmediatamente",
			Impact:      "+50 puntos",
		})
	}
	if total >= 700 {
		out = append(out, Recommendation{
			Priority:    PriorityLow,
			Category:    "MANTENIMIENTO",
			Title:       "Mantener buen comportamiento",
			Description: "Continúe con sus hábitos financieros saludables",
			Impact:      "Estabilidad",
		})
	}

	return out
}

func noHistoryResult() Result {
	noData := func(max int) Component {
		return Component{
			Points:     0,
			MaxPoints:  max,
			Percentage: 0,
			Positives:  []string{},
			Negatives:  []string{"Sin información registrada en el buró"},
		}
	}
	return Result{
		TotalScore: 0,
		NoHistory:  true,
		Tier: RiskTier{
			Level:       TierNoHistory,
			Description: "Sin historial crediticio registrado",
			Color:       "#6B7280",
			Range:       "0-0",
		},
		Components: Components{
			PaymentHistory: noData(MaxPaymentHistoryPoints),
			DebtLevel:      noData(MaxDebtLevelPoints),
			CreditAge:      noData(MaxCreditAgePoints),
			CreditMix:      noData(MaxCreditMixPoints),
			RecentBehavior: noData(MaxRecentBehaviorPoints),
		},
		PositiveFactors: []string{},
		NegativeFactors: []string{"Sin información registrada en el buró"},
		Recommendations: []Recommendation{{
			Priority:    PriorityHigh,
			Category:    "SIN_HISTORIAL",
			Title:       "Iniciar historial crediticio",
			Description: "Contrate un primer producto de crédito para comenzar a construir historial",
			Impact:      "Primer score",
		}},
	}
}

func component(points, max int, positives, negatives []string) Component {
	if points < 0 {
		points = 0
	}
	if positives == nil {
		positives = []string{}
	}
	if negatives == nil {
		negatives = []string{}
	}
	return Component{
		Points:     points,
		MaxPoints:  max,
		Percentage: math.Round(float64(points)/float64(max)*1000) / 10,
		Positives:  positives,
		Negatives:  negatives,
	}
}

func consolidate(components []Component, pick func(Component) []string) []string {
	out := make([]string, 0)
	for _, c := range components {
		out = append(out, pick(c)...)
	}
	return out
}
