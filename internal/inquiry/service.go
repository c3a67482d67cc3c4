package inquiry

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"burogate/internal/bureau"
	"burogate/internal/consent"
	"burogate/internal/entity"
	"burogate/internal/platform/metrics"
	"burogate/internal/querylog"
	"burogate/internal/quota"
	"burogate/internal/scoring"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

// maxPaymentsInReport caps the payment list in the full-history response.
const maxPaymentsInReport = 50

// EntityDirectory resolves titulars by tax id.
type EntityDirectory interface {
	FindByTaxID(ctx context.Context, taxID id.TaxID) (*entity.Entity, error)
}

// PermissionVerifier decides whether a consultant may query a titular.
type PermissionVerifier interface {
	VerifyQueryPermission(ctx context.Context, consultantID, titularID id.EntityID) (consent.Permission, error)
}

// QuotaLedger checks and counts the consultant's monthly consumption.
type QuotaLedger interface {
	CheckLimit(ctx context.Context, entityID id.EntityID, limit int) (quota.Status, error)
	RecordQuery(ctx context.Context, entityID id.EntityID) (quota.Usage, error)
}

// AuditTrail appends one record per authorization decision.
type AuditTrail interface {
	Record(ctx context.Context, entry querylog.QueryLog) (querylog.QueryLog, error)
}

// ScoreProvider computes scores and reads the snapshot history.
type ScoreProvider interface {
	Calculate(ctx context.Context, entityID id.EntityID, taxID id.TaxID) (scoring.Result, error)
	History(ctx context.Context, entityID id.EntityID, limit int) ([]scoring.Snapshot, error)
	Latest(ctx context.Context, entityID id.EntityID) (scoring.Snapshot, error)
	Compare(ctx context.Context, entityID id.EntityID) (scoring.Comparison, error)
}

// Service runs every gated query through the same pipeline: resolve the
// titular, verify consent, enforce the quota, fetch or compute, then log the
// outcome. Denials are logged before the caller sees the response.
type Service struct {
	entities EntityDirectory
	authz    PermissionVerifier
	quota    QuotaLedger
	audit    AuditTrail
	bureau   bureau.Client
	scores   ScoreProvider
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(entities EntityDirectory, authz PermissionVerifier, ledger QuotaLedger, audit AuditTrail, bureauClient bureau.Client, scores ScoreProvider, opts ...Option) *Service {
	s := &Service{
		entities: entities,
		authz:    authz,
		quota:    ledger,
		audit:    audit,
		bureau:   bureauClient,
		scores:   scores,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// grant is the state of a request that passed the gate.
type grant struct {
	caller     requestcontext.CallerIdentity
	titular    *entity.Entity
	permission consent.Permission
	quota      quota.Status
	metered    bool
	queryType  querylog.QueryType
}

// gate runs the authorization sequence shared by every query endpoint.
// Validation and unknown-titular failures produce no audit entry; denials
// always do, before gate returns.
func (s *Service) gate(ctx context.Context, queryType querylog.QueryType, rawTaxID string, metered bool) (grant, error) {
	caller, ok := requestcontext.Identity(ctx)
	if !ok {
		return grant{}, dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}

	taxID, err := id.ParseTaxID(rawTaxID)
	if err != nil {
		return grant{}, err
	}

	titular, err := s.entities.FindByTaxID(ctx, taxID)
	if err != nil {
		return grant{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve titular entity")
	}
	if titular == nil {
		return grant{}, dErrors.New(dErrors.CodeNotFound, "titular entity not found")
	}

	g := grant{caller: caller, titular: titular, metered: metered, queryType: queryType}

	if !titular.Active {
		const reason = "titular entity is deactivated"
		s.logOutcome(ctx, g, querylog.OutcomeDeniedNoConsent, reason)
		return grant{}, dErrors.New(dErrors.CodeForbidden, reason)
	}

	permission, err := s.authz.VerifyQueryPermission(ctx, caller.EntityID, titular.ID)
	if err != nil {
		return grant{}, err
	}
	if !permission.Permitted {
		s.logOutcome(ctx, g, querylog.OutcomeDeniedNoConsent, permission.Reason)
		return grant{}, dErrors.New(dErrors.CodeForbidden, permission.Reason)
	}
	g.permission = permission

	if metered {
		status, err := s.quota.CheckLimit(ctx, caller.EntityID, caller.MaxMonthlyQueries)
		if err != nil {
			return grant{}, err
		}
		if !status.Allowed {
			s.logOutcome(ctx, g, querylog.OutcomeDeniedQuota, "monthly query limit reached")
			return grant{}, dErrors.Newf(dErrors.CodeQuotaExceeded,
				"monthly query limit reached: %d of %d queries used, resets %s",
				status.Used, status.Limit, status.PeriodEnd.Format("2006-01-02"))
		}
		g.quota = status
	}

	return g, nil
}

// complete logs the successful outcome, counts the query against the
// consultant's quota, and reports the headroom left after this call.
func (s *Service) complete(ctx context.Context, g grant) int {
	s.logOutcome(ctx, g, querylog.OutcomeSuccess, "")

	if !g.metered {
		return -1
	}
	if _, err := s.quota.RecordQuery(ctx, g.caller.EntityID); err != nil {
		s.logger.WarnContext(ctx, "failed to record query consumption",
			"entity_id", g.caller.EntityID,
			"error", err)
	}
	if g.quota.Limit <= 0 {
		return -1
	}
	remaining := g.quota.Remaining - 1
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// failQuery records an upstream failure in the audit trail. Internal
// failures stay out of it; they are not query outcomes.
func (s *Service) failQuery(ctx context.Context, g grant, err error) error {
	if dErrors.HasCode(err, dErrors.CodeUnavailable) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		s.logOutcome(ctx, g, querylog.OutcomeUpstreamError, err.Error())
	}
	return err
}

func (s *Service) logOutcome(ctx context.Context, g grant, outcome querylog.Outcome, reason string) {
	entry := querylog.QueryLog{
		ConsentID:      g.permission.ConsentID,
		TitularID:      g.titular.ID,
		ConsultantID:   g.caller.EntityID,
		OperatorUserID: g.caller.UserID,
		QueryType:      g.queryType,
		Outcome:        outcome,
		Reason:         reason,
	}
	if _, err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to append query log",
			"titular_id", g.titular.ID,
			"consultant_id", g.caller.EntityID,
			"outcome", outcome,
			"error", err)
	}
	s.metrics.ObserveQueryOutcome(string(g.queryType), string(outcome))
}

// FullHistory returns the complete credit report: payment statistics,
// obligations, and the most recent payments, fetched in parallel.
func (s *Service) FullHistory(ctx context.Context, rawTaxID string) (FullHistory, error) {
	g, err := s.gate(ctx, querylog.QueryTypeFullHistory, rawTaxID, true)
	if err != nil {
		return FullHistory{}, err
	}

	var (
		stats       *bureau.PaymentStats
		obligations []bureau.Obligation
		payments    []bureau.Payment
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		stats, err = s.bureau.PaymentStats(egctx, g.titular.TaxID)
		return err
	})
	eg.Go(func() error {
		var err error
		obligations, err = s.bureau.ObligationDetails(egctx, g.titular.TaxID)
		return err
	})
	eg.Go(func() error {
		var err error
		payments, err = s.bureau.Payments(egctx, g.titular.TaxID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return FullHistory{}, s.failQuery(ctx, g, err)
	}

	if len(payments) > maxPaymentsInReport {
		payments = payments[:maxPaymentsInReport]
	}
	remaining := s.complete(ctx, g)
	return FullHistory{
		Titular:          titularInfo(g.titular),
		Stats:            stats,
		Obligations:      obligations,
		Payments:         payments,
		QueriesRemaining: remaining,
	}, nil
}

// Summary returns the bureau's payment-statistics record. A titular unknown
// to the bureau yields a null record, not an error.
func (s *Service) Summary(ctx context.Context, rawTaxID string) (SummaryReport, error) {
	g, err := s.gate(ctx, querylog.QueryTypeSummary, rawTaxID, true)
	if err != nil {
		return SummaryReport{}, err
	}

	stats, err := s.bureau.PaymentStats(ctx, g.titular.TaxID)
	if err != nil {
		return SummaryReport{}, s.failQuery(ctx, g, err)
	}

	remaining := s.complete(ctx, g)
	return SummaryReport{
		Titular:          titularInfo(g.titular),
		Stats:            stats,
		QueriesRemaining: remaining,
	}, nil
}

// Obligations returns the titular's credit obligations.
func (s *Service) Obligations(ctx context.Context, rawTaxID string) (ObligationsReport, error) {
	g, err := s.gate(ctx, querylog.QueryTypeObligations, rawTaxID, true)
	if err != nil {
		return ObligationsReport{}, err
	}

	obligations, err := s.bureau.ObligationDetails(ctx, g.titular.TaxID)
	if err != nil {
		return ObligationsReport{}, s.failQuery(ctx, g, err)
	}

	remaining := s.complete(ctx, g)
	return ObligationsReport{
		Titular:          titularInfo(g.titular),
		Obligations:      obligations,
		Total:            len(obligations),
		QueriesRemaining: remaining,
	}, nil
}

// Payments returns the titular's payment history.
func (s *Service) Payments(ctx context.Context, rawTaxID string) (PaymentsReport, error) {
	g, err := s.gate(ctx, querylog.QueryTypePayments, rawTaxID, true)
	if err != nil {
		return PaymentsReport{}, err
	}

	payments, err := s.bureau.Payments(ctx, g.titular.TaxID)
	if err != nil {
		return PaymentsReport{}, s.failQuery(ctx, g, err)
	}

	remaining := s.complete(ctx, g)
	return PaymentsReport{
		Titular:          titularInfo(g.titular),
		Payments:         payments,
		Total:            len(payments),
		QueriesRemaining: remaining,
	}, nil
}

// CalculateScore computes a fresh score for the titular and persists the
// snapshot. This is a metered query like the credit-history reads.
func (s *Service) CalculateScore(ctx context.Context, rawTaxID string) (ScoreReport, error) {
	g, err := s.gate(ctx, querylog.QueryTypeScoring, rawTaxID, true)
	if err != nil {
		return ScoreReport{}, err
	}

	result, err := s.scores.Calculate(ctx, g.titular.ID, g.titular.TaxID)
	if err != nil {
		return ScoreReport{}, s.failQuery(ctx, g, err)
	}

	remaining := s.complete(ctx, g)
	return ScoreReport{
		Titular:          titularInfo(g.titular),
		Score:            result,
		QueriesRemaining: remaining,
	}, nil
}

// ScoreHistory returns the titular's recent snapshots. Snapshot reads are
// consent-gated but unmetered: no bureau query happens, so nothing counts
// against the monthly quota and only denials reach the audit trail.
func (s *Service) ScoreHistory(ctx context.Context, rawTaxID string, limit int) (ScoreHistory, error) {
	g, err := s.gate(ctx, querylog.QueryTypeScoring, rawTaxID, false)
	if err != nil {
		return ScoreHistory{}, err
	}

	snapshots, err := s.scores.History(ctx, g.titular.ID, limit)
	if err != nil {
		return ScoreHistory{}, err
	}

	views := make([]ScoreSnapshot, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, snapshotView(snapshot))
	}
	return ScoreHistory{
		Titular:   titularInfo(g.titular),
		Snapshots: views,
		Total:     len(views),
	}, nil
}

// LatestScore returns the titular's most recent snapshot.
func (s *Service) LatestScore(ctx context.Context, rawTaxID string) (LatestScore, error) {
	g, err := s.gate(ctx, querylog.QueryTypeScoring, rawTaxID, false)
	if err != nil {
		return LatestScore{}, err
	}

	snapshot, err := s.scores.Latest(ctx, g.titular.ID)
	if err != nil {
		return LatestScore{}, err
	}
	return LatestScore{
		Titular:  titularInfo(g.titular),
		Snapshot: snapshotView(snapshot),
	}, nil
}

// CompareScores contrasts the titular's two most recent snapshots.
func (s *Service) CompareScores(ctx context.Context, rawTaxID string) (ScoreComparison, error) {
	g, err := s.gate(ctx, querylog.QueryTypeScoring, rawTaxID, false)
	if err != nil {
		return ScoreComparison{}, err
	}

	comparison, err := s.scores.Compare(ctx, g.titular.ID)
	if err != nil {
		return ScoreComparison{}, err
	}

	view := ScoreComparison{
		Titular:       titularInfo(g.titular),
		CurrentScore:  comparison.Current.Score,
		CurrentAt:     comparison.Current.ComputedAt,
		Difference:    comparison.Difference,
		PercentChange: comparison.PercentChange,
		Improved:      comparison.Improved,
	}
	if comparison.Previous != nil {
		view.PreviousScore = &comparison.Previous.Score
		view.PreviousAt = &comparison.Previous.ComputedAt
	}
	return view, nil
}
