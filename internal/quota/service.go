package quota

import (
	"context"
	"log/slog"

	"burogate/internal/platform/metrics"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

// Service answers "may this entity run one more query this month" and records
// consumption. The check and the increment are separate calls: the
// orchestrator only records after the bureau query actually succeeded, so a
// failed upstream call does not burn quota.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckLimit reports whether the entity has headroom in the current period.
// A non-positive limit means the plan is unmetered. Exhaustion is a Status,
// not an error; errors are reserved for store failures.
func (s *Service) CheckLimit(ctx context.Context, entityID id.EntityID, limit int) (Status, error) {
	now := requestcontext.Now(ctx)
	period := PeriodStart(now)

	usage, err := s.store.GetUsage(ctx, entityID, period)
	if err != nil {
		return Status{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consumption counter")
	}

	status := Status{
		Limit:       limit,
		Used:        usage.QueriesPerformed,
		PeriodStart: period,
		PeriodEnd:   PeriodEnd(now),
	}
	if limit <= 0 {
		status.Allowed = true
		return status, nil
	}

	status.Allowed = usage.QueriesPerformed < limit
	status.Remaining = limit - usage.QueriesPerformed
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if !status.Allowed {
		s.metrics.IncrementQuotaRejections()
		s.logger.InfoContext(ctx, "monthly query limit reached",
			"log_type", "audit",
			"entity_id", entityID,
			"limit", limit,
			"used", usage.QueriesPerformed,
			"period_start", period)
	}
	return status, nil
}

// RecordQuery counts one performed query against the current period.
func (s *Service) RecordQuery(ctx context.Context, entityID id.EntityID) (Usage, error) {
	now := requestcontext.Now(ctx)
	usage, err := s.store.IncrementUsage(ctx, entityID, PeriodStart(now))
	if err != nil {
		return Usage{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to increment consumption counter")
	}
	return usage, nil
}
