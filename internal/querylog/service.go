package querylog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

// ConsentUsageRecorder bumps the usage counters on the consent a successful
// query was attributed to.
type ConsentUsageRecorder interface {
	RecordQueryConsentUsage(ctx context.Context, consentID id.ConsentID, usedAt time.Time) error
}

// Publisher emits audit events to an external sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Service records query attempts. Recording the row is the durable part;
// consent usage bumps and event publication are best-effort and never fail
// the query that triggered them.
type Service struct {
	store     Store
	usage     ConsentUsageRecorder
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithUsageRecorder(usage ConsentUsageRecorder) Option {
	return func(s *Service) {
		s.usage = usage
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one audit row. On a successful third-party query it also
// bumps the attributed consent's usage counters.
func (s *Service) Record(ctx context.Context, entry QueryLog) (QueryLog, error) {
	if !entry.QueryType.IsValid() {
		return QueryLog{}, dErrors.Newf(dErrors.CodeValidation, "unknown query type %q", entry.QueryType)
	}
	if !entry.Outcome.IsValid() {
		return QueryLog{}, dErrors.Newf(dErrors.CodeValidation, "unknown outcome %q", entry.Outcome)
	}

	now := requestcontext.Now(ctx)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.OriginIP == "" {
		entry.OriginIP = requestcontext.ClientIP(ctx)
	}

	saved, err := s.store.Append(ctx, entry)
	if err != nil {
		return QueryLog{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record query log")
	}

	if saved.Outcome == OutcomeSuccess && !saved.ConsentID.IsZero() && s.usage != nil {
		if err := s.usage.RecordQueryConsentUsage(ctx, saved.ConsentID, now); err != nil {
			s.logger.WarnContext(ctx, "failed to bump consent usage",
				"consent_id", saved.ConsentID,
				"query_log_id", saved.ID,
				"error", err.Error())
		}
	}

	s.publish(ctx, saved)
	return saved, nil
}

// ListByConsultant returns the caller's own query attempts, newest first.
func (s *Service) ListByConsultant(ctx context.Context, consultantID id.EntityID, limit int) ([]QueryLog, error) {
	entries, err := s.store.ListByConsultant(ctx, consultantID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list query logs")
	}
	return entries, nil
}

// ListByTitular returns the attempts made against the caller's data, newest
// first. This is the titular-facing access transparency view.
func (s *Service) ListByTitular(ctx context.Context, titularID id.EntityID, limit int) ([]QueryLog, error) {
	entries, err := s.store.ListByTitular(ctx, titularID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list query logs")
	}
	return entries, nil
}

func (s *Service) publish(ctx context.Context, entry QueryLog) {
	if s.publisher == nil {
		return
	}
	event := Event{
		EventID:        uuid.NewString(),
		ConsentID:      int64(entry.ConsentID),
		TitularID:      int64(entry.TitularID),
		ConsultantID:   int64(entry.ConsultantID),
		OperatorUserID: int64(entry.OperatorUserID),
		QueryType:      entry.QueryType,
		Outcome:        entry.Outcome,
		Reason:         entry.Reason,
		OriginIP:       entry.OriginIP,
		OccurredAt:     entry.CreatedAt,
		RequestID:      requestcontext.RequestID(ctx),
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"query_log_id", entry.ID,
			"error", err.Error())
	}
}
