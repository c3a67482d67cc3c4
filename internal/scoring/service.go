package scoring

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"burogate/internal/bureau"
	"burogate/internal/platform/metrics"
	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/requestcontext"
)

// Service runs scoring computations and reads the snapshot history. Consent
// and quota gating happen in the query orchestrator before any call lands
// here.
type Service struct {
	bureau  bureau.Client
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

func New(bureauClient bureau.Client, store Store, opts ...Option) *Service {
	s := &Service{bureau: bureauClient, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate fetches the three scoring datasets in parallel, computes the
// score, and appends a snapshot. A subject unknown to the bureau yields the
// SIN_HISTORIAL terminal result, which is also snapshotted so the history
// records that the entity was scored without data.
func (s *Service) Calculate(ctx context.Context, entityID id.EntityID, taxID id.TaxID) (Result, error) {
	var (
		summary     *bureau.Summary
		obligations []bureau.Obligation
		pending     []bureau.PendingPayment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.bureau.Summary(gctx, taxID)
		return err
	})
	g.Go(func() error {
		var err error
		obligations, err = s.bureau.ObligationDetails(gctx, taxID)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = s.bureau.PendingPayments(gctx, taxID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := ComputeScore(summary, obligations, pending)
	s.metrics.ObserveScore(result.TotalScore)

	snapshot := Snapshot{
		EntityID:        entityID,
		Score:           result.TotalScore,
		TierLevel:       result.Tier.Level,
		PositiveFactors: result.PositiveFactors,
		NegativeFactors: result.NegativeFactors,
		ComputedAt:      requestcontext.Now(ctx),
	}
	if _, err := s.store.AppendSnapshot(ctx, snapshot); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist score snapshot")
	}

	s.logger.InfoContext(ctx, "score computed",
		"log_type", "audit",
		"entity_id", entityID,
		"score", result.TotalScore,
		"tier", result.Tier.Level)
	return result, nil
}

// History returns the entity's most recent snapshots, newest first.
// The window defaults to the last 12 computations.
func (s *Service) History(ctx context.Context, entityID id.EntityID, limit int) ([]Snapshot, error) {
	if limit <= 0 || limit > 12 {
		limit = 12
	}
	snapshots, err := s.store.ListSnapshots(ctx, entityID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list score snapshots")
	}
	return snapshots, nil
}

// Latest returns the entity's most recent snapshot.
func (s *Service) Latest(ctx context.Context, entityID id.EntityID) (Snapshot, error) {
	snapshot, err := s.store.LatestSnapshot(ctx, entityID)
	if err != nil {
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read latest snapshot")
	}
	if snapshot == nil {
		return Snapshot{}, dErrors.New(dErrors.CodeNotFound, "no score has been computed for this entity")
	}
	return *snapshot, nil
}

// Comparison contrasts the two most recent snapshots. The pointer fields are
// nil when only one snapshot exists.
type Comparison struct {
	Current       Snapshot
	Previous      *Snapshot
	Difference    *int
	PercentChange *float64
	Improved      *bool
}

// Compare contrasts the latest snapshot with the one before it.
func (s *Service) Compare(ctx context.Context, entityID id.EntityID) (Comparison, error) {
	snapshots, err := s.store.ListSnapshots(ctx, entityID, 2)
	if err != nil {
		return Comparison{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list score snapshots")
	}
	if len(snapshots) == 0 {
		return Comparison{}, dErrors.New(dErrors.CodeNotFound, "no score has been computed for this entity")
	}

	comparison := Comparison{Current: snapshots[0]}
	if len(snapshots) < 2 {
		return comparison, nil
	}

	previous := snapshots[1]
	difference := comparison.Current.Score - previous.Score
	improved := difference > 0
	comparison.Previous = &previous
	comparison.Difference = &difference
	comparison.Improved = &improved
	if previous.Score != 0 {
		change := math.Round(float64(difference)/float64(previous.Score)*1000) / 10
		comparison.PercentChange = &change
	}
	return comparison, nil
}
