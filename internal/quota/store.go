package quota

import (
	"context"
	"time"

	id "burogate/pkg/domain"
)

// Store persists consumption counters. GetUsage returns a zero-valued Usage
// when no counter row exists for the period yet. IncrementUsage must be
// atomic under concurrent callers and returns the post-increment counter.
type Store interface {
	GetUsage(ctx context.Context, entityID id.EntityID, periodStart time.Time) (Usage, error)
	IncrementUsage(ctx context.Context, entityID id.EntityID, periodStart time.Time) (Usage, error)
}
