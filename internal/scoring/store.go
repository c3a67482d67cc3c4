package scoring

import (
	"context"

	id "burogate/pkg/domain"
)

// Store persists score snapshots. Append-only: prior snapshots are never
// updated or deleted. Lists return newest first.
type Store interface {
	AppendSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error)
	ListSnapshots(ctx context.Context, entityID id.EntityID, limit int) ([]Snapshot, error)
	LatestSnapshot(ctx context.Context, entityID id.EntityID) (*Snapshot, error)
}
