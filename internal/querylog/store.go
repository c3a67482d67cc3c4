package querylog

import (
	"context"

	id "burogate/pkg/domain"
)

// Store is append-only: rows can be written and listed, never changed.
type Store interface {
	Append(ctx context.Context, entry QueryLog) (QueryLog, error)
	ListByConsultant(ctx context.Context, consultantID id.EntityID, limit int) ([]QueryLog, error)
	ListByTitular(ctx context.Context, titularID id.EntityID, limit int) ([]QueryLog, error)
}
