package entity

import (
	"context"

	id "burogate/pkg/domain"
)

// Store resolves entities. Implementations return (nil, nil) when the entity
// does not exist; callers decide whether that is an error.
type Store interface {
	FindByID(ctx context.Context, entityID id.EntityID) (*Entity, error)
	FindByTaxID(ctx context.Context, taxID id.TaxID) (*Entity, error)
}
