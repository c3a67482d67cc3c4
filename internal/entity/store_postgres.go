package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "burogate/pkg/domain"
	"burogate/pkg/platform/tx"
)

// PostgresStore reads entities from the onboarding schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entityColumns = `
	id, legal_name, tax_id, kind, active, plan, max_monthly_queries, created_at
`

func (s *PostgresStore) FindByID(ctx context.Context, entityID id.EntityID) (*Entity, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE id = $1`, int64(entityID))
	return scanEntity(row)
}

func (s *PostgresStore) FindByTaxID(ctx context.Context, taxID id.TaxID) (*Entity, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE tax_id = $1`, string(taxID))
	return scanEntity(row)
}

func scanEntity(row *sql.Row) (*Entity, error) {
	var e Entity
	var entID int64
	var taxID, kind string
	err := row.Scan(&entID, &e.LegalName, &taxID, &kind, &e.Active, &e.Plan,
		&e.MaxMonthlyQueries, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	e.ID = id.EntityID(entID)
	e.TaxID = id.TaxID(taxID)
	e.Kind = Kind(kind)
	return &e, nil
}
