package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "burogate/pkg/domain"
	"burogate/pkg/platform/tx"
)

// PostgresStore keeps one counter row per (entity, period). The increment is
// a single upsert so concurrent queries in the same period never lose counts;
// UNIQUE (entity_id, period_start) backs the ON CONFLICT arbiter.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUsage(ctx context.Context, entityID id.EntityID, periodStart time.Time) (Usage, error) {
	usage := Usage{EntityID: entityID, PeriodStart: periodStart}
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT queries_performed FROM consumption_counters
		 WHERE entity_id = $1 AND period_start = $2`,
		int64(entityID), periodStart).Scan(&usage.QueriesPerformed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usage, nil
		}
		return Usage{}, fmt.Errorf("get usage: %w", err)
	}
	return usage, nil
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, entityID id.EntityID, periodStart time.Time) (Usage, error) {
	usage := Usage{EntityID: entityID, PeriodStart: periodStart}
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO consumption_counters (entity_id, period_start, queries_performed)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (entity_id, period_start)
		 DO UPDATE SET queries_performed = consumption_counters.queries_performed + 1
		 RETURNING queries_performed`,
		int64(entityID), periodStart).Scan(&usage.QueriesPerformed)
	if err != nil {
		return Usage{}, fmt.Errorf("increment usage: %w", err)
	}
	return usage, nil
}
