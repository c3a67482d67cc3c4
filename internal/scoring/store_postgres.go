package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	id "burogate/pkg/domain"
	"burogate/pkg/platform/tx"
)

// PostgresStore writes to score_snapshots. Factor lists are stored as JSON
// arrays; the table has no UPDATE or DELETE path in this codebase.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AppendSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	positives, err := json.Marshal(snapshot.PositiveFactors)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode positive factors: %w", err)
	}
	negatives, err := json.Marshal(snapshot.NegativeFactors)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode negative factors: %w", err)
	}

	err = tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO score_snapshots
		 (entity_id, score, tier_level, positive_factors, negative_factors, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		int64(snapshot.EntityID), snapshot.Score, string(snapshot.TierLevel),
		positives, negatives, snapshot.ComputedAt).Scan(&snapshot.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("append score snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, entityID id.EntityID, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT id, entity_id, score, tier_level, positive_factors, negative_factors, computed_at
		 FROM score_snapshots
		 WHERE entity_id = $1 ORDER BY computed_at DESC, id DESC LIMIT $2`,
		int64(entityID), limit)
	if err != nil {
		return nil, fmt.Errorf("list score snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]Snapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, snapshot)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, entityID id.EntityID) (*Snapshot, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, entity_id, score, tier_level, positive_factors, negative_factors, computed_at
		 FROM score_snapshots
		 WHERE entity_id = $1 ORDER BY computed_at DESC, id DESC LIMIT 1`,
		int64(entityID))
	snapshot, err := scanSnapshot(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func scanSnapshot(scan func(...any) error) (Snapshot, error) {
	var snapshot Snapshot
	var entityID int64
	var tier string
	var positives, negatives []byte
	err := scan(&snapshot.ID, &entityID, &snapshot.Score, &tier,
		&positives, &negatives, &snapshot.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("scan score snapshot: %w", err)
	}
	snapshot.EntityID = id.EntityID(entityID)
	snapshot.TierLevel = TierLevel(tier)
	if err := json.Unmarshal(positives, &snapshot.PositiveFactors); err != nil {
		return Snapshot{}, fmt.Errorf("decode positive factors: %w", err)
	}
	if err := json.Unmarshal(negatives, &snapshot.NegativeFactors); err != nil {
		return Snapshot{}, fmt.Errorf("decode negative factors: %w", err)
	}
	return snapshot, nil
}
