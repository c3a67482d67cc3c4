package querylog

import (
	"context"
	"database/sql"
	"fmt"

	id "burogate/pkg/domain"
	"burogate/pkg/platform/tx"
)

// PostgresStore writes to query_logs. The table carries no UPDATE or DELETE
// path in this codebase; the audit trail only grows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const queryLogColumns = `
	id, consent_id, titular_id, consultant_id, operator_user_id,
	query_type, outcome, reason, origin_ip, created_at
`

func (s *PostgresStore) Append(ctx context.Context, entry QueryLog) (QueryLog, error) {
	var consentID sql.NullInt64
	if !entry.ConsentID.IsZero() {
		consentID = sql.NullInt64{Int64: int64(entry.ConsentID), Valid: true}
	}
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO query_logs
		 (consent_id, titular_id, consultant_id, operator_user_id,
		  query_type, outcome, reason, origin_ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		consentID, int64(entry.TitularID), int64(entry.ConsultantID),
		int64(entry.OperatorUserID), string(entry.QueryType), string(entry.Outcome),
		entry.Reason, entry.OriginIP, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return QueryLog{}, fmt.Errorf("append query log: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListByConsultant(ctx context.Context, consultantID id.EntityID, limit int) ([]QueryLog, error) {
	return s.list(ctx,
		`SELECT `+queryLogColumns+` FROM query_logs
		 WHERE consultant_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		int64(consultantID), normalizeLimit(limit))
}

func (s *PostgresStore) ListByTitular(ctx context.Context, titularID id.EntityID, limit int) ([]QueryLog, error) {
	return s.list(ctx,
		`SELECT `+queryLogColumns+` FROM query_logs
		 WHERE titular_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		int64(titularID), normalizeLimit(limit))
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 500
	}
	return limit
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]QueryLog, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query logs: %w", err)
	}
	defer rows.Close()

	out := make([]QueryLog, 0)
	for rows.Next() {
		var e QueryLog
		var consentID sql.NullInt64
		var titularID, consultantID, operatorID int64
		var queryType, outcome string
		err := rows.Scan(&e.ID, &consentID, &titularID, &consultantID, &operatorID,
			&queryType, &outcome, &e.Reason, &e.OriginIP, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		if consentID.Valid {
			e.ConsentID = id.ConsentID(consentID.Int64)
		}
		e.TitularID = id.EntityID(titularID)
		e.ConsultantID = id.EntityID(consultantID)
		e.OperatorUserID = id.UserID(operatorID)
		e.QueryType = QueryType(queryType)
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
