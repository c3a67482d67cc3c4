package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	id "burogate/pkg/domain"
	dErrors "burogate/pkg/domain-errors"
	"burogate/pkg/platform/tx"
)

// PostgresStore persists consents. Self-consent exclusivity is enforced by
// an in-transaction existence check behind a per-entity advisory lock; a
// unique index cannot express "not yet expired", so the schema carries none.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entityConsentColumns = `
	id, entity_id, start_at, expiry_at, revoked, revoked_at, created_at
`

const queryConsentColumns = `
	id, titular_id, consultant_id, start_at, expiry_at, revoked, revoked_at,
	queries_performed, last_used_at, origin_ip, created_at
`

func (s *PostgresStore) CreateEntityConsent(ctx context.Context, c EntityConsent, now time.Time) (EntityConsent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EntityConsent{}, fmt.Errorf("begin create entity consent: %w", err)
	}
	defer tx.Rollback()

	// Serializes concurrent creates for the same entity for the duration of
	// the transaction.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(c.EntityID)); err != nil {
		return EntityConsent{}, fmt.Errorf("acquire consent lock: %w", err)
	}

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM entity_consents
		 WHERE entity_id = $1 AND NOT revoked AND expiry_at >= $2`,
		int64(c.EntityID), now).Scan(&existing)
	if err != nil {
		return EntityConsent{}, fmt.Errorf("check active entity consent: %w", err)
	}
	if existing > 0 {
		return EntityConsent{}, dErrors.New(dErrors.CodeConflict, "entity already has an active consent")
	}

	var newID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO entity_consents (entity_id, start_at, expiry_at, revoked, created_at)
		 VALUES ($1, $2, $3, false, $4)
		 RETURNING id`,
		int64(c.EntityID), c.Start, c.Expiry, now).Scan(&newID)
	if err != nil {
		return EntityConsent{}, fmt.Errorf("insert entity consent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return EntityConsent{}, fmt.Errorf("commit entity consent: %w", err)
	}

	c.ID = id.ConsentID(newID)
	c.CreatedAt = now
	return c, nil
}

func (s *PostgresStore) GetEntityConsent(ctx context.Context, consentID id.ConsentID) (*EntityConsent, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entityConsentColumns+` FROM entity_consents WHERE id = $1`,
		int64(consentID))
	return scanEntityConsent(row)
}

func (s *PostgresStore) FindActiveEntityConsent(ctx context.Context, entityID id.EntityID, now time.Time) (*EntityConsent, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entityConsentColumns+` FROM entity_consents
		 WHERE entity_id = $1 AND NOT revoked AND start_at <= $2 AND expiry_at >= $2
		 ORDER BY expiry_at DESC LIMIT 1`,
		int64(entityID), now)
	return scanEntityConsent(row)
}

func (s *PostgresStore) RevokeEntityConsent(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) error {
	return s.exec(ctx, "revoke entity consent",
		`UPDATE entity_consents SET revoked = true, revoked_at = $2 WHERE id = $1`,
		int64(consentID), revokedAt)
}

func (s *PostgresStore) ExtendEntityConsent(ctx context.Context, consentID id.ConsentID, expiry time.Time) error {
	return s.exec(ctx, "extend entity consent",
		`UPDATE entity_consents SET expiry_at = $2 WHERE id = $1`,
		int64(consentID), expiry)
}

func (s *PostgresStore) CreateQueryConsent(ctx context.Context, c QueryConsent) (QueryConsent, error) {
	var newID int64
	var createdAt time.Time
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO query_consents
		 (titular_id, consultant_id, start_at, expiry_at, revoked, queries_performed, origin_ip)
		 VALUES ($1, $2, $3, $4, false, 0, $5)
		 RETURNING id, created_at`,
		int64(c.TitularID), int64(c.ConsultantID), c.Start, c.Expiry, c.OriginIP).
		Scan(&newID, &createdAt)
	if err != nil {
		return QueryConsent{}, fmt.Errorf("insert query consent: %w", err)
	}
	c.ID = id.ConsentID(newID)
	c.CreatedAt = createdAt
	return c, nil
}

func (s *PostgresStore) GetQueryConsent(ctx context.Context, consentID id.ConsentID) (*QueryConsent, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+queryConsentColumns+` FROM query_consents WHERE id = $1`,
		int64(consentID))
	return scanQueryConsent(row)
}

func (s *PostgresStore) FindActiveQueryConsent(ctx context.Context, titularID, consultantID id.EntityID, now time.Time) (*QueryConsent, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+queryConsentColumns+` FROM query_consents
		 WHERE titular_id = $1 AND consultant_id = $2
		   AND NOT revoked AND start_at <= $3 AND expiry_at >= $3
		 ORDER BY expiry_at DESC LIMIT 1`,
		int64(titularID), int64(consultantID), now)
	return scanQueryConsent(row)
}

func (s *PostgresStore) ListQueryConsentsByTitular(ctx context.Context, titularID id.EntityID) ([]QueryConsent, error) {
	return s.listQueryConsents(ctx,
		`SELECT `+queryConsentColumns+` FROM query_consents
		 WHERE titular_id = $1 ORDER BY created_at DESC`,
		int64(titularID))
}

func (s *PostgresStore) ListQueryConsentsByConsultant(ctx context.Context, consultantID id.EntityID) ([]QueryConsent, error) {
	return s.listQueryConsents(ctx,
		`SELECT `+queryConsentColumns+` FROM query_consents
		 WHERE consultant_id = $1 ORDER BY created_at DESC`,
		int64(consultantID))
}

func (s *PostgresStore) RevokeQueryConsent(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) error {
	return s.exec(ctx, "revoke query consent",
		`UPDATE query_consents SET revoked = true, revoked_at = $2 WHERE id = $1`,
		int64(consentID), revokedAt)
}

func (s *PostgresStore) ExtendQueryConsent(ctx context.Context, consentID id.ConsentID, expiry time.Time) error {
	return s.exec(ctx, "extend query consent",
		`UPDATE query_consents SET expiry_at = $2 WHERE id = $1`,
		int64(consentID), expiry)
}

func (s *PostgresStore) RecordQueryConsentUsage(ctx context.Context, consentID id.ConsentID, usedAt time.Time) error {
	return s.exec(ctx, "record query consent usage",
		`UPDATE query_consents
		 SET queries_performed = queries_performed + 1, last_used_at = $2
		 WHERE id = $1`,
		int64(consentID), usedAt)
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	return nil
}

func (s *PostgresStore) listQueryConsents(ctx context.Context, query string, args ...any) ([]QueryConsent, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query consents: %w", err)
	}
	defer rows.Close()

	out := make([]QueryConsent, 0)
	for rows.Next() {
		c, err := scanQueryConsentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanEntityConsent(row *sql.Row) (*EntityConsent, error) {
	var c EntityConsent
	var consentID, entityID int64
	err := row.Scan(&consentID, &entityID, &c.Start, &c.Expiry, &c.Revoked,
		&c.RevokedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan entity consent: %w", err)
	}
	c.ID = id.ConsentID(consentID)
	c.EntityID = id.EntityID(entityID)
	return &c, nil
}

func scanQueryConsent(row *sql.Row) (*QueryConsent, error) {
	var c QueryConsent
	var consentID, titularID, consultantID int64
	err := row.Scan(&consentID, &titularID, &consultantID, &c.Start, &c.Expiry,
		&c.Revoked, &c.RevokedAt, &c.QueriesPerformed, &c.LastUsedAt,
		&c.OriginIP, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan query consent: %w", err)
	}
	c.ID = id.ConsentID(consentID)
	c.TitularID = id.EntityID(titularID)
	c.ConsultantID = id.EntityID(consultantID)
	return &c, nil
}

func scanQueryConsentRow(rows *sql.Rows) (QueryConsent, error) {
	var c QueryConsent
	var consentID, titularID, consultantID int64
	err := rows.Scan(&consentID, &titularID, &consultantID, &c.Start, &c.Expiry,
		&c.Revoked, &c.RevokedAt, &c.QueriesPerformed, &c.LastUsedAt,
		&c.OriginIP, &c.CreatedAt)
	if err != nil {
		return QueryConsent{}, fmt.Errorf("scan query consent: %w", err)
	}
	c.ID = id.ConsentID(consentID)
	c.TitularID = id.EntityID(titularID)
	c.ConsultantID = id.EntityID(consultantID)
	return c, nil
}
