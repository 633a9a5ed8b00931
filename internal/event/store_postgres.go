package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pageguard/pkg/sentinel"
)

// PostgresStore implements Store on PostgreSQL. Verdict fields are flattened
// onto the events row; receipts live in their own table joined on read.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the event tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS events (
			id            UUID PRIMARY KEY,
			tenant_id     TEXT NOT NULL,
			kind          TEXT NOT NULL,
			page_url      TEXT NOT NULL,
			payload       JSONB NOT NULL,
			status        TEXT NOT NULL,
			verdict       TEXT,
			severity      INT,
			confidence    DOUBLE PRECISION,
			reason_codes  TEXT[],
			action        TEXT,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS events_tenant_created_idx
			ON events (tenant_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS receipts (
			event_id    UUID PRIMARY KEY REFERENCES events (id),
			fingerprint TEXT NOT NULL,
			tx_id       TEXT NOT NULL,
			chain       TEXT NOT NULL,
			anchored_at TIMESTAMPTZ NOT NULL
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate events schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, tenantID string, kind Kind, pageURL string, payload []byte) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, tenant_id, kind, page_url, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, tenantID, string(kind), pageURL, payload, string(StatusPending), now,
	)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) AttachVerdict(ctx context.Context, eventID string, v Verdict) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET verdict = $1, severity = $2, confidence = $3, reason_codes = $4, action = $5,
		    status = CASE WHEN status = $6 THEN status ELSE $7 END,
		    updated_at = $8
		WHERE id = $9`,
		string(v.Label), v.Severity, v.Confidence, pq.Array(v.ReasonCodes), string(v.Action),
		string(StatusAcknowledged), string(StatusCompleted), time.Now(), eventID,
	)
	if err != nil {
		return fmt.Errorf("attach verdict: %w", err)
	}
	return requireRow(res, eventID)
}

func (s *PostgresStore) Acknowledge(ctx context.Context, tenantID, eventID string) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM events WHERE id = $1 AND tenant_id = $2`,
		eventID, tenantID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("acknowledge %s: %w", eventID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("acknowledge lookup: %w", err)
	}

	switch Status(status) {
	case StatusAcknowledged:
		return nil
	case StatusCompleted:
		_, err := s.db.ExecContext(ctx, `
			UPDATE events SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4`,
			string(StatusAcknowledged), time.Now(), eventID, string(StatusCompleted),
		)
		if err != nil {
			return fmt.Errorf("acknowledge update: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("acknowledge %s from %s: %w", eventID, status, sentinel.ErrInvalidState)
	}
}

func (s *PostgresStore) LinkReceipt(ctx context.Context, eventID string, r Receipt) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM events WHERE id = $1`, eventID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("link receipt %s: %w", eventID, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("link receipt lookup: %w", err)
	}
	if Status(status) == StatusPending {
		return fmt.Errorf("link receipt %s while pending: %w", eventID, sentinel.ErrInvalidState)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO receipts (event_id, fingerprint, tx_id, chain, anchored_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, r.Fingerprint, r.TxID, r.Chain, r.AnchoredAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, tenantID, eventID string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, selectEvents+`
		WHERE e.id = $1 AND e.tenant_id = $2`,
		eventID, tenantID,
	)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, tenantID string, limit, offset int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+`
		WHERE e.tenant_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

const selectEvents = `
	SELECT e.id, e.tenant_id, e.kind, e.page_url, e.payload, e.status,
	       e.verdict, e.severity, e.confidence, e.reason_codes, e.action,
	       e.created_at, e.updated_at,
	       r.fingerprint, r.tx_id, r.chain, r.anchored_at
	FROM events e
	LEFT JOIN receipts r ON r.event_id = e.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e           Event
		label       sql.NullString
		severity    sql.NullInt64
		confidence  sql.NullFloat64
		reasonCodes pq.StringArray
		action      sql.NullString
		fingerprint sql.NullString
		txID        sql.NullString
		chain       sql.NullString
		anchoredAt  sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.TenantID, &e.Kind, &e.PageURL, &e.Payload, &e.Status,
		&label, &severity, &confidence, &reasonCodes, &action,
		&e.CreatedAt, &e.UpdatedAt,
		&fingerprint, &txID, &chain, &anchoredAt,
	)
	if err != nil {
		return nil, err
	}
	if label.Valid {
		e.Verdict = &Verdict{
			Label:       Label(label.String),
			Severity:    int(severity.Int64),
			Confidence:  confidence.Float64,
			ReasonCodes: reasonCodes,
			Action:      Action(action.String),
		}
	}
	if txID.Valid {
		e.Receipt = &Receipt{
			Fingerprint: fingerprint.String,
			TxID:        txID.String,
			Chain:       chain.String,
			AnchoredAt:  anchoredAt.Time,
		}
	}
	return &e, nil
}

func requireRow(res sql.Result, eventID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	return nil
}
