package feedback

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the feedback table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS feedback (
			id         TEXT PRIMARY KEY,
			event_id   TEXT NOT NULL,
			tenant_id  TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			label      TEXT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS feedback_tenant_created_idx
			ON feedback (tenant_id, created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate feedback schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, f Feedback) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, event_id, tenant_id, user_id, label, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.EventID, f.TenantID, f.UserID, f.Label, f.Notes, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, tenant_id, user_id, label, notes, created_at
		FROM feedback
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.EventID, &f.TenantID, &f.UserID, &f.Label, &f.Notes, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
