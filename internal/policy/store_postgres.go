package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the policies table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS policies (
			tenant_id       TEXT PRIMARY KEY,
			threshold       DOUBLE PRECISION NOT NULL,
			auto_quarantine BOOLEAN NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate policies schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByTenant(ctx context.Context, tenantID string) (Policy, error) {
	var p Policy
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, threshold, auto_quarantine, updated_at
		FROM policies WHERE tenant_id = $1`,
		tenantID,
	).Scan(&p.TenantID, &p.Threshold, &p.AutoQuarantine, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Default(tenantID), nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("query policy: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p Policy) (Policy, error) {
	p.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (tenant_id, threshold, auto_quarantine, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id)
		DO UPDATE SET threshold = $2, auto_quarantine = $3, updated_at = $4`,
		p.TenantID, p.Threshold, p.AutoQuarantine, p.UpdatedAt,
	)
	if err != nil {
		return Policy{}, fmt.Errorf("upsert policy: %w", err)
	}
	return p, nil
}
