package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists events and audit records. Rows only ever hold
// privacy-shaped data; the transformer runs before anything reaches Append.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, ev Event) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analytics_events (id, link_id, tenant_id, timestamp, country, region, language, device_type, referrer, anonymized_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, ev.ID, ev.LinkID, ev.TenantID, ev.Timestamp, ev.Country, ev.Region,
		ev.Language, ev.DeviceType, ev.Referrer, ev.AnonymizedIP)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByLink(ctx context.Context, linkID uuid.UUID, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, link_id, tenant_id, timestamp, country, region, language, device_type, referrer, anonymized_ip
		FROM analytics_events
		WHERE link_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, linkID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.LinkID, &ev.TenantID, &ev.Timestamp, &ev.Country,
			&ev.Region, &ev.Language, &ev.DeviceType, &ev.Referrer, &ev.AnonymizedIP); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM analytics_events WHERE tenant_id = $1`, tenantID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count analytics events: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, tenantID *uuid.UUID, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM analytics_events
		WHERE tenant_id IS NOT DISTINCT FROM $1 AND timestamp < $2
	`, tenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete analytics events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, rec AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_records (id, tenant_id, action, subject, timestamp)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.TenantID, rec.Action, rec.Subject, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AuditRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, action, subject, timestamp
		FROM audit_records
		WHERE tenant_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Action, &rec.Subject, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteAuditOlderThan(ctx context.Context, tenantID *uuid.UUID, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM audit_records
		WHERE tenant_id IS NOT DISTINCT FROM $1 AND timestamp < $2
	`, tenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete audit records: %w", err)
	}
	return tag.RowsAffected(), nil
}
