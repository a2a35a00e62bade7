package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventStore persists redirect events.
type EventStore interface {
	Append(ctx context.Context, ev Event) error
	ListByLink(ctx context.Context, linkID uuid.UUID, limit int) ([]Event, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	// DeleteOlderThan removes the tenant's events with a timestamp strictly
	// before the cutoff and reports how many rows went. A nil tenantID sweeps
	// events that belong to no tenant.
	DeleteOlderThan(ctx context.Context, tenantID *uuid.UUID, cutoff time.Time) (int64, error)
}

// AuditStore persists audit records. Audit retention is tracked separately
// from event retention; the enforcer sweeps both.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec AuditRecord) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AuditRecord, error)
	DeleteAuditOlderThan(ctx context.Context, tenantID *uuid.UUID, cutoff time.Time) (int64, error)
}
