package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Event is one recorded redirect. It only ever holds privacy-shaped data:
// events are produced by the privacy transformer, never from raw request
// values, so a raw IP or referrer cannot reach storage by construction.
type Event struct {
	ID           uuid.UUID  `json:"id"`
	LinkID       uuid.UUID  `json:"link_id"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	Country      *string    `json:"country,omitempty"`
	Region       *string    `json:"region,omitempty"`
	Language     *string    `json:"language,omitempty"`
	DeviceType   *string    `json:"device_type,omitempty"`
	Referrer     *string    `json:"referrer,omitempty"`
	AnonymizedIP *string    `json:"anonymized_ip,omitempty"`
}

// AuditRecord captures an administrative action (tenant settings change, link
// creation) for the tenant's audit trail. Swept by the retention enforcer
// under the tenant's audit retention window.
type AuditRecord struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	Action    string     `json:"action"`
	Subject   string     `json:"subject"`
	Timestamp time.Time  `json:"timestamp"`
}
