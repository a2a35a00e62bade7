package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"publink/internal/domainmatch"
	dErrors "publink/pkg/domain-errors"
)

// CustomDomain maps one verified hostname to its owning tenant. A tenant may
// own many domains; each domain belongs to exactly one tenant. Deleted with
// its tenant.
//
// Only verified domains of active tenants enter the domain cache.
type CustomDomain struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Domain    string    `json:"domain"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCustomDomain validates and normalizes the hostname. Wildcards are not
// allowed here; a custom domain is one concrete hostname.
func NewCustomDomain(id, tenantID uuid.UUID, domain string, now time.Time) (*CustomDomain, error) {
	normalized := domainmatch.Normalize(domain)
	if strings.HasPrefix(normalized, "*.") || !domainmatch.IsValid(normalized) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid custom domain hostname")
	}
	return &CustomDomain{
		ID:        id,
		TenantID:  tenantID,
		Domain:    normalized,
		Verified:  false,
		CreatedAt: now,
	}, nil
}
