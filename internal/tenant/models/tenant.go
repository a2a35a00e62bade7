package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"publink/internal/privacy"
	dErrors "publink/pkg/domain-errors"
)

// WhitelistMode is the tenant-level policy governing which destination
// domains are acceptable for links.
type WhitelistMode string

const (
	// WhitelistAllow places no restriction on destinations.
	WhitelistAllow WhitelistMode = "allow"
	// WhitelistWarn never blocks; it only marks off-whitelist destinations
	// as external so the UI can surface a hint. Do not conflate with block.
	WhitelistWarn WhitelistMode = "warn"
	// WhitelistBlock rejects destinations whose hostname matches neither the
	// tenant whitelist nor the built-in trusted domains.
	WhitelistBlock WhitelistMode = "block"
)

func (m WhitelistMode) Valid() bool {
	switch m {
	case WhitelistAllow, WhitelistWarn, WhitelistBlock:
		return true
	}
	return false
}

// TenantStatus is the tenant lifecycle state.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

// CanTransitionTo allows only active ↔ inactive.
func (s TenantStatus) CanTransitionTo(target TenantStatus) bool {
	return s != target && (target == TenantStatusActive || target == TenantStatusInactive)
}

// Tenant is the aggregate root for an operator organization (ministry, city).
//
// Invariants:
//   - Slug is non-empty, lowercase, unique across tenants
//   - WhitelistMode is one of allow/warn/block
//   - Every DomainWhitelist entry passed pattern validation at write time
//   - Status transitions: active ↔ inactive only
//
// Deactivation is an immediate boundary: an inactive tenant's custom domains
// drop out of the domain cache on the next refresh and its rows are skipped
// by the retention sweep. Data is kept; nothing cascades on status change.
type Tenant struct {
	ID              uuid.UUID        `json:"id"`
	Slug            string           `json:"slug"`
	Name            string           `json:"name"`
	DomainWhitelist []string         `json:"domain_whitelist"`
	WhitelistMode   WhitelistMode    `json:"whitelist_mode"`
	PrivacySettings privacy.Settings `json:"privacy_settings"`
	APIKeyHash      string           `json:"-"`
	Status          TenantStatus     `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// CanDeactivate checks if the tenant can transition to inactive status.
func (t *Tenant) CanDeactivate() error {
	if !t.Status.CanTransitionTo(TenantStatusInactive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions the tenant to inactive status.
// Call CanDeactivate first to validate the transition.
func (t *Tenant) ApplyDeactivation(now time.Time) {
	t.Status = TenantStatusInactive
	t.UpdatedAt = now
}

// CanReactivate checks if the tenant can transition to active status.
func (t *Tenant) CanReactivate() error {
	if !t.Status.CanTransitionTo(TenantStatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	return nil
}

// ApplyReactivation transitions the tenant to active status.
// Call CanReactivate first to validate the transition.
func (t *Tenant) ApplyReactivation(now time.Time) {
	t.Status = TenantStatusActive
	t.UpdatedAt = now
}

// NewTenant constructs an active tenant with default privacy settings.
func NewTenant(tenantID uuid.UUID, slug, name string, now time.Time) (*Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant slug cannot be empty")
	}
	if strings.ContainsAny(slug, " /.") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant slug must not contain spaces, slashes, or dots")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 128 characters or less")
	}
	return &Tenant{
		ID:              tenantID,
		Slug:            slug,
		Name:            name,
		WhitelistMode:   WhitelistWarn,
		PrivacySettings: privacy.DefaultSettings(),
		Status:          TenantStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
