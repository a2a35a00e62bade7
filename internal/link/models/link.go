package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "publink/pkg/domain-errors"
)

// LinkStatus is the link lifecycle state.
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "active"
	LinkStatusInactive LinkStatus = "inactive"
)

// Link is a short code and its default destination. Routing rules and
// analytics events are owned by the link and cascade-deleted with it.
type Link struct {
	ID             uuid.UUID  `json:"id"`
	ShortCode      string     `json:"short_code"`
	DestinationURL string     `json:"destination_url"`
	TenantID       *uuid.UUID `json:"tenant_id,omitempty"`
	// External marks an off-whitelist destination under warn mode. It is a
	// presentation flag for the UI, never an enforcement decision.
	External   bool       `json:"external"`
	Status     LinkStatus `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ClickCount int64      `json:"click_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (l *Link) IsActive() bool {
	return l.Status == LinkStatusActive
}

// Expired reports whether the link has passed its expiry at the given time.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// NewLink validates and constructs an active link.
func NewLink(id uuid.UUID, shortCode, destinationURL string, tenantID *uuid.UUID, now time.Time) (*Link, error) {
	shortCode = strings.TrimSpace(shortCode)
	if shortCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "short code cannot be empty")
	}
	if strings.ContainsAny(shortCode, " /?#") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "short code must not contain spaces or URL delimiters")
	}
	u, err := url.Parse(destinationURL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "destination must be an absolute URL")
	}
	return &Link{
		ID:             id,
		ShortCode:      shortCode,
		DestinationURL: destinationURL,
		TenantID:       tenantID,
		Status:         LinkStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
