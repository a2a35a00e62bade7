// Package privacy implements per-tenant privacy policy: IP anonymization and
// analytics event shaping. Everything here is a pure function of its inputs so
// the redirect path stays deterministic and testable.
package privacy

import (
	"fmt"
)

// Level is the strength of IP truncation applied before analytics storage.
type Level string

const (
	// LevelNone stores the IP unchanged. Discouraged; supported for
	// self-hosted deployments with a legal basis for full IPs.
	LevelNone Level = "none"
	// LevelPartial truncates the host part (last IPv4 octet, last 80 bits
	// of an IPv6 address).
	LevelPartial Level = "partial"
	// LevelFull drops the IP entirely.
	LevelFull Level = "full"
)

// Retention windows are bounded to ten years.
const MaxRetentionDays = 3650

// Settings is a tenant's privacy policy. It is owned by the tenant aggregate
// and persisted as part of it, never independently.
type Settings struct {
	IPAnonymization        Level `json:"ip_anonymization"`
	AnalyticsRetentionDays int   `json:"analytics_retention_days"`
	AuditLogRetentionDays  int   `json:"audit_log_retention_days"`
	CollectReferrer        bool  `json:"collect_referrer"`
	CollectDeviceType      bool  `json:"collect_device_type"`
	CollectGeoData         bool  `json:"collect_geo_data"`
}

// DefaultSettings is the platform-wide policy, applied to any request outside
// a tenant context and to tenants that never configured their own.
func DefaultSettings() Settings {
	return Settings{
		IPAnonymization:        LevelFull,
		AnalyticsRetentionDays: 90,
		AuditLogRetentionDays:  365,
		CollectReferrer:        false,
		CollectDeviceType:      true,
		CollectGeoData:         true,
	}
}

// Validate rejects settings a tenant administrator must not be able to save.
func (s Settings) Validate() error {
	switch s.IPAnonymization {
	case LevelNone, LevelPartial, LevelFull:
	default:
		return fmt.Errorf("unknown ip anonymization level %q", s.IPAnonymization)
	}
	if s.AnalyticsRetentionDays < 0 || s.AnalyticsRetentionDays > MaxRetentionDays {
		return fmt.Errorf("analytics retention days must be between 0 and %d", MaxRetentionDays)
	}
	if s.AuditLogRetentionDays < 0 || s.AuditLogRetentionDays > MaxRetentionDays {
		return fmt.Errorf("audit log retention days must be between 0 and %d", MaxRetentionDays)
	}
	return nil
}
