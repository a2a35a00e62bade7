package privacy

import (
	"time"

	"github.com/google/uuid"

	"publink/internal/analytics"
)

// RawEvent is what the redirect handler observed before any policy applied.
// It lives only on the stack of a single request; RawEvent values are never
// persisted or logged.
type RawEvent struct {
	LinkID     uuid.UUID
	TenantID   *uuid.UUID
	Timestamp  time.Time
	IP         string
	Country    string
	Region     string
	Language   string
	DeviceType string
	Referrer   string
}

// PrepareEvent shapes a raw observation into a storable analytics event under
// the given settings. Pure: the same inputs always produce the same output.
//
// Country and region pass through only when geo collection is enabled, device
// type and referrer each behind their own flag. Language always passes: it is
// a presentation preference, not considered sensitive. The IP always goes
// through AnonymizeIP; there is no path that stores it raw.
func PrepareEvent(raw RawEvent, s Settings) analytics.Event {
	// The event ID is assigned at insert time by the store; leaving it zero
	// here keeps this function referentially transparent.
	ev := analytics.Event{
		LinkID:       raw.LinkID,
		TenantID:     raw.TenantID,
		Timestamp:    raw.Timestamp,
		Language:     optional(raw.Language),
		AnonymizedIP: AnonymizeIP(raw.IP, s.IPAnonymization),
	}
	if s.CollectGeoData {
		ev.Country = optional(raw.Country)
		ev.Region = optional(raw.Region)
	}
	if s.CollectDeviceType {
		ev.DeviceType = optional(raw.DeviceType)
	}
	if s.CollectReferrer {
		ev.Referrer = optional(raw.Referrer)
	}
	return ev
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
