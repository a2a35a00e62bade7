package middleware

import (
	"strings"

	"github.com/mssola/useragent"
)

// Device types as recorded in analytics and matched by routing rules.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
)

// DeviceTypeFromUserAgent classifies a User-Agent into the coarse device
// buckets routing rules understand. Unknown agents count as desktop, which
// keeps rule evaluation deterministic for curl-style clients.
func DeviceTypeFromUserAgent(rawUA string) string {
	if rawUA == "" {
		return DeviceDesktop
	}
	ua := useragent.New(rawUA)
	if ua.Bot() {
		return DeviceBot
	}
	if ua.Mobile() {
		// The parser reports tablets as mobile; distinguish them by model.
		if isTablet(rawUA) {
			return DeviceTablet
		}
		return DeviceMobile
	}
	if isTablet(rawUA) {
		return DeviceTablet
	}
	return DeviceDesktop
}

func isTablet(rawUA string) bool {
	lower := strings.ToLower(rawUA)
	return strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet")
}
