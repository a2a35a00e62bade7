// Package safelist applies a tenant's whitelist mode to candidate
// destinations. Decisions are pure and fail closed: anything that cannot be
// parsed is blocked before mode handling even starts.
package safelist

import (
	"fmt"
	"net/url"

	"publink/internal/domainmatch"
	"publink/internal/link/models"
	tenantmodels "publink/internal/tenant/models"
)

// builtInTrustedDomains are public-sector suffixes every tenant may always
// link to, regardless of its own whitelist.
var builtInTrustedDomains = []string{
	"*.bund.de",
	"*.bayern.de",
	"*.nrw.de",
	"*.berlin.de",
	"*.hamburg.de",
	"*.europa.eu",
	"*.gov",
	"*.gv.at",
	"*.admin.ch",
}

// Result is the validator's decision. Blocked results carry a human-readable
// reason naming the offending hostname.
type Result struct {
	Allowed bool
	// External marks an off-whitelist destination under warn mode so the UI
	// can surface a hint. It never affects Allowed.
	External bool
	Reason   string
}

func allowed() Result              { return Result{Allowed: true} }
func external() Result             { return Result{Allowed: true, External: true} }
func blocked(reason string) Result { return Result{Allowed: false, Reason: reason} }

// Validate decides whether a destination is acceptable under the given mode
// and effective whitelist.
//
// allow and warn never block; block admits only destinations whose hostname
// matches the whitelist. Use EffectiveWhitelist to build the pattern list —
// callers always pass built-ins plus the tenant's own patterns.
func Validate(rawURL string, mode tenantmodels.WhitelistMode, whitelist []string) Result {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return blocked("destination is not a valid absolute URL")
	}
	hostname := u.Hostname()

	onWhitelist := domainmatch.MatchesAny(rawURL, whitelist)

	switch mode {
	case tenantmodels.WhitelistAllow:
		return allowed()
	case tenantmodels.WhitelistWarn:
		if onWhitelist {
			return allowed()
		}
		return external()
	case tenantmodels.WhitelistBlock:
		if onWhitelist {
			return allowed()
		}
		return blocked(fmt.Sprintf("destination domain %q is not on the tenant whitelist", hostname))
	default:
		// An unknown mode should have been rejected at configuration time;
		// fail closed if one reaches us anyway.
		return blocked(fmt.Sprintf("unknown whitelist mode %q", mode))
	}
}

// EffectiveWhitelist is the pattern list the validator sees for a tenant:
// the built-in trusted domains plus the tenant's own whitelist. A nil tenant
// (no tenant context) gets only the built-ins.
func EffectiveWhitelist(t *tenantmodels.Tenant) []string {
	out := make([]string, 0, len(builtInTrustedDomains)+8)
	out = append(out, builtInTrustedDomains...)
	if t != nil {
		out = append(out, t.DomainWhitelist...)
	}
	return out
}

// ValidateForTenant is the composed form handlers use: no tenant means allow
// (platform links are unrestricted), otherwise the tenant's mode against its
// effective whitelist.
func ValidateForTenant(rawURL string, t *tenantmodels.Tenant) Result {
	if t == nil {
		// Still reject unparsable URLs, mode handling aside.
		return Validate(rawURL, tenantmodels.WhitelistAllow, nil)
	}
	return Validate(rawURL, t.WhitelistMode, EffectiveWhitelist(t))
}

// ApplyToLink stamps the validation outcome onto a link draft under warn
// mode semantics.
func ApplyToLink(l *models.Link, r Result) {
	l.External = r.External
}
