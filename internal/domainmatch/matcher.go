// Package domainmatch implements hostname pattern matching for tenant domain
// whitelists. Patterns are either exact hostnames or single leading wildcards
// ("*.bund.de"); wildcards anywhere else are invalid.
package domainmatch

import (
	"net/url"
	"regexp"
	"strings"
)

// patternRe validates a normalized pattern: optional leading "*.", then
// dot-separated labels of [a-z0-9-] not starting with a hyphen, ending in a
// TLD of at least two letters.
var patternRe = regexp.MustCompile(`^(\*\.)?[a-z0-9][a-z0-9-]*(\.[a-z0-9][a-z0-9-]*)*\.[a-z]{2,}$`)

// Matches reports whether hostname satisfies pattern.
//
// An exact pattern matches case-insensitively. A wildcard pattern "*.base"
// matches both "base" itself and any hostname ending in ".base", so tenants
// whitelisting "*.bund.de" also cover the apex domain.
func Matches(hostname, pattern string) bool {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if hostname == "" || pattern == "" {
		return false
	}

	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return hostname == base || strings.HasSuffix(hostname, "."+base)
	}
	return hostname == pattern
}

// Normalize lowercases a pattern and strips scheme, path, and query so that
// operator input like "HTTPS://Stadt.Example.DE/impressum" becomes
// "stadt.example.de". Normalize is idempotent.
func Normalize(pattern string) string {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if idx := strings.Index(p, "://"); idx != -1 {
		p = p[idx+3:]
	}
	if idx := strings.Index(p, "/"); idx != -1 {
		p = p[:idx]
	}
	return p
}

// IsValid reports whether a pattern is acceptable for a tenant whitelist.
// Invalid patterns must be rejected at configuration time, never silently
// accepted into the whitelist.
func IsValid(pattern string) bool {
	p := Normalize(pattern)
	if len(p) < 4 { // shortest valid form is "a.bc"
		return false
	}
	return patternRe.MatchString(p)
}

// MatchesAny parses rawURL, extracts its hostname, and reports whether any
// pattern matches. Malformed URLs fail closed: they are treated as not
// whitelisted.
func MatchesAny(rawURL string, patterns []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostname := u.Hostname()
	if hostname == "" {
		return false
	}
	for _, p := range patterns {
		if Matches(hostname, p) {
			return true
		}
	}
	return false
}
