// Package routing selects the effective destination for a redirect among a
// link's prioritized conditional rules. Evaluation is a pure function of the
// link, its rules, and the normalized request context.
package routing

import (
	"sort"
	"strings"
	"time"

	"publink/internal/link/models"
)

// Context is the visitor context rules match against. All fields are
// optional. Callers normalize before evaluation: country uppercased,
// language and device type lowercased.
type Context struct {
	Country    string
	Language   string
	DeviceType string
	// Now anchors time-window rules. Zero means "time unknown", and
	// time rules do not match.
	Now time.Time
}

// Normalize returns a copy with the casing conventions applied, so handlers
// can pass raw header values.
func (c Context) Normalize() Context {
	return Context{
		Country:    strings.ToUpper(strings.TrimSpace(c.Country)),
		Language:   strings.ToLower(strings.TrimSpace(c.Language)),
		DeviceType: strings.ToLower(strings.TrimSpace(c.DeviceType)),
		Now:        c.Now,
	}
}

// ResolveDestination returns the target of the first matching rule in
// priority order (higher first, insertion order on ties), or the link's own
// destination when no rule matches. It never mutates the link and never
// fails: existence checks are the caller's job.
func ResolveDestination(link *models.Link, rules []models.RoutingRule, ctx Context) string {
	ordered := make([]models.RoutingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Position < ordered[j].Position
	})

	for _, rule := range ordered {
		if matches(rule.Condition, ctx) {
			return rule.TargetURL
		}
	}
	return link.DestinationURL
}

func matches(cond models.RuleCondition, ctx Context) bool {
	switch c := cond.(type) {
	case models.GeographicCondition:
		// Region-level targeting is unsupported; a rule constrained to a
		// region never matches rather than matching too broadly.
		if c.Region != "" {
			return false
		}
		return c.Country != "" && ctx.Country != "" && strings.EqualFold(c.Country, ctx.Country)

	case models.LanguageCondition:
		want := c.Language
		if want == "" {
			want = c.Locale
		}
		return matchesLanguage(want, ctx.Language)

	case models.DeviceCondition:
		return c.DeviceType != "" && ctx.DeviceType != "" && strings.EqualFold(c.DeviceType, ctx.DeviceType)

	case models.TimeCondition:
		if ctx.Now.IsZero() {
			return false
		}
		return hourInWindow(ctx.Now.UTC().Hour(), c.StartHour, c.EndHour)

	case models.UnknownCondition:
		return false

	default:
		// Unreachable for conditions constructed through this package's
		// models; kept so a partially migrated row cannot match by accident.
		return false
	}
}

// matchesLanguage accepts an exact case-insensitive match, and additionally a
// bare-language rule ("de") against a full-locale context ("de-DE").
func matchesLanguage(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	want = strings.ToLower(want)
	got = strings.ToLower(got)
	if want == got {
		return true
	}
	return !strings.Contains(want, "-") && strings.HasPrefix(got, want+"-")
}

// hourInWindow treats [start, end) as a half-open window that may wrap
// midnight. start == end is an empty window.
func hourInWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
