package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RuleCondition is the closed set of routing rule conditions. Each rule type
// carries its own condition shape; the evaluator switches exhaustively over
// this sum so adding or removing a type is a compile-time-checked change.
type RuleCondition interface {
	RuleType() string
	isCondition()
}

// GeographicCondition matches by visitor country. Region-level targeting is
// not implemented: a rule carrying a region never matches. That is a
// documented limitation, not a silent bug, and the constructor path keeps the
// field so existing configurations survive round-trips.
type GeographicCondition struct {
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
}

func (GeographicCondition) RuleType() string { return "geographic" }
func (GeographicCondition) isCondition()     {}

// LanguageCondition matches the visitor language. Either field may be set;
// Locale is the legacy key older configurations used for the same value.
type LanguageCondition struct {
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

func (LanguageCondition) RuleType() string { return "language" }
func (LanguageCondition) isCondition()     {}

// DeviceCondition matches the visitor device bucket (desktop/mobile/tablet/bot).
type DeviceCondition struct {
	DeviceType string `json:"device_type"`
}

func (DeviceCondition) RuleType() string { return "device" }
func (DeviceCondition) isCondition()     {}

// TimeCondition matches when the request's hour (UTC) falls inside
// [StartHour, EndHour). Windows may wrap midnight: start 22, end 6.
type TimeCondition struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

func (TimeCondition) RuleType() string { return "time" }
func (TimeCondition) isCondition()     {}

// UnknownCondition preserves a persisted rule whose type this build does not
// recognize. It never matches.
type UnknownCondition struct {
	Type string
	Raw  json.RawMessage
}

func (c UnknownCondition) RuleType() string { return c.Type }
func (UnknownCondition) isCondition()       {}

// RoutingRule is a prioritized conditional override of a link's destination.
// Evaluation never mutates the link; a rule only selects a URL.
type RoutingRule struct {
	ID        uuid.UUID     `json:"id"`
	LinkID    uuid.UUID     `json:"link_id"`
	Condition RuleCondition `json:"condition"`
	TargetURL string        `json:"target_url"`
	// Priority orders evaluation, higher first. Ties are broken by Position,
	// the stable insertion order.
	Priority  int       `json:"priority"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// DecodeCondition rebuilds a condition from its persisted type tag and JSON
// body. Unknown types decode into UnknownCondition rather than failing, so a
// newer row never breaks an older reader.
func DecodeCondition(ruleType string, raw []byte) (RuleCondition, error) {
	switch ruleType {
	case "geographic":
		var c GeographicCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode geographic condition: %w", err)
		}
		return c, nil
	case "language":
		var c LanguageCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode language condition: %w", err)
		}
		return c, nil
	case "device":
		var c DeviceCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode device condition: %w", err)
		}
		return c, nil
	case "time":
		var c TimeCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode time condition: %w", err)
		}
		return c, nil
	default:
		return UnknownCondition{Type: ruleType, Raw: append([]byte(nil), raw...)}, nil
	}
}

// EncodeCondition renders a condition to its persisted type tag and JSON body.
func EncodeCondition(c RuleCondition) (ruleType string, raw []byte, err error) {
	if u, ok := c.(UnknownCondition); ok {
		return u.Type, u.Raw, nil
	}
	raw, err = json.Marshal(c)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s condition: %w", c.RuleType(), err)
	}
	return c.RuleType(), raw, nil
}
