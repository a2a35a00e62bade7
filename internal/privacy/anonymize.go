package privacy

import (
	"strings"
)

const mappedPrefix = "::ffff:"

// AnonymizeIP truncates an IP address according to the given level.
//
// Returns nil for LevelFull and for any address that cannot be parsed: when
// in doubt, anonymize fully rather than store something unexpected.
func AnonymizeIP(ip string, level Level) *string {
	switch level {
	case LevelNone:
		return &ip
	case LevelPartial:
		return anonymizePartial(ip)
	default:
		// LevelFull and anything unrecognized.
		return nil
	}
}

func anonymizePartial(ip string) *string {
	ip = strings.ToLower(strings.TrimSpace(ip))

	// IPv4-mapped IPv6: anonymize the embedded IPv4 and re-wrap.
	if embedded, ok := strings.CutPrefix(ip, mappedPrefix); ok && strings.Contains(embedded, ".") {
		inner := anonymizeIPv4(embedded)
		if inner == nil {
			return nil
		}
		out := mappedPrefix + *inner
		return &out
	}

	if strings.Contains(ip, ":") {
		return anonymizeIPv6(ip)
	}
	return anonymizeIPv4(ip)
}

// anonymizeIPv4 zeroes the last octet: a.b.c.d → a.b.c.0.
func anonymizeIPv4(ip string) *string {
	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return nil
	}
	for _, o := range octets {
		if !isDecimalOctet(o) {
			return nil
		}
	}
	out := strings.Join(octets[:3], ".") + ".0"
	return &out
}

// anonymizeIPv6 keeps the first three groups (48 bits) and zeroes the
// remaining 80, then re-compresses with the canonical longest-zero-run rule.
func anonymizeIPv6(ip string) *string {
	groups, ok := expandIPv6(ip)
	if !ok {
		return nil
	}
	for i := 3; i < 8; i++ {
		groups[i] = "0000"
	}
	out := compressIPv6(groups)
	return &out
}

// expandIPv6 expands an IPv6 address to its eight 4-digit groups, resolving
// "::" compression. Returns false if the address does not expand to exactly
// eight valid groups.
func expandIPv6(ip string) ([]string, bool) {
	var groups []string

	if strings.Contains(ip, "::") {
		halves := strings.SplitN(ip, "::", 2)
		left := splitGroups(halves[0])
		right := splitGroups(halves[1])
		missing := 8 - len(left) - len(right)
		if missing < 1 {
			return nil, false
		}
		groups = append(groups, left...)
		for i := 0; i < missing; i++ {
			groups = append(groups, "0")
		}
		groups = append(groups, right...)
	} else {
		groups = splitGroups(ip)
	}

	if len(groups) != 8 {
		return nil, false
	}
	for i, g := range groups {
		if len(g) == 0 || len(g) > 4 || !isHexGroup(g) {
			return nil, false
		}
		groups[i] = strings.Repeat("0", 4-len(g)) + g
	}
	return groups, true
}

// compressIPv6 renders eight expanded groups in canonical form: leading zeros
// trimmed, and the longest run of zero groups (two or more) replaced by "::".
// When several runs share the longest length, the first one is compressed.
func compressIPv6(groups []string) string {
	trimmed := make([]string, len(groups))
	for i, g := range groups {
		t := strings.TrimLeft(g, "0")
		if t == "" {
			t = "0"
		}
		trimmed[i] = t
	}

	runStart, runLen := longestZeroRun(trimmed)
	if runLen < 2 {
		return strings.Join(trimmed, ":")
	}

	head := strings.Join(trimmed[:runStart], ":")
	tail := strings.Join(trimmed[runStart+runLen:], ":")
	return head + "::" + tail
}

func longestZeroRun(groups []string) (start, length int) {
	bestStart, bestLen := -1, 0
	curStart, curLen := -1, 0
	for i, g := range groups {
		if g == "0" {
			if curLen == 0 {
				curStart = i
			}
			curLen++
			if curLen > bestLen {
				bestStart, bestLen = curStart, curLen
			}
		} else {
			curLen = 0
		}
	}
	return bestStart, bestLen
}

func splitGroups(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}

func isDecimalOctet(s string) bool {
	if len(s) == 0 || len(s) > 3 {
		return false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n <= 255
}

func isHexGroup(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
