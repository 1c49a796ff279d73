// Package parser turns raw command output into partial structures. Parsers
// never fail: missing or unexpected input yields an empty partial so that one
// unsupported command cannot spoil a probe.
package parser

import "strings"

// NormalizeMAC converts the dotted (aabb.ccdd.eeff), dashed, colon and bare
// forms of a MAC address to lower-case colon-separated octets. Values that do
// not contain exactly twelve hex digits are returned trimmed but otherwise
// unchanged.
func NormalizeMAC(value string) string {
	value = strings.TrimSpace(value)
	text := strings.NewReplacer(".", "", "-", "", ":", "").Replace(value)
	text = strings.ToLower(text)
	if len(text) != 12 || !isHex(text) {
		return value
	}
	var b strings.Builder
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(text[i : i+2])
	}
	return b.String()
}

func isHex(s string) bool {
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// lines splits output into lines with carriage returns removed.
func lines(output string) []string {
	return strings.Split(strings.ReplaceAll(output, "\r", ""), "\n")
}

// splitFields behaves like strings.Fields but stops after n fields, leaving
// the remainder (leading whitespace trimmed) in the last element.
func splitFields(s string, n int) []string {
	var out []string
	s = strings.TrimLeft(s, " \t")
	for len(out) < n-1 && s != "" {
		idx := strings.IndexAny(s, " \t")
		if idx < 0 {
			break
		}
		out = append(out, s[:idx])
		s = strings.TrimLeft(s[idx:], " \t")
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
