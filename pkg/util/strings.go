package util

import "strings"

// SplitCommaSeparated splits a comma-separated string and trims whitespace from each element.
// Empty input returns nil.
func SplitCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// MACFileName converts a MAC address into a log file stem:
// lowercased, with ':' replaced by '.'.
func MACFileName(mac string) string {
	return strings.ReplaceAll(strings.ToLower(mac), ":", ".")
}

// ModelPrefix lowercases a model name and truncates it at the first '-'.
// "S19-88" -> "s19".
func ModelPrefix(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	if i := strings.Index(m, "-"); i >= 0 {
		m = m[:i]
	}
	return m
}
