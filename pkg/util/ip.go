package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IsValidIPv4 checks if a string is a valid IPv4 address
func IsValidIPv4(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil && ip.To4() != nil
}

// IPSuffix joins the last two octets of an IPv4 address with "x".
// "10.20.3.4" -> "3x4". Input that is not a dotted address is returned unchanged.
func IPSuffix(address string) string {
	parts := strings.Split(address, ".")
	if len(parts) < 2 {
		return address
	}
	return parts[len(parts)-2] + "x" + parts[len(parts)-1]
}

// ExpandAddressRange expands a last-octet range into individual addresses.
// Supports formats like:
//   - "10.0.1.7" -> ["10.0.1.7"]
//   - "10.0.1.1-3" -> ["10.0.1.1", "10.0.1.2", "10.0.1.3"]
//   - "10.0.1.1-2,9" -> ["10.0.1.1", "10.0.1.2", "10.0.1.9"]
func ExpandAddressRange(spec string) ([]string, error) {
	spec = strings.TrimSpace(spec)
	if IsValidIPv4(spec) {
		return []string{spec}, nil
	}

	idx := strings.LastIndex(spec, ".")
	if idx < 0 {
		return nil, fmt.Errorf("invalid address: %s", spec)
	}
	prefix := spec[:idx]
	if !IsValidIPv4(prefix + ".0") {
		return nil, fmt.Errorf("invalid address prefix in %s", spec)
	}

	octets, err := ExpandRange(spec[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("invalid address range %s: %w", spec, err)
	}

	result := make([]string, 0, len(octets))
	for _, o := range octets {
		if o < 0 || o > 255 {
			return nil, fmt.Errorf("octet %d out of range in %s", o, spec)
		}
		result = append(result, prefix+"."+strconv.Itoa(o))
	}
	return result, nil
}

// ExpandAddresses expands each argument with ExpandAddressRange, keeping
// first-seen order and dropping duplicates.
func ExpandAddresses(specs []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, s := range specs {
		addrs, err := ExpandAddressRange(s)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			if !seen[a] {
				seen[a] = true
				result = append(result, a)
			}
		}
	}
	return result, nil
}

// CompactAddresses is the inverse of ExpandAddresses: addresses sharing the
// first three octets collapse into one last-octet range, in first-seen
// prefix order. ["10.0.0.1", "10.0.0.2", "10.0.0.9"] -> "10.0.0.1-2,9".
func CompactAddresses(addrs []string) string {
	var prefixes []string
	octets := make(map[string][]int)
	var other []string
	for _, a := range addrs {
		idx := strings.LastIndex(a, ".")
		n, err := strconv.Atoi(a[idx+1:])
		if idx < 0 || err != nil {
			other = append(other, a)
			continue
		}
		prefix := a[:idx+1]
		if _, ok := octets[prefix]; !ok {
			prefixes = append(prefixes, prefix)
		}
		octets[prefix] = append(octets[prefix], n)
	}

	parts := make([]string, 0, len(prefixes)+len(other))
	for _, p := range prefixes {
		parts = append(parts, p+CompactRange(octets[p]))
	}
	return strings.Join(append(parts, other...), " ")
}
