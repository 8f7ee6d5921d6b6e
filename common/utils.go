package common

import (
	"sort"
	"strings"
	"time"
)

// GenerateRunID generates a unique identifier based on the current timestamp.
// The identifier is formatted as a string in the "YYYYMMDDHHMMSS" format.
func GenerateRunID() string {
	return time.Now().Format("20060102150405")
}

// InterestSignature builds the canonical (city, sorted-interest-set) key used
// for rotation state and result caching. Ordering and case of the incoming
// interest list must not change the key.
func InterestSignature(city string, interests []string) string {
	sorted := make([]string, len(interests))
	for i, in := range interests {
		sorted[i] = strings.ToLower(strings.TrimSpace(in))
	}
	sort.Strings(sorted)
	return strings.ToLower(strings.TrimSpace(city)) + "|" + strings.Join(sorted, ",")
}

// RotateStrings returns s rotated left by offset. A nil or single-element
// slice is returned unchanged.
func RotateStrings(s []string, offset int) []string {
	if len(s) < 2 {
		return s
	}
	offset %= len(s)
	if offset < 0 {
		offset += len(s)
	}
	out := make([]string, 0, len(s))
	out = append(out, s[offset:]...)
	out = append(out, s[:offset]...)
	return out
}
