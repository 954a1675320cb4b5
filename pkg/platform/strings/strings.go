// Package strings provides text helpers shared by extractors and matchers.
package strings

import (
	"strings"
)

// Dedupe trims each value and drops empties and repeats, keeping the first
// occurrence in order. key maps a trimmed value to the identity used for
// comparison; nil compares values exactly. Returned values are trimmed but
// otherwise unchanged.
//
// Example:
//
//	Dedupe([]string{" Ada  Lovelace", "ada lovelace", ""}, FoldKey)
//	// Returns: []string{"Ada  Lovelace"}
func Dedupe(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		k := trimmed
		if key != nil {
			k = key(trimmed)
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// NormalizeSpace collapses runs of whitespace into one space and trims the
// ends.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldKey is the case- and spacing-insensitive identity of s.
func FoldKey(s string) string {
	return strings.ToLower(NormalizeSpace(s))
}
