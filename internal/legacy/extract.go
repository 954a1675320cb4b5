package legacy

import (
	"regexp"

	"certledger/internal/certificate/models"
	strs "certledger/pkg/platform/strings"
)

var (
	identifierPattern = regexp.MustCompile(`(?i)Roll No[:\s]+([\w-]+)`)
	// letters and horizontal whitespace only, so the match ends at the line break
	namePattern = regexp.MustCompile(`(?i)\bName[:\s]+([a-zA-Z][a-zA-Z \t]*)`)
)

// Extract pulls the legacy identifier and holder name out of recognized
// text. The first labeled occurrence of each field wins; Ambiguous is set
// when a later occurrence disagrees with it.
func Extract(text string) models.ExtractedDetails {
	d := models.ExtractedDetails{FullText: text}
	ids := strs.Dedupe(captures(identifierPattern.FindAllStringSubmatch(text, -1)), nil)
	names := strs.Dedupe(captures(namePattern.FindAllStringSubmatch(text, -1)), strs.FoldKey)
	if len(ids) > 0 {
		d.RollNumber = ids[0]
	}
	if len(names) > 0 {
		d.Name = names[0]
	}
	d.Ambiguous = len(ids) > 1 || len(names) > 1
	return d
}

// captures returns the first group of every match.
func captures(matches [][]string) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// namesMatch compares holder names case-insensitively, ignoring runs of
// whitespace.
func namesMatch(a, b string) bool {
	return strs.FoldKey(a) == strs.FoldKey(b)
}
