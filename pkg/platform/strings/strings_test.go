package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		key    func(string) string
		want   []string
	}{
		{"nil input", nil, nil, nil},
		{"exact", []string{" R-1 ", "R-1", "r-1", "", "  "}, nil, []string{"R-1", "r-1"}},
		{"folded keeps first spelling", []string{"Ada  Lovelace", "ADA LOVELACE", "Grace"}, FoldKey, []string{"Ada  Lovelace", "Grace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dedupe(tt.values, tt.key))
		})
	}
}

func TestFoldKey(t *testing.T) {
	assert.Equal(t, "ada lovelace", FoldKey("  Ada \t LOVELACE\n"))
	assert.Equal(t, "", FoldKey(" \t "))
	assert.Equal(t, "a b", NormalizeSpace("a\n\nb "))
}
