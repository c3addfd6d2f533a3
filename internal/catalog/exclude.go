package catalog

import (
	"path/filepath"
	"strings"
)

// ExcludeMatcher filters scan candidates by base-name glob patterns and
// extension lists.
type ExcludeMatcher struct {
	patterns   []string
	extensions map[string]bool
}

// NewExcludeMatcher builds a matcher from config-style rule lists.
// Extensions are matched case-insensitively and must carry a leading dot.
func NewExcludeMatcher(patterns, extensions []string) *ExcludeMatcher {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[strings.ToLower(e)] = true
	}
	return &ExcludeMatcher{patterns: patterns, extensions: exts}
}

// Matches reports whether the given base name is excluded from scanning.
func (m *ExcludeMatcher) Matches(name string) bool {
	if m == nil {
		return false
	}
	if m.extensions[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	for _, p := range m.patterns {
		// Bad patterns are treated as non-matching rather than failing the scan.
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
