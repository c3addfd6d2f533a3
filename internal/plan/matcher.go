package plan

import (
	"strings"

	"github.com/tomclarke/orgman/internal/catalog"
)

// Matcher resolves filenames referenced by a plan to catalog entries.
// Model output rarely reproduces names byte-exactly, so resolution runs
// through ordered confidence tiers; the first match in the highest satisfied
// tier wins and ties resolve to catalog order.
type Matcher struct {
	files []catalog.FileRecord
}

// NewMatcher creates a matcher over the given catalog snapshot.
func NewMatcher(files []catalog.FileRecord) *Matcher {
	return &Matcher{files: files}
}

// Resolve maps a referenced name to a catalog record. Returns false when no
// tier matches; the parser never invents files that are not in the catalog.
func (m *Matcher) Resolve(name string) (catalog.FileRecord, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog.FileRecord{}, false
	}

	// Tier 1: exact full-name match.
	for _, f := range m.files {
		if f.Name == name {
			return f, true
		}
	}

	// Tier 2: exact base-name match (reference omitted the extension).
	for _, f := range m.files {
		if f.BaseName() == name {
			return f, true
		}
	}

	// Tier 3: case-insensitive full-name match.
	lower := strings.ToLower(name)
	for _, f := range m.files {
		if strings.ToLower(f.Name) == lower {
			return f, true
		}
	}

	// Tier 4: substring containment, either direction.
	for _, f := range m.files {
		fname := strings.ToLower(f.Name)
		if strings.Contains(fname, lower) || strings.Contains(lower, fname) {
			return f, true
		}
	}

	return catalog.FileRecord{}, false
}
