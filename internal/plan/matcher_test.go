package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomclarke/orgman/internal/catalog"
)

func testFiles() []catalog.FileRecord {
	return []catalog.FileRecord{
		{ID: 1, Name: "report.pdf"},
		{ID: 2, Name: "Report.PDF"},
		{ID: 3, Name: "vacation-photo.jpg"},
		{ID: 4, Name: "notes"},
	}
}

func TestMatcher_Tiers(t *testing.T) {
	m := NewMatcher(testFiles())

	tests := []struct {
		name       string
		query      string
		expectedID int64
	}{
		{"exact full name", "report.pdf", 1},
		{"exact full name, other case variant", "Report.PDF", 2},
		{"exact base name", "vacation-photo", 3},
		{"case insensitive full name", "REPORT.PDF", 1},
		{"substring, query within file", "vacation", 3},
		{"substring, file within query", "the notes file", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := m.Resolve(tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.expectedID, rec.ID)
		})
	}
}

func TestMatcher_TiesResolveToCatalogOrder(t *testing.T) {
	m := NewMatcher([]catalog.FileRecord{
		{ID: 10, Name: "photo-1.jpg"},
		{ID: 11, Name: "photo-2.jpg"},
	})

	// Both contain "photo"; the earlier catalog entry wins.
	rec, ok := m.Resolve("photo")
	require.True(t, ok)
	assert.Equal(t, int64(10), rec.ID)
}

func TestMatcher_NoMatch(t *testing.T) {
	m := NewMatcher(testFiles())

	_, ok := m.Resolve("completely-unrelated.zip")
	assert.False(t, ok)

	_, ok = m.Resolve("")
	assert.False(t, ok)

	_, ok = m.Resolve("   ")
	assert.False(t, ok)
}

func TestMatcher_HigherTierBeatsLower(t *testing.T) {
	// "notes" matches ID 4 exactly even though it is also a substring of a
	// hypothetical longer name added first.
	m := NewMatcher([]catalog.FileRecord{
		{ID: 1, Name: "meeting-notes-2024.txt"},
		{ID: 2, Name: "notes"},
	})

	rec, ok := m.Resolve("notes")
	require.True(t, ok)
	assert.Equal(t, int64(2), rec.ID, "exact full-name tier should win over substring")
}
