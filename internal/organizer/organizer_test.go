package organizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomclarke/orgman/internal/catalog"
	"github.com/tomclarke/orgman/internal/db"
	"github.com/tomclarke/orgman/internal/engine"
)

func newTestService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "orgman.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store), store
}

func writeFiles(t *testing.T, root string, names ...string) []catalog.FileRecord {
	t.Helper()
	records := make([]catalog.FileRecord, 0, len(names))
	for i, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
		records = append(records, catalog.FileRecord{
			ID:   int64(i + 1),
			Path: path,
			Name: name,
			Ext:  filepath.Ext(name),
		})
	}
	return records
}

func TestOrganize_RoundTrip(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	root := t.TempDir()
	files := writeFiles(t, root, "a.pdf", "b.txt")

	raw := `{"folders":[{"name":"Invoices","files":[{"filename":"a.pdf","suggested_name":"2024-Invoice.pdf"}]},{"name":"Notes","files":["b.txt"]}]}`

	entry, err := service.Organize(ctx, root, files, raw)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, engine.StatusCompleted, entry.Status)
	assert.Equal(t, 2, entry.Created)
	assert.Equal(t, 1, entry.Renamed)
	assert.Equal(t, 1, entry.Moved)
	assert.Zero(t, entry.Skipped)

	assert.FileExists(t, filepath.Join(root, "Invoices", "2024-Invoice.pdf"))
	assert.FileExists(t, filepath.Join(root, "Notes", "b.txt"))
	assert.NoFileExists(t, filepath.Join(root, "a.pdf"))

	// Entry is persisted with the full ledger.
	stored, err := store.GetHistoryEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Ledger)
	assert.Len(t, stored.Ledger.Actions, 4)
}

func TestOrganize_ThenUndo(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	root := t.TempDir()
	files := writeFiles(t, root, "a.pdf")

	raw := `{"folders":[{"name":"Invoices","files":[{"filename":"a.pdf","suggested_name":"2024-Invoice.pdf"}]}]}`

	entry, err := service.Organize(ctx, root, files, raw)
	require.NoError(t, err)

	report, err := service.Undo(ctx, entry)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 2, report.Reversed)

	assert.FileExists(t, filepath.Join(root, "a.pdf"))
	assert.NoDirExists(t, filepath.Join(root, "Invoices"))

	stored, err := store.GetHistoryEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusUndone, stored.Status)
	assert.True(t, stored.Ledger.Undone)

	// A second undo of the same entry is refused.
	_, err = service.Undo(ctx, stored)
	assert.ErrorIs(t, err, ErrAlreadyUndone)
}

func TestOrganize_TagsPersistAndUndo(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	root := t.TempDir()
	files := writeFiles(t, root, "a.pdf")

	raw := `{"folders":[{"name":"Invoices","files":[{"filename":"a.pdf","tags":["work","2024"]}]}]}`

	entry, err := service.Organize(ctx, root, files, raw)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Tagged)

	dest := filepath.Join(root, "Invoices", "a.pdf")
	tags, err := store.TagsFor(ctx, dest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"work", "2024"}, tags)

	// A tag applied outside the run survives the undo.
	_, err = store.Apply(ctx, dest, []string{"keep"}, "other-run")
	require.NoError(t, err)

	_, err = service.Undo(ctx, entry)
	require.NoError(t, err)

	tags, err = store.TagsFor(ctx, filepath.Join(root, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, tags)
}

func TestOrganize_ParseFailureTouchesNothing(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	root := t.TempDir()
	files := writeFiles(t, root, "a.pdf")

	_, err := service.Organize(ctx, root, files, "I could not produce a plan, sorry.")
	require.Error(t, err)

	assert.FileExists(t, filepath.Join(root, "a.pdf"))

	entries, err := store.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries, "parse failures should not create history entries")
}

func TestOrganize_UnmatchedFileSkipped(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	root := t.TempDir()
	files := writeFiles(t, root, "a.pdf")

	raw := `{"folders":[{"name":"Invoices","files":["a.pdf","ghost.doc"]}]}`

	entry, err := service.Organize(ctx, root, files, raw)
	require.NoError(t, err)

	// The matched file still moves; the phantom reference is dropped at parse.
	assert.Equal(t, engine.StatusCompleted, entry.Status)
	assert.FileExists(t, filepath.Join(root, "Invoices", "a.pdf"))
}

func TestResolve_DryRunTouchesNothing(t *testing.T) {
	service, _ := newTestService(t)
	root := t.TempDir()
	files := writeFiles(t, root, "a.pdf")

	raw := `{"folders":[{"name":"Invoices","files":["a.pdf"]}]}`

	resolved, err := service.Resolve(root, files, raw)
	require.NoError(t, err)
	require.Len(t, resolved.Dirs, 1)
	require.Len(t, resolved.Files, 1)
	assert.Equal(t, filepath.Join(root, "Invoices", "a.pdf"), resolved.Files[0].Dest)

	assert.NoDirExists(t, filepath.Join(root, "Invoices"))
	assert.FileExists(t, filepath.Join(root, "a.pdf"))
}

func TestUndo_NoLedger(t *testing.T) {
	service, _ := newTestService(t)

	entry := &db.HistoryEntry{RunID: "r", RootPath: "/tmp", Status: engine.StatusFailed}
	_, err := service.Undo(context.Background(), entry)
	assert.ErrorIs(t, err, ErrNoLedger)
}
