package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomclarke/orgman/internal/engine"
)

func TestHistory_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ledger := engine.NewLedger("/srv/downloads")
	ledger.Append(engine.Action{Kind: engine.ActionCreateDir, Path: "/srv/downloads/Invoices"})
	ledger.Append(engine.Action{Kind: engine.ActionMove,
		From: "/srv/downloads/a.pdf", To: "/srv/downloads/Invoices/a.pdf"})

	entry := &HistoryEntry{
		RunID:    ledger.RunID,
		RootPath: ledger.Root,
		Status:   engine.StatusCompleted,
		Created:  1,
		Moved:    1,
		Ledger:   ledger,
	}
	require.NoError(t, db.CreateHistoryEntry(ctx, entry))
	assert.NotZero(t, entry.ID, "create should assign an ID")

	got, err := db.GetHistoryEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.RunID, got.RunID)
	assert.Equal(t, "/srv/downloads", got.RootPath)
	assert.Equal(t, engine.StatusCompleted, got.Status)
	assert.Equal(t, 1, got.Created)
	assert.Equal(t, 1, got.Moved)
	require.NotNil(t, got.Ledger)
	require.Len(t, got.Ledger.Actions, 2)
	assert.Equal(t, engine.ActionMove, got.Ledger.Actions[1].Kind)
	assert.False(t, got.Ledger.Undone)
}

func TestHistory_Update(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	ledger := engine.NewLedger("/srv/downloads")
	entry := &HistoryEntry{
		RunID:    ledger.RunID,
		RootPath: ledger.Root,
		Status:   engine.StatusCompleted,
		Ledger:   ledger,
	}
	require.NoError(t, db.CreateHistoryEntry(ctx, entry))

	entry.Status = engine.StatusUndone
	entry.Ledger.Undone = true
	entry.ErrorText = ""
	require.NoError(t, db.UpdateHistoryEntry(ctx, entry))

	got, err := db.GetHistoryEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusUndone, got.Status)
	require.NotNil(t, got.Ledger)
	assert.True(t, got.Ledger.Undone)
}

func TestHistory_LatestEmpty(t *testing.T) {
	db := openTestDB(t)

	entry, err := db.LatestHistoryEntry(context.Background())
	require.NoError(t, err)
	assert.Nil(t, entry, "latest on empty history should be nil")
}

func TestHistory_ListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := &HistoryEntry{
			RunID:    fmt.Sprintf("run-%d", i),
			RootPath: "/srv/downloads",
			Status:   engine.StatusCompleted,
		}
		require.NoError(t, db.CreateHistoryEntry(ctx, entry))
	}

	entries, err := db.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, "run-0", entries[2].RunID)

	entries, err = db.ListHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "run-2", entries[0].RunID)

	latest, err := db.LatestHistoryEntry(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-2", latest.RunID)
}

func TestHistory_CapTrimsOldest(t *testing.T) {
	db := openTestDB(t)
	db.HistoryCap = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := &HistoryEntry{
			RunID:    fmt.Sprintf("run-%d", i),
			RootPath: "/srv/downloads",
			Status:   engine.StatusCompleted,
		}
		require.NoError(t, db.CreateHistoryEntry(ctx, entry))
	}

	entries, err := db.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3, "history should be trimmed to the cap")
	assert.Equal(t, "run-4", entries[0].RunID)
	assert.Equal(t, "run-2", entries[2].RunID, "oldest entries should be dropped first")
}

func TestHistory_GetMissing(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetHistoryEntry(context.Background(), 9999)
	assert.Error(t, err)
}
