package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/tomclarke/orgman/internal/db"
	"github.com/tomclarke/orgman/internal/engine"
	"github.com/tomclarke/orgman/internal/organizer"
)

func handleUndoCommand(ctx context.Context, args []string) {
	database, err := openDB()
	if err != nil {
		PrintError("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	var entry *db.HistoryEntry
	if args[0] == "last" {
		entry, err = database.LatestHistoryEntry(ctx)
		if err != nil {
			PrintError("Error loading history: %v\n", err)
			os.Exit(1)
		}
		if entry == nil {
			PrintError("No history to undo.\n")
			os.Exit(1)
		}
	} else {
		id, convErr := strconv.ParseInt(args[0], 10, 64)
		if convErr != nil {
			PrintError("Invalid run ID: %s\n", args[0])
			os.Exit(1)
		}
		entry, err = database.GetHistoryEntry(ctx, id)
		if err != nil {
			PrintError("Error loading run %d: %v\n", id, err)
			os.Exit(1)
		}
	}

	service := organizer.NewService(database)
	report, err := service.Undo(ctx, entry)
	if err != nil {
		switch {
		case errors.Is(err, organizer.ErrAlreadyUndone):
			PrintError("Run %d has already been undone.\n", entry.ID)
		case errors.Is(err, organizer.ErrNoLedger):
			PrintError("Run %d recorded no actions; nothing to undo.\n", entry.ID)
		default:
			PrintError("Error undoing run %d: %v\n", entry.ID, err)
		}
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(report)
		return
	}

	fmt.Printf("Undo of run %d (%s):\n", entry.ID, entry.RunID)
	fmt.Printf("  Reversed:         %d\n", report.Reversed)
	fmt.Printf("  Already reversed: %d\n", report.AlreadyReversed)
	fmt.Printf("  Conflicts:        %d\n", report.Conflicts)

	if report.Conflicts > 0 {
		fmt.Println("\nConflicts:")
		for _, item := range report.Items {
			if item.Outcome != engine.OutcomeConflict {
				continue
			}
			path := item.Action.Path
			if path == "" {
				path = item.Action.To
			}
			fmt.Printf("  %s %s: %s\n", item.Action.Kind, path, item.Error)
		}
		os.Exit(2)
	}
}
