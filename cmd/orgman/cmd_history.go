package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

func handleHistoryCommand(ctx context.Context, args []string) {
	switch args[0] {
	case "list":
		limit := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				PrintError("Invalid limit: %s\n", args[1])
				os.Exit(1)
			}
			limit = n
		}
		listHistory(ctx, limit)
	default:
		fmt.Printf("Unknown history command: %s\n", args[0])
		os.Exit(1)
	}
}

func listHistory(ctx context.Context, limit int) {
	database, err := openDB()
	if err != nil {
		PrintError("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	entries, err := database.ListHistory(ctx, limit)
	if err != nil {
		PrintError("Error listing history: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(entries)
		return
	}

	if len(entries) == 0 {
		fmt.Println("No history.")
		return
	}

	headers := []string{"ID", "WHEN", "ROOT", "STATUS", "CREATED", "MOVED", "RENAMED", "TAGGED", "SKIPPED"}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
			entry.RootPath,
			string(entry.Status),
			strconv.Itoa(entry.Created),
			strconv.Itoa(entry.Moved),
			strconv.Itoa(entry.Renamed),
			strconv.Itoa(entry.Tagged),
			strconv.Itoa(entry.Skipped),
		})
	}
	PrintTable(headers, rows)
}
