package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tomclarke/orgman/internal/catalog"
	"github.com/tomclarke/orgman/internal/engine"
	"github.com/tomclarke/orgman/internal/organizer"
)

func handleOrganizeCommand(ctx context.Context, args []string) {
	dir := args[0]

	var planFile string
	dryRun := false
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--plan":
			if i+1 >= len(args) {
				PrintError("Error: --plan requires a file argument\n")
				os.Exit(1)
			}
			i++
			planFile = args[i]
		case "--dry-run":
			dryRun = true
		default:
			PrintError("Unknown option: %s\n", args[i])
			os.Exit(1)
		}
	}

	if planFile == "" {
		PrintError("Error: organize requires --plan <file> with the raw model response\n")
		PrintError("Model integration is not built in; supply the plan text yourself.\n")
		os.Exit(1)
	}

	rawPlan, err := os.ReadFile(planFile)
	if err != nil {
		PrintError("Error reading plan file: %v\n", err)
		os.Exit(1)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		PrintError("Error resolving path: %v\n", err)
		os.Exit(1)
	}

	scanner := catalog.NewScannerWithConfig(catalog.ScanConfig{
		Workers:  cfg.Scan.Workers,
		Parallel: cfg.Scan.Parallel,
		Hash:     true,
		Preview:  cfg.Scan.Preview,
		MaxBytes: cfg.Scan.MaxBytes,
	}, catalog.NewExcludeMatcher(cfg.Exclude.Patterns, cfg.Exclude.Extensions))

	PrintInfo("Scanning %s...\n", absDir)
	cat, err := scanner.Scan(ctx, absDir)
	if err != nil {
		PrintError("Error scanning directory: %v\n", err)
		os.Exit(1)
	}
	PrintInfo("Found %d files\n", len(cat.Files))

	database, err := openDB()
	if err != nil {
		PrintError("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	service := organizer.NewService(database)

	if dryRun {
		printDryRun(service, cat, string(rawPlan))
		return
	}

	entry, err := service.Organize(ctx, cat.Root, cat.Files, string(rawPlan))
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(entry)
		return
	}

	fmt.Printf("Run %d (%s): %s\n", entry.ID, entry.RunID, entry.Status)
	fmt.Printf("  Directories created: %d\n", entry.Created)
	fmt.Printf("  Files moved:         %d\n", entry.Moved)
	fmt.Printf("  Files renamed:       %d\n", entry.Renamed)
	fmt.Printf("  Files tagged:        %d\n", entry.Tagged)
	if entry.Skipped > 0 {
		fmt.Printf("  Skipped:             %d (%s)\n", entry.Skipped, entry.ErrorText)
	}
	fmt.Printf("\nTo reverse: orgman undo %d\n", entry.ID)

	if entry.Status == engine.StatusCompletedWithErrors {
		os.Exit(2)
	}
}

func printDryRun(service *organizer.Service, cat *catalog.Catalog, rawPlan string) {
	resolved, err := service.Resolve(cat.Root, cat.Files, rawPlan)
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(resolved)
		return
	}

	fmt.Printf("Dry run for %s\n\n", resolved.Root)

	if len(resolved.Dirs) > 0 {
		fmt.Println("Directories to create:")
		for _, dir := range resolved.Dirs {
			fmt.Printf("  %s\n", dir)
		}
		fmt.Println()
	}

	if len(resolved.Files) > 0 {
		fmt.Println("File moves:")
		for _, f := range resolved.Files {
			if f.Error != "" {
				fmt.Printf("  SKIP %s (%s)\n", f.Source, f.Error)
				continue
			}
			verb := "move"
			if f.Renamed {
				verb = "rename"
			}
			fmt.Printf("  %s %s -> %s\n", verb, f.Source, f.Dest)
		}
		fmt.Println()
	}

	if len(resolved.Tags) > 0 {
		fmt.Println("Tags to apply:")
		for _, target := range resolved.Tags {
			fmt.Printf("  %s: %v\n", target.Path, target.Tags)
		}
		fmt.Println()
	}

	fmt.Printf("Summary: %d dirs, %d moves, %d tag targets", len(resolved.Dirs), len(resolved.Files), len(resolved.Tags))
	if resolved.AlreadyPlaced > 0 {
		fmt.Printf(", %d already placed", resolved.AlreadyPlaced)
	}
	if resolved.Unresolvable > 0 {
		fmt.Printf(", %d unresolvable", resolved.Unresolvable)
	}
	fmt.Println()
}
