package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/baggage"

	"github.com/tomclarke/orgman/internal/config"
	"github.com/tomclarke/orgman/internal/db"
	"github.com/tomclarke/orgman/internal/logging"
	"github.com/tomclarke/orgman/internal/tracing"
)

var cfg *config.Config

func main() {
	ctx := context.Background()

	// Set global baggage
	m, _ := baggage.NewMember("app.version", "1.0.0")
	b, _ := baggage.New(m)
	ctx = baggage.ContextWithBaggage(ctx, b)

	// Load config
	var err error
	cfg, err = config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	// Setup Logging
	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	// Setup Tracing
	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
		Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
	}
	defer func() {
		if shutdown == nil {
			return
		}
		if err := shutdown(ctx); err != nil {
			logging.Error("failed to shutdown tracing", "error", err)
		}
	}()

	// Parse global flags (--json, --quiet)
	args := parseGlobalFlags(os.Args[1:])

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "organize":
		if len(args) < 2 {
			fmt.Println("Usage: orgman organize <dir> --plan <file> [--dry-run]")
			os.Exit(1)
		}
		handleOrganizeCommand(ctx, args[1:])
	case "history":
		if len(args) < 2 {
			fmt.Println("Usage: orgman history <command>")
			fmt.Println("Commands: list")
			os.Exit(1)
		}
		handleHistoryCommand(ctx, args[1:])
	case "undo":
		if len(args) < 2 {
			fmt.Println("Usage: orgman undo <id|last>")
			os.Exit(1)
		}
		handleUndoCommand(ctx, args[1:])
	case "config":
		handleConfigCommand(args[1:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("orgman - AI-plan-driven file organizer")
	fmt.Println()
	fmt.Println("Usage: orgman [global options] <command> [options]")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --json                              Output in JSON format")
	fmt.Println("  --quiet, -q                         Suppress non-error output")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  organize <dir> --plan <file>        Apply an organization plan to a directory")
	fmt.Println("           [--dry-run]                Resolve only, print what would happen")
	fmt.Println("  history list [limit]                List recent organize runs")
	fmt.Println("  undo <id|last>                      Reverse an organize run")
	fmt.Println("  config show                         Show active configuration")
	fmt.Println("  config init                         Initialize example config")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  ORGMAN_DB                           Database path (default: orgman.db)")
	fmt.Println("  ORGMAN_CONFIG                       Config file path")
}

func openDB() (*db.DB, error) {
	database, err := db.Open(cfg.GetDBPath())
	if err != nil {
		return nil, err
	}
	database.HistoryCap = cfg.GetHistoryCap()
	return database, nil
}
