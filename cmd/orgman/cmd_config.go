package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func handleConfigCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: orgman config <command>")
		fmt.Println("Commands: show, init")
		os.Exit(1)
	}

	switch args[0] {
	case "show":
		showConfig()
	case "init":
		initConfig()
	default:
		fmt.Printf("Unknown config command: %s\n", args[0])
		os.Exit(1)
	}
}

func showConfig() {
	if outputCfg.JSON {
		PrintResult(cfg)
		return
	}

	// Pretty print as YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		PrintError("Error: failed to marshal config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("# Active Configuration")
	fmt.Println(string(data))
}

func initConfig() {
	configPath := ".orgman.yaml"

	// Check if file exists
	if _, err := os.Stat(configPath); err == nil {
		PrintError("Error: config file already exists at %s\n", configPath)
		os.Exit(1)
	}

	example := `# orgman configuration
db_path: orgman.db

# Retained organize runs; oldest trimmed first
history_cap: 50

exclude:
  patterns:
    - ".*"
    - desktop.ini
    - Thumbs.db
  extensions:
    - .tmp
    - .part
    - .crdownload

scan:
  parallel: true
  workers: 4
  preview: false
  max_bytes: 4096

logging:
  level: info   # debug, info, warn, error
  format: text  # text or json
`

	if err := os.WriteFile(configPath, []byte(example), 0o644); err != nil {
		PrintError("Error: failed to write config: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(map[string]string{"path": configPath, "status": "created"})
	} else {
		PrintInfo("Created config file: %s\n", configPath)
	}
}
