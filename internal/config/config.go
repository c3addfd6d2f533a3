// Package config loads orgman configuration from YAML with env overrides.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ScanConfig configures the directory scanner.
type ScanConfig struct {
	Workers  int  `yaml:"workers"`   // Parallel hash workers (0 = NumCPU)
	Parallel bool `yaml:"parallel"`  // Hash file contents in parallel
	Preview  bool `yaml:"preview"`   // Read text previews for plan context
	MaxBytes int  `yaml:"max_bytes"` // Per-file preview byte cap
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
}

// ExcludeConfig holds scanner exclusion rules.
type ExcludeConfig struct {
	Patterns   []string `yaml:"patterns"`   // Glob patterns on base names
	Extensions []string `yaml:"extensions"` // Extensions with leading dot
}

// Config holds application configuration.
type Config struct {
	DBPath     string        `yaml:"db_path"`
	HistoryCap int           `yaml:"history_cap"`
	Exclude    ExcludeConfig `yaml:"exclude"`
	Scan       ScanConfig    `yaml:"scan"`
	Logging    LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DBPath:     "orgman.db",
		HistoryCap: 50,
		Exclude: ExcludeConfig{
			Patterns:   []string{".*", "desktop.ini", "Thumbs.db"},
			Extensions: []string{".tmp", ".part", ".crdownload"},
		},
		Scan: ScanConfig{
			Workers:  0,
			Parallel: true,
			Preview:  false,
			MaxBytes: 4096,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".orgman.yaml",
		".orgman.yml",
	}

	// Check home config dir
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "orgman", "config.yaml"),
			filepath.Join(home, ".config", "orgman", "config.yml"),
			filepath.Join(home, ".orgman.yaml"),
		)
	}

	return paths
}

// Load loads configuration from file or returns defaults.
// Priority: env ORGMAN_CONFIG > search paths > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Check env for explicit config path
	if envPath := os.Getenv("ORGMAN_CONFIG"); envPath != "" {
		if err := cfg.loadFromFile(envPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	// Search for config file
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvOverrides() {
	if dbPath := os.Getenv("ORGMAN_DB"); dbPath != "" {
		c.DBPath = dbPath
	}
	if level := os.Getenv("ORGMAN_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetDBPath returns the database path, applying defaults.
func (c *Config) GetDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return "orgman.db"
}

// GetHistoryCap returns the history retention cap, applying defaults.
func (c *Config) GetHistoryCap() int {
	if c.HistoryCap > 0 {
		return c.HistoryCap
	}
	return 50
}
