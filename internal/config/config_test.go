package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "orgman.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.HistoryCap)
	assert.True(t, cfg.Scan.Parallel)
	assert.Equal(t, 0, cfg.Scan.Workers)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Contains(t, cfg.Exclude.Patterns, ".*")
}

func TestConfig_GetDBPath(t *testing.T) {
	tests := []struct {
		name     string
		dbPath   string
		expected string
	}{
		{"returns configured path", "custom.db", "custom.db"},
		{"returns default when empty", "", "orgman.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{DBPath: tt.dbPath}
			assert.Equal(t, tt.expected, cfg.GetDBPath())
		})
	}
}

func TestConfig_GetHistoryCap(t *testing.T) {
	tests := []struct {
		name     string
		cap      int
		expected int
	}{
		{"returns configured cap", 10, 10},
		{"returns default when zero", 0, 50},
		{"returns default when negative", -3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{HistoryCap: tt.cap}
			assert.Equal(t, tt.expected, cfg.GetHistoryCap())
		})
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
db_path: /custom/path.db
history_cap: 7
exclude:
  patterns:
    - "*.bak"
  extensions:
    - .swp
scan:
  workers: 4
  parallel: false
logging:
  format: json
  level: debug
`
	err := os.WriteFile(configPath, []byte(configContent), 0644) // #nosec G306
	require.NoError(t, err)

	cfg := DefaultConfig()
	err = cfg.loadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/custom/path.db", cfg.DBPath)
	assert.Equal(t, 7, cfg.HistoryCap)
	assert.Equal(t, []string{"*.bak"}, cfg.Exclude.Patterns)
	assert.Equal(t, []string{".swp"}, cfg.Exclude.Extensions)
	assert.Equal(t, 4, cfg.Scan.Workers)
	assert.False(t, cfg.Scan.Parallel)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfig_LoadFromFile_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")

	err := os.WriteFile(configPath, []byte("{not yaml: ["), 0644) // #nosec G306
	require.NoError(t, err)

	cfg := DefaultConfig()
	assert.Error(t, cfg.loadFromFile(configPath))
}

func TestConfig_EnvOverrides(t *testing.T) {
	orig := os.Getenv("ORGMAN_DB")
	defer func() { _ = os.Setenv("ORGMAN_DB", orig) }()

	_ = os.Setenv("ORGMAN_DB", "/env/override.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, "/env/override.db", cfg.DBPath)
}
