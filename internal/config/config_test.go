package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".maestro", cfg.StateDir)
	assert.Equal(t, 50, cfg.CheckpointLimit)
	assert.Equal(t, 10*time.Minute, cfg.CommandTimeout)
	assert.Equal(t, "cancel", cfg.OnStepFailure)
	assert.Equal(t, "abort", cfg.OnRollbackConflict)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
state_dir: /tmp/maestro-state
checkpoint_limit: 5
command_timeout: 30s
on_step_failure: continue
log_level: debug
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/maestro-state", cfg.StateDir)
	assert.Equal(t, 5, cfg.CheckpointLimit)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout)
	assert.Equal(t, "continue", cfg.OnStepFailure)
	// Unset keys keep their defaults.
	assert.Equal(t, "abort", cfg.OnRollbackConflict)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("command_timeout: soon"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command_timeout")
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("state_dir: [broken"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty decisions allowed", func(c *Config) { c.OnStepFailure = ""; c.OnRollbackConflict = "" }, false},
		{"bad step failure", func(c *Config) { c.OnStepFailure = "retry" }, true},
		{"bad rollback conflict", func(c *Config) { c.OnRollbackConflict = "merge" }, true},
		{"negative checkpoint limit", func(c *Config) { c.CheckpointLimit = -1 }, true},
		{"negative command timeout", func(c *Config) { c.CommandTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDBPath(t *testing.T) {
	cfg := &Config{StateDir: "/var/lib/maestro"}
	assert.Equal(t, filepath.Join("/var/lib/maestro", "state.db"), cfg.DBPath())
}
