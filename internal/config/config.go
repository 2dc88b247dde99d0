// Package config loads maestro configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents maestro configuration options.
type Config struct {
	// StateDir is the directory holding the state database and lock files.
	StateDir string `yaml:"state_dir"`

	// WorkDir is the working directory for file operations and commands
	// (empty = current directory).
	WorkDir string `yaml:"work_dir"`

	// CheckpointLimit caps how many checkpoints are retained; the oldest
	// beyond the cap are evicted (0 = package default).
	CheckpointLimit int `yaml:"checkpoint_limit"`

	// CommandTimeout bounds each command_execute step (0 = no timeout).
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// OnStepFailure is the headless decision for failed steps:
	// continue, pause, or cancel.
	OnStepFailure string `yaml:"on_step_failure"`

	// OnRollbackConflict is the headless decision for rollbacks over
	// diverged files: proceed or abort.
	OnRollbackConflict string `yaml:"on_rollback_conflict"`

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		StateDir:           ".maestro",
		CheckpointLimit:    50,
		CommandTimeout:     10 * time.Minute,
		OnStepFailure:      "cancel",
		OnRollbackConflict: "abort",
		LogLevel:           "info",
	}
}

// yamlConfig mirrors Config for YAML decoding. Durations are strings
// ("30s", "10m") parsed with time.ParseDuration.
type yamlConfig struct {
	StateDir           string `yaml:"state_dir"`
	WorkDir            string `yaml:"work_dir"`
	CheckpointLimit    *int   `yaml:"checkpoint_limit"`
	CommandTimeout     string `yaml:"command_timeout"`
	OnStepFailure      string `yaml:"on_step_failure"`
	OnRollbackConflict string `yaml:"on_rollback_conflict"`
	LogLevel           string `yaml:"log_level"`
}

// LoadConfig loads configuration from the specified file path.
// A missing file returns the defaults without error; a malformed file
// is an error. Keys absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.StateDir != "" {
		cfg.StateDir = yamlCfg.StateDir
	}
	if yamlCfg.WorkDir != "" {
		cfg.WorkDir = yamlCfg.WorkDir
	}
	if yamlCfg.CheckpointLimit != nil {
		cfg.CheckpointLimit = *yamlCfg.CheckpointLimit
	}
	if yamlCfg.CommandTimeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid command_timeout %q: %w", yamlCfg.CommandTimeout, err)
		}
		cfg.CommandTimeout = timeout
	}
	if yamlCfg.OnStepFailure != "" {
		cfg.OnStepFailure = yamlCfg.OnStepFailure
	}
	if yamlCfg.OnRollbackConflict != "" {
		cfg.OnRollbackConflict = yamlCfg.OnRollbackConflict
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	switch c.OnStepFailure {
	case "", "continue", "pause", "cancel":
	default:
		return fmt.Errorf("invalid on_step_failure %q (want continue, pause, or cancel)", c.OnStepFailure)
	}

	switch c.OnRollbackConflict {
	case "", "proceed", "abort":
	default:
		return fmt.Errorf("invalid on_rollback_conflict %q (want proceed or abort)", c.OnRollbackConflict)
	}

	if c.CheckpointLimit < 0 {
		return fmt.Errorf("checkpoint_limit cannot be negative")
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout cannot be negative")
	}
	return nil
}

// DBPath returns the path of the state database inside StateDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.StateDir, "state.db")
}
