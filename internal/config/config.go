// Package config handles configuration loading for agentroute.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Fallback modes.
const (
	// FallbackKeyword scores registry agents against the prompt in-process.
	FallbackKeyword = "keyword"
	// FallbackCommand delegates selection to an external command.
	FallbackCommand = "command"
	// FallbackNone routes mention-less prompts straight to the default
	// orchestrator handle.
	FallbackNone = "none"
)

// Config holds all configuration for agentroute.
type Config struct {
	State    StateConfig    `mapstructure:"state"`
	Registry RegistryConfig `mapstructure:"registry"`
	Fallback FallbackConfig `mapstructure:"fallback"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Debug    DebugConfig    `mapstructure:"debug"`
}

// StateConfig holds state store settings.
type StateConfig struct {
	// Dir is the directory holding the snapshot and history files.
	Dir string `mapstructure:"dir"`
	// HistoryLimit caps the history log's entry count.
	HistoryLimit int `mapstructure:"history_limit"`
}

// RegistryConfig holds agent registry settings.
type RegistryConfig struct {
	// Path points to a registry YAML file. Empty uses the built-in registry.
	Path string `mapstructure:"path"`
}

// FallbackConfig holds smart-orchestration settings for mention-less prompts.
type FallbackConfig struct {
	// Mode is keyword, command, or none.
	Mode string `mapstructure:"mode"`
	// Command is the external selector command for command mode.
	Command string `mapstructure:"command"`
}

// ExecutorConfig holds agent executor settings.
type ExecutorConfig struct {
	// Command is the invocation template. Empty disables real execution;
	// agents then settle as ok without running anything.
	Command string `mapstructure:"command"`
	// Timeout bounds one agent invocation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetricsConfig holds metrics database settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path points to the SQLite database. Empty uses the default location.
	Path string `mapstructure:"path"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// LogPath is the debug log file. Empty logs under the state directory.
	LogPath string `mapstructure:"log_path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (AGENTROUTE_*)
// 2. Project config (.agentroute.yaml in current directory or parent)
// 3. User config (~/.config/agentroute/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides, e.g. AGENTROUTE_STATE_DIR
	v.SetEnvPrefix("AGENTROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Fallback.Mode {
	case FallbackKeyword, FallbackNone:
	case FallbackCommand:
		if strings.TrimSpace(c.Fallback.Command) == "" {
			return fmt.Errorf("fallback.command is required when fallback.mode is %q", FallbackCommand)
		}
	default:
		return fmt.Errorf("unknown fallback.mode %q (expected %s, %s, or %s)",
			c.Fallback.Mode, FallbackKeyword, FallbackCommand, FallbackNone)
	}

	if c.State.HistoryLimit < 1 {
		return fmt.Errorf("state.history_limit must be at least 1, got %d", c.State.HistoryLimit)
	}
	return nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("state.dir", cfg.State.Dir)
	v.Set("state.history_limit", cfg.State.HistoryLimit)
	v.Set("registry.path", cfg.Registry.Path)
	v.Set("fallback.mode", cfg.Fallback.Mode)
	v.Set("fallback.command", cfg.Fallback.Command)
	v.Set("executor.command", cfg.Executor.Command)
	v.Set("executor.timeout", cfg.Executor.Timeout.String())
	v.Set("metrics.enabled", cfg.Metrics.Enabled)
	v.Set("metrics.path", cfg.Metrics.Path)
	v.Set("debug.enabled", cfg.Debug.Enabled)
	v.Set("debug.log_path", cfg.Debug.LogPath)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// State defaults
	v.SetDefault("state.dir", defaultStateDir())
	v.SetDefault("state.history_limit", 1000)

	// Registry defaults
	v.SetDefault("registry.path", "")

	// Fallback defaults
	v.SetDefault("fallback.mode", FallbackKeyword)
	v.SetDefault("fallback.command", "")

	// Executor defaults
	v.SetDefault("executor.command", "")
	v.SetDefault("executor.timeout", "5m")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "")

	// Debug defaults
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.log_path", "")
}

// defaultStateDir returns the XDG data directory for agentroute.
func defaultStateDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "agentroute")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".agentroute")
	}
	return filepath.Join(home, ".local", "share", "agentroute")
}

// getUserConfigDir returns the XDG config directory for agentroute.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "agentroute")
	}

	// Fall back to ~/.config/agentroute
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "agentroute")
	}
	return filepath.Join(home, ".config", "agentroute")
}

// findProjectConfig searches for .agentroute.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".agentroute.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		State: StateConfig{
			Dir:          defaultStateDir(),
			HistoryLimit: 1000,
		},
		Registry: RegistryConfig{
			Path: "",
		},
		Fallback: FallbackConfig{
			Mode:    FallbackKeyword,
			Command: "",
		},
		Executor: ExecutorConfig{
			Command: "",
			Timeout: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "",
		},
		Debug: DebugConfig{
			Enabled: false,
			LogPath: "",
		},
	}
}
