package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify agentroute configuration.

Without arguments, displays current configuration and where it came from.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/agentroute/config.yaml
Project-specific overrides can be placed in .agentroute.yaml
Environment variables use the AGENTROUTE_ prefix, e.g. AGENTROUTE_STATE_DIR.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values and their sources.
func displayAllConfig(cfg *config.Config) {
	userPath := config.GetUserConfigPath()
	if _, err := os.Stat(userPath); err == nil {
		fmt.Printf("# user config: %s\n", userPath)
	} else {
		fmt.Printf("# user config: %s (not written yet)\n", userPath)
	}
	if projPath := config.GetProjectConfigPath(); projPath != "" {
		fmt.Printf("# project config: %s\n", projPath)
	}
	fmt.Println()

	fmt.Printf("state.dir: %s\n", cfg.State.Dir)
	fmt.Printf("state.history_limit: %d\n", cfg.State.HistoryLimit)
	fmt.Printf("registry.path: %s\n", displayPath(cfg.Registry.Path))
	fmt.Printf("fallback.mode: %s\n", cfg.Fallback.Mode)
	fmt.Printf("fallback.command: %s\n", displayPath(cfg.Fallback.Command))
	fmt.Printf("executor.command: %s\n", displayPath(cfg.Executor.Command))
	fmt.Printf("executor.timeout: %s\n", cfg.Executor.Timeout)
	fmt.Printf("metrics.enabled: %t\n", cfg.Metrics.Enabled)
	fmt.Printf("metrics.path: %s\n", displayPath(cfg.Metrics.Path))
	fmt.Printf("debug.enabled: %t\n", cfg.Debug.Enabled)
	fmt.Printf("debug.log_path: %s\n", displayPath(cfg.Debug.LogPath))
}

func displayPath(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "state.dir":
		return cfg.State.Dir, nil
	case "state.history_limit":
		return strconv.Itoa(cfg.State.HistoryLimit), nil
	case "registry.path":
		return displayPath(cfg.Registry.Path), nil
	case "fallback.mode":
		return cfg.Fallback.Mode, nil
	case "fallback.command":
		return displayPath(cfg.Fallback.Command), nil
	case "executor.command":
		return displayPath(cfg.Executor.Command), nil
	case "executor.timeout":
		return cfg.Executor.Timeout.String(), nil
	case "metrics.enabled":
		return strconv.FormatBool(cfg.Metrics.Enabled), nil
	case "metrics.path":
		return displayPath(cfg.Metrics.Path), nil
	case "debug.enabled":
		return strconv.FormatBool(cfg.Debug.Enabled), nil
	case "debug.log_path":
		return displayPath(cfg.Debug.LogPath), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "state.dir":
		cfg.State.Dir = value
	case "state.history_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for history_limit: %w", err)
		}
		cfg.State.HistoryLimit = n
	case "registry.path":
		cfg.Registry.Path = value
	case "fallback.mode":
		cfg.Fallback.Mode = value
	case "fallback.command":
		cfg.Fallback.Command = value
	case "executor.command":
		cfg.Executor.Command = value
	case "executor.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for executor.timeout: %w", err)
		}
		cfg.Executor.Timeout = d
	case "metrics.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for metrics.enabled: %w", err)
		}
		cfg.Metrics.Enabled = b
	case "metrics.path":
		cfg.Metrics.Path = value
	case "debug.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for debug.enabled: %w", err)
		}
		cfg.Debug.Enabled = b
	case "debug.log_path":
		cfg.Debug.LogPath = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
