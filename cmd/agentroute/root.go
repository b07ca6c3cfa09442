package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
	"github.com/routeworks/agentroute/internal/registry"
	"github.com/routeworks/agentroute/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "agentroute",
	Short: "Agent Mention Router",
	Long: `Agentroute turns @agent-<handle> mentions in a prompt into an ordered
execution plan, runs the implicated agents tier by tier, and records what
happened.

Prompts with explicit mentions route exactly the agents they name, with an
optional [opus|sonnet|haiku] model override per mention. Prompts without
mentions go through a fallback selector that scores registered agents
against the prompt's keywords, or through an external command of your
choosing.

Every routing call overwrites the active-agent snapshot and appends its
plan to the routing history, so 'agentroute active', 'history', 'stats',
and 'watch' can tell you what ran, when, and how it went.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadRegistry builds the agent registry from the configured YAML file,
// falling back to the embedded default table when no path is set.
func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	if cfg.Registry.Path != "" {
		reg, err := registry.Load(cfg.Registry.Path)
		if err != nil {
			return nil, fmt.Errorf("load registry %s: %w", cfg.Registry.Path, err)
		}
		return reg, nil
	}
	return registry.Default(), nil
}

// openStore opens the routing state directory, creating it on first use.
func openStore(cfg *config.Config) (*state.FileStore, error) {
	store := state.NewFileStore(cfg.State.Dir, cfg.State.HistoryLimit)
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("init state dir %s: %w", cfg.State.Dir, err)
	}
	return store, nil
}
