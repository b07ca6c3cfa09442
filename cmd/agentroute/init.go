package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
	"github.com/routeworks/agentroute/internal/registry"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up agentroute configuration",
	Long: `Initialize agentroute for this user.

This command sets up everything needed to start routing:
  - Creates the state directory for snapshots and history
  - Writes a starter agents.yaml you can customize
  - Writes the default user configuration pointing at it

Existing files are left alone unless --force is given.

Examples:
  agentroute init           # First-time setup
  agentroute init --force   # Reset registry and config to defaults`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing registry and config files")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()

	fmt.Println("Initializing agentroute...")
	fmt.Println()

	// Step 1: state directory for snapshot, history, and metrics
	if err := os.MkdirAll(cfg.State.Dir, 0755); err != nil {
		printStatus("✗", fmt.Sprintf("Could not create %s", cfg.State.Dir), color.FgRed)
		return fmt.Errorf("create state dir: %w", err)
	}
	printStatus("✓", fmt.Sprintf("State directory %s", cfg.State.Dir), color.FgGreen)

	// Step 2: starter registry next to the user config
	configDir := filepath.Dir(config.GetUserConfigPath())
	if err := os.MkdirAll(configDir, 0700); err != nil {
		printStatus("✗", fmt.Sprintf("Could not create %s", configDir), color.FgRed)
		return fmt.Errorf("create config dir: %w", err)
	}

	regPath := filepath.Join(configDir, "agents.yaml")
	if _, err := os.Stat(regPath); err == nil && !initForce {
		printStatus("⚠", fmt.Sprintf("Registry %s exists (use --force to overwrite)", regPath), color.FgYellow)
	} else {
		if err := os.WriteFile(regPath, registry.DefaultYAML(), 0644); err != nil {
			printStatus("✗", "Could not write starter registry", color.FgRed)
			return fmt.Errorf("write registry: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Starter registry %s", regPath), color.FgGreen)
	}
	cfg.Registry.Path = regPath

	// Step 3: user config
	cfgPath := config.GetUserConfigPath()
	if _, err := os.Stat(cfgPath); err == nil && !initForce {
		printStatus("⚠", fmt.Sprintf("Config %s exists (use --force to overwrite)", cfgPath), color.FgYellow)
	} else {
		if err := config.Save(cfg); err != nil {
			printStatus("✗", "Could not write config", color.FgRed)
			return fmt.Errorf("save config: %w", err)
		}
		printStatus("✓", fmt.Sprintf("Config %s", cfgPath), color.FgGreen)
	}

	fmt.Printf("\n%s agentroute is ready\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Route a prompt:")
	fmt.Println("     agentroute route \"@agent-master-orchestrator plan the rollout\"")
	fmt.Println()
	fmt.Println("  2. See what ran:")
	fmt.Println("     agentroute active")
	fmt.Println("     agentroute history")
	fmt.Println()
	fmt.Println("  3. Customize the agent table:")
	fmt.Printf("     %s\n", regPath)
	return nil
}

// printStatus prints a status message with a colored symbol
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
