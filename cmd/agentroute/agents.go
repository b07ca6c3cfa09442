package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
	"github.com/routeworks/agentroute/pkg/models"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents",
	Long: `List every agent in the effective registry with its priority tier,
default model, and description.

The registry comes from registry.path in the configuration when set, and
from the embedded default table otherwise. Lower tiers run earlier when a
plan spans several agents.`,
	RunE: runAgents,
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("%d agents registered\n\n", reg.Len())
	fmt.Printf("  %-4s %-34s %-7s %s\n", "TIER", "HANDLE", "MODEL", "DESCRIPTION")
	for _, d := range reg.All() {
		model := modelColor(d.DefaultModel).Sprint(fmt.Sprintf("%-7s", d.DefaultModel))
		fmt.Printf("  %-4d @agent-%-27s %s %s\n", d.PriorityTier, d.Handle, model, d.Description)
	}
	return nil
}

// modelColor maps each model to a display color.
func modelColor(m models.Model) *color.Color {
	switch m {
	case models.ModelOpus:
		return color.New(color.FgMagenta)
	case models.ModelHaiku:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgCyan)
	}
}
