package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
)

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "Show agents implicated by the last routing call",
	Long: `Display the active-agent snapshot.

The snapshot lists the agents the most recent routing call implicated,
with the model and tier each resolved to. It is replaced wholesale on
every call; it is not a table of running processes.`,
	RunE: runActive,
}

func runActive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	snap, err := store.ReadSnapshot()
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if len(snap) == 0 {
		fmt.Println("No active agents. Run 'agentroute route <prompt>' to start.")
		return nil
	}

	handles := make([]string, 0, len(snap))
	for h := range snap {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	fmt.Printf("Active agents: %d\n", len(handles))
	for _, h := range handles {
		a := snap[h]
		model := modelColor(a.Model).Sprint(fmt.Sprintf("%-7s", a.Model))
		fmt.Printf("  @agent-%-27s %s tier %-2d (%s ago)\n",
			h, model, a.PriorityTier, formatDuration(time.Since(a.DetectedAt)))
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
