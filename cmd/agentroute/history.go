package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
	"github.com/routeworks/agentroute/internal/fallback"
	"github.com/routeworks/agentroute/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent routing plans",
	Long: `Print recent entries from the routing history, oldest first.

Each line shows when the call happened, whether it persisted cleanly,
and which agents it routed to. Use --limit to control how far back to
look; 0 prints the whole retained history.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of entries to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	plans, err := store.ReadHistory(historyLimit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	if len(plans) == 0 {
		fmt.Println("No routing history yet. Run 'agentroute route <prompt>' to start.")
		return nil
	}

	for _, p := range plans {
		printHistoryLine(p)
	}
	return nil
}

// printHistoryLine renders one plan as a single history row.
func printHistoryLine(p *models.RoutingPlan) {
	symbol := statusSymbol(models.ResultOK)
	if !p.Success {
		symbol = statusSymbol(models.ResultFailed)
	}
	fmt.Printf("%s %s  %-8s  %s\n",
		symbol,
		p.Timestamp.Local().Format("2006-01-02 15:04:05"),
		p.ID,
		summarizePlan(p))
}

// summarizePlan describes how a plan routed in one line.
func summarizePlan(p *models.RoutingPlan) string {
	var s string
	switch {
	case p.Fallback != nil && p.Fallback.Substituted:
		s = fmt.Sprintf("fallback substituted %s (%s)", fallback.DefaultHandle, p.Fallback.Reason)
	case p.Fallback != nil:
		s = fmt.Sprintf("fallback/%s: %s", p.Fallback.Selector, strings.Join(p.Fallback.Handles, ", "))
	case p.Execution != nil:
		total := 0
		for _, t := range p.Execution.Tiers {
			total += len(t.Mentions)
		}
		s = fmt.Sprintf("%d agent(s) in %d tier(s)", total, len(p.Execution.Tiers))
	default:
		s = "no agents"
	}

	if failed := countFailed(p); failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	if !p.Success && p.Error != "" {
		s += " [" + p.Error + "]"
	}
	return s
}

func countFailed(p *models.RoutingPlan) int {
	failed := 0
	for _, tr := range tierResults(p) {
		for _, a := range tr.Agents {
			if a.Status == models.ResultFailed {
				failed++
			}
		}
	}
	return failed
}
