package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
	"github.com/routeworks/agentroute/internal/metrics"
)

var statsFailures int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show routing metrics",
	Long: `Summarize the metrics database: how many calls routed via mentions
versus fallback, per-agent and per-model invocation totals, and the most
recent failed invocations.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsFailures, "failures", 5, "Number of recent failures to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := cfg.Metrics.Path
	if path == "" {
		path = metrics.DefaultPath()
	}
	rec, err := metrics.Open(path)
	if err != nil {
		return fmt.Errorf("open metrics db: %w", err)
	}
	defer rec.Close()

	sum, err := rec.Summarize()
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if sum.Plans == 0 {
		fmt.Println("No routing metrics recorded yet.")
		return nil
	}

	fmt.Printf("Routing calls: %d (%d succeeded)\n", sum.Plans, sum.Succeeded)
	fmt.Printf("  Mention path:  %d\n", sum.MentionPath)
	fmt.Printf("  Fallback path: %d (%d substituted)\n", sum.FallbackPath, sum.Substituted)

	agents, err := rec.AgentTotals()
	if err != nil {
		return fmt.Errorf("agent totals: %w", err)
	}
	if len(agents) > 0 {
		fmt.Println()
		fmt.Println("Agents:")
		for _, a := range agents {
			fmt.Printf("  %-34s %4d invoked  %4d ok  %4d failed\n",
				"@agent-"+a.Handle, a.Invocations, a.OK, a.Failed)
		}
	}

	mdls, err := rec.ModelTotals()
	if err != nil {
		return fmt.Errorf("model totals: %w", err)
	}
	if len(mdls) > 0 {
		fmt.Println()
		fmt.Println("Models:")
		for _, m := range mdls {
			fmt.Printf("  %-10s %4d invoked\n", m.Model, m.Invocations)
		}
	}

	failures, err := rec.RecentFailures(statsFailures)
	if err != nil {
		return fmt.Errorf("recent failures: %w", err)
	}
	if len(failures) > 0 {
		fmt.Println()
		fmt.Println("Recent failures:")
		for _, f := range failures {
			fmt.Printf("  %s  %s  %s: %s\n",
				f.At.Local().Format("2006-01-02 15:04:05"),
				f.PlanID, f.Handle, f.Reason)
		}
	}

	return nil
}
