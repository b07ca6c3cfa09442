package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/routeworks/agentroute/internal/config"
	"github.com/routeworks/agentroute/internal/exec"
	"github.com/routeworks/agentroute/internal/fallback"
	"github.com/routeworks/agentroute/internal/metrics"
	"github.com/routeworks/agentroute/internal/registry"
	"github.com/routeworks/agentroute/internal/router"
	"github.com/routeworks/agentroute/pkg/models"
)

var (
	routeJSON   bool
	routeHook   bool
	routeDryRun bool
	routeDebug  bool
)

var routeCmd = &cobra.Command{
	Use:   "route [prompt...]",
	Short: "Route a prompt to its mentioned agents",
	Long: `Route one prompt through mention detection, tier planning, dispatch,
and persistence.

The prompt comes from the arguments, or from stdin when no arguments are
given. Explicit @agent-<handle> mentions select agents directly; a prompt
without mentions goes to the configured fallback selector, which substitutes
the master orchestrator when it cannot produce a selection.

Hook mode reads a JSON envelope {"prompt": "..."} from stdin and prints the
routing plan as JSON, which is the shape prompt-submission hooks exchange.
Envelope input that is not valid JSON is treated as the raw prompt.

The exit code is 1 only when persisting the plan fails. Agent failures and
fallback substitution are recorded inside the plan, not signalled through
the exit code.

Examples:
  agentroute route "@agent-backend-services build the payments API"
  agentroute route "@agent-database-architecture[opus] design the schema"
  echo "optimize the slow dashboard queries" | agentroute route
  agentroute route --hook < envelope.json
  agentroute route --dry-run --json "@agent-testing-automation cover it"`,
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Print the routing plan as JSON")
	routeCmd.Flags().BoolVar(&routeHook, "hook", false, "Read a {\"prompt\":...} envelope from stdin and print the plan as JSON")
	routeCmd.Flags().BoolVar(&routeDryRun, "dry-run", false, "Plan and record without invoking the executor command")
	routeCmd.Flags().BoolVar(&routeDebug, "debug", false, "Write a debug log for this call")
}

func runRoute(cmd *cobra.Command, args []string) error {
	promptText, err := readPrompt(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(promptText) == "" {
		return fmt.Errorf("empty prompt: pass text as arguments or on stdin")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if routeDebug {
		cfg.Debug.Enabled = true
	}

	rt, cleanup, err := buildRouter(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	plan, routeErr := rt.Route(context.Background(), promptText)
	if plan != nil {
		if routeJSON || routeHook {
			if err := printPlanJSON(plan); err != nil && routeErr == nil {
				routeErr = err
			}
		} else {
			printPlan(plan)
		}
	}
	return routeErr
}

// readPrompt assembles the prompt from argv or stdin.
func readPrompt(args []string) (string, error) {
	if routeHook {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return promptFromEnvelope(data), nil
	}

	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// promptFromEnvelope unwraps the hook's {"prompt": ...} envelope. Input that
// does not parse is used verbatim so a malformed envelope never blocks the
// caller.
func promptFromEnvelope(data []byte) string {
	var envelope struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Prompt != "" {
		return envelope.Prompt
	}
	return string(data)
}

// buildRouter assembles a Router from the effective configuration. The
// returned cleanup closes whatever collaborators hold resources.
func buildRouter(cfg *config.Config) (*router.Router, func(), error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	rcfg := router.Config{
		Registry: reg,
		Store:    store,
		Selector: buildSelector(cfg, reg),
	}

	if !routeDryRun && cfg.Executor.Command != "" {
		argv := strings.Fields(cfg.Executor.Command)
		rcfg.Executor = exec.NewCommandExecutor(exec.NewRunner(), argv, cfg.Executor.Timeout)
	}

	var closers []func()
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = metrics.DefaultPath()
		}
		rec, err := metrics.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: metrics disabled: %v\n", err)
		} else {
			rcfg.Recorder = rec
			closers = append(closers, func() { rec.Close() })
		}
	}

	if cfg.Debug.Enabled {
		logPath := cfg.Debug.LogPath
		if logPath == "" {
			logPath = defaultDebugLogPath(cfg)
		}
		dl, err := router.NewDebugLogger(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: debug log disabled: %v\n", err)
		} else {
			rcfg.Logger = dl
			closers = append(closers, func() { dl.Close() })
		}
	}

	rt, err := router.New(rcfg)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return rt, cleanup, nil
}

// buildSelector picks the fallback strategy for mention-less prompts.
func buildSelector(cfg *config.Config, reg *registry.Registry) fallback.Selector {
	switch cfg.Fallback.Mode {
	case config.FallbackCommand:
		argv := strings.Fields(cfg.Fallback.Command)
		return fallback.NewCommandSelector(exec.NewRunner(), argv, cfg.Executor.Timeout)
	case config.FallbackNone:
		return nil
	default:
		return fallback.NewKeywordSelector(reg)
	}
}

func defaultDebugLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.State.Dir, "debug.log")
}

// printPlan renders a routing plan for humans.
func printPlan(p *models.RoutingPlan) {
	fmt.Printf("Plan %s at %s\n", p.ID, p.Timestamp.Local().Format("15:04:05"))

	if p.Fallback != nil {
		fb := p.Fallback
		if fb.Substituted {
			printStatus("⚠", fmt.Sprintf("No mentions; substituted %s (%s)", fallback.DefaultHandle, fb.Reason), color.FgYellow)
		} else {
			fmt.Printf("  No mentions; %s selector chose: %s\n", fb.Selector, strings.Join(fb.Handles, ", "))
		}
	} else {
		fmt.Printf("  Mentions: %d\n", len(p.DetectedMentions))
	}

	results := tierResults(p)
	for i, tier := range p.Tiers() {
		mode := "sequential"
		if tier.Parallel {
			mode = "parallel"
		}
		fmt.Printf("  Tier %d (%s):\n", tier.PriorityTier, mode)
		if i < len(results) {
			for _, a := range results[i].Agents {
				printAgentResult(a)
			}
			continue
		}
		for _, m := range tier.Mentions {
			fmt.Printf("    - %s [%s]\n", m.Handle, m.ResolvedModel)
		}
	}

	if p.Success {
		fmt.Printf("%s Routed\n", color.GreenString("✓"))
	} else {
		fmt.Printf("%s %s\n", color.RedString("✗"), p.Error)
	}
}

func printAgentResult(a models.AgentResult) {
	line := fmt.Sprintf("    %s %s [%s]", statusSymbol(a.Status), a.Handle, a.Model)
	if a.Duration > 0 {
		line += fmt.Sprintf(" (%s)", a.Duration.Round(time.Millisecond))
	}
	if a.Status == models.ResultFailed && a.Reason != "" {
		line += " " + color.RedString(a.Reason)
	}
	fmt.Println(line)
}

func statusSymbol(s models.ResultStatus) string {
	if s == models.ResultOK {
		return color.GreenString("✓")
	}
	return color.RedString("✗")
}

// tierResults returns the settled results aligned with p.Tiers().
func tierResults(p *models.RoutingPlan) []models.TierResult {
	switch {
	case p.Execution != nil:
		return p.Execution.Results
	case p.Fallback != nil && p.Fallback.Result != nil:
		return []models.TierResult{*p.Fallback.Result}
	default:
		return nil
	}
}

func printPlanJSON(p *models.RoutingPlan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
