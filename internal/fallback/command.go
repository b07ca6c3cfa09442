package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/routeworks/agentroute/internal/exec"
)

// PromptPlaceholder marks where the prompt is injected into a selector
// command's arguments. Commands without it receive the prompt as a final
// positional argument.
const PromptPlaceholder = "{prompt}"

// CommandSelector delegates selection to an external command. The command
// receives the prompt and must print either a JSON array of handles or an
// object with an "agents" array on stdout.
type CommandSelector struct {
	runner  exec.CommandRunner
	argv    []string
	timeout time.Duration
}

// NewCommandSelector builds a selector around argv. A zero timeout means
// the command runs until the routing context is done.
func NewCommandSelector(runner exec.CommandRunner, argv []string, timeout time.Duration) *CommandSelector {
	return &CommandSelector{runner: runner, argv: argv, timeout: timeout}
}

// Name implements Selector.
func (s *CommandSelector) Name() string { return "command" }

// Select implements Selector.
func (s *CommandSelector) Select(ctx context.Context, promptText string) ([]string, error) {
	if len(s.argv) == 0 {
		return nil, fmt.Errorf("fallback command not configured")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	name, args := expandArgv(s.argv, promptText)
	out, err := s.runner.Run(ctx, name, args...)
	if err != nil {
		return nil, fmt.Errorf("fallback command failed: %w", err)
	}

	handles, err := parseHandles(out)
	if err != nil {
		return nil, err
	}
	return handles, nil
}

// expandArgv substitutes the prompt placeholder, or appends the prompt when
// no argument carries one.
func expandArgv(argv []string, promptText string) (string, []string) {
	expanded := make([]string, 0, len(argv)+1)
	replaced := false
	for _, arg := range argv {
		if strings.Contains(arg, PromptPlaceholder) {
			arg = strings.ReplaceAll(arg, PromptPlaceholder, promptText)
			replaced = true
		}
		expanded = append(expanded, arg)
	}
	if !replaced {
		expanded = append(expanded, promptText)
	}
	return expanded[0], expanded[1:]
}

// parseHandles accepts `["a","b"]` or `{"agents":["a","b"]}`.
func parseHandles(out []byte) ([]string, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, fmt.Errorf("fallback command produced no output")
	}

	var handles []string
	if err := json.Unmarshal([]byte(trimmed), &handles); err == nil {
		return handles, nil
	}

	var wrapped struct {
		Agents []string `json:"agents"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil {
		return wrapped.Agents, nil
	}

	return nil, fmt.Errorf("fallback command output is not a JSON handle list: %q", truncate(trimmed, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
