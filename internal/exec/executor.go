package exec

import (
	"context"
	"strings"
	"time"

	"github.com/routeworks/agentroute/pkg/models"
)

// Template placeholders expanded per invocation.
const (
	placeholderHandle  = "{handle}"
	placeholderModel   = "{model}"
	placeholderModelID = "{model_id}"
)

// CommandExecutor invokes agents by running a configured command template.
// Each invocation expands the template's placeholders with the mention's
// handle and model, runs the command, and settles the result: a non-zero
// exit or runner error becomes a failed AgentResult, never a Go error.
type CommandExecutor struct {
	runner   CommandRunner
	template []string
	timeout  time.Duration
}

// NewCommandExecutor creates an executor for the given argv template.
// A zero timeout means no per-invocation limit.
func NewCommandExecutor(runner CommandRunner, template []string, timeout time.Duration) *CommandExecutor {
	return &CommandExecutor{runner: runner, template: template, timeout: timeout}
}

// Invoke runs the command template for one mention and returns its settled
// outcome.
func (e *CommandExecutor) Invoke(ctx context.Context, m models.Mention) models.AgentResult {
	start := time.Now()
	result := models.AgentResult{Handle: m.Handle, Model: m.ResolvedModel}

	if len(e.template) == 0 {
		result.Status = models.ResultFailed
		result.Reason = "executor command not configured"
		result.Duration = time.Since(start)
		return result
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	argv := e.expand(m)
	output, err := e.runner.Run(ctx, argv[0], argv[1:]...)
	result.Output = strings.TrimSpace(string(output))
	result.Duration = time.Since(start)

	if err != nil {
		result.Status = models.ResultFailed
		result.Reason = err.Error()
		return result
	}
	result.Status = models.ResultOK
	return result
}

// expand substitutes the template placeholders for one mention.
func (e *CommandExecutor) expand(m models.Mention) []string {
	replacer := strings.NewReplacer(
		placeholderHandle, m.Handle,
		placeholderModel, string(m.ResolvedModel),
		placeholderModelID, m.ResolvedModel.ID(),
	)
	argv := make([]string, len(e.template))
	for i, arg := range e.template {
		argv[i] = replacer.Replace(arg)
	}
	return argv
}

// NopExecutor settles every invocation as an immediate success without
// running anything. Used by dry runs and tests.
type NopExecutor struct{}

// Invoke returns an ok result for the mention.
func (NopExecutor) Invoke(_ context.Context, m models.Mention) models.AgentResult {
	return models.AgentResult{
		Handle: m.Handle,
		Model:  m.ResolvedModel,
		Status: models.ResultOK,
	}
}
