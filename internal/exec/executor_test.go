package exec

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/routeworks/agentroute/pkg/models"
)

// fakeRunner records invocations and returns canned output.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.err
}

func testMention() models.Mention {
	return models.Mention{
		Handle:        "backend-services",
		ResolvedModel: models.ModelSonnet,
		PriorityTier:  6,
		DetectedAt:    time.Now(),
	}
}

func TestCommandExecutor_ExpandsTemplate(t *testing.T) {
	runner := &fakeRunner{output: []byte("done\n")}
	executor := NewCommandExecutor(runner, []string{"claude", "--agent", "{handle}", "--model", "{model_id}"}, 0)

	result := executor.Invoke(context.Background(), testMention())

	if result.Status != models.ResultOK {
		t.Fatalf("Status = %q, want %q (reason: %s)", result.Status, models.ResultOK, result.Reason)
	}
	if result.Output != "done" {
		t.Errorf("Output = %q, want %q", result.Output, "done")
	}
	if len(runner.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(runner.calls))
	}
	got := strings.Join(runner.calls[0], " ")
	want := "claude --agent backend-services --model claude-sonnet-4-20250514"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestCommandExecutor_FailureSettles(t *testing.T) {
	runner := &fakeRunner{output: []byte("boom"), err: errors.New("exit status 1")}
	executor := NewCommandExecutor(runner, []string{"claude", "{handle}"}, 0)

	result := executor.Invoke(context.Background(), testMention())

	if result.Status != models.ResultFailed {
		t.Fatalf("Status = %q, want %q", result.Status, models.ResultFailed)
	}
	if result.Reason != "exit status 1" {
		t.Errorf("Reason = %q, want %q", result.Reason, "exit status 1")
	}
	if result.Output != "boom" {
		t.Errorf("Output = %q, want %q (output kept on failure)", result.Output, "boom")
	}
}

func TestCommandExecutor_EmptyTemplate(t *testing.T) {
	executor := NewCommandExecutor(&fakeRunner{}, nil, 0)

	result := executor.Invoke(context.Background(), testMention())

	if result.Status != models.ResultFailed {
		t.Fatalf("Status = %q, want %q", result.Status, models.ResultFailed)
	}
	if result.Reason != "executor command not configured" {
		t.Errorf("Reason = %q", result.Reason)
	}
}

func TestCommandExecutor_ModelPlaceholder(t *testing.T) {
	runner := &fakeRunner{}
	executor := NewCommandExecutor(runner, []string{"run-agent", "{handle}", "{model}"}, 0)

	m := testMention()
	m.ResolvedModel = models.ModelOpus
	executor.Invoke(context.Background(), m)

	got := strings.Join(runner.calls[0], " ")
	if got != "run-agent backend-services opus" {
		t.Errorf("command = %q, want short model name expansion", got)
	}
}

func TestNopExecutor(t *testing.T) {
	result := NopExecutor{}.Invoke(context.Background(), testMention())

	if result.Status != models.ResultOK {
		t.Errorf("Status = %q, want %q", result.Status, models.ResultOK)
	}
	if result.Handle != "backend-services" {
		t.Errorf("Handle = %q, want %q", result.Handle, "backend-services")
	}
	if result.Model != models.ModelSonnet {
		t.Errorf("Model = %q, want %q", result.Model, models.ModelSonnet)
	}
}
