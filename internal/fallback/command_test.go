package fallback

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// fakeRunner records the argv it was asked to run and replies with canned
// output.
type fakeRunner struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

func TestCommandSelectorArrayOutput(t *testing.T) {
	runner := &fakeRunner{out: []byte("[\"backend-services\", \"database-architecture\"]\n")}
	sel := NewCommandSelector(runner, []string{"route-helper", "--select"}, time.Second)

	got, err := sel.Select(context.Background(), "design the schema")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := []string{"backend-services", "database-architecture"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Select = %v, want %v", got, want)
	}

	// Without a placeholder the prompt rides along as the last argument.
	if runner.name != "route-helper" {
		t.Errorf("command = %q, want route-helper", runner.name)
	}
	wantArgs := []string{"--select", "design the schema"}
	if !reflect.DeepEqual(runner.args, wantArgs) {
		t.Errorf("args = %v, want %v", runner.args, wantArgs)
	}
}

func TestCommandSelectorObjectOutput(t *testing.T) {
	runner := &fakeRunner{out: []byte(`{"agents": ["testing-automation"], "confidence": 0.9}`)}
	sel := NewCommandSelector(runner, []string{"route-helper"}, 0)

	got, err := sel.Select(context.Background(), "add tests")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"testing-automation"}) {
		t.Fatalf("Select = %v", got)
	}
}

func TestCommandSelectorPromptPlaceholder(t *testing.T) {
	runner := &fakeRunner{out: []byte("[]")}
	sel := NewCommandSelector(runner, []string{"route-helper", "--prompt={prompt}"}, 0)

	if _, err := sel.Select(context.Background(), "ship it"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	wantArgs := []string{"--prompt=ship it"}
	if !reflect.DeepEqual(runner.args, wantArgs) {
		t.Fatalf("args = %v, want %v", runner.args, wantArgs)
	}
}

func TestCommandSelectorErrors(t *testing.T) {
	tests := []struct {
		name   string
		argv   []string
		runner *fakeRunner
	}{
		{"run failure", []string{"route-helper"}, &fakeRunner{err: errors.New("exit status 3")}},
		{"bad json", []string{"route-helper"}, &fakeRunner{out: []byte("plain text, not json")}},
		{"empty output", []string{"route-helper"}, &fakeRunner{out: []byte("  \n")}},
		{"no command", nil, &fakeRunner{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := NewCommandSelector(tt.runner, tt.argv, 0)
			if _, err := sel.Select(context.Background(), "anything"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCommandSelectorName(t *testing.T) {
	if got := NewCommandSelector(&fakeRunner{}, nil, 0).Name(); got != "command" {
		t.Fatalf("Name = %q, want command", got)
	}
}
