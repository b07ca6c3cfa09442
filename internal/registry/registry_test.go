package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/routeworks/agentroute/pkg/models"
)

func testDescriptors() []models.AgentDescriptor {
	return []models.AgentDescriptor{
		{Handle: "business-analyst", DefaultModel: models.ModelSonnet, PriorityTier: 3, Description: "Business analysis"},
		{Handle: "technical-cto", DefaultModel: models.ModelOpus, PriorityTier: 3, Description: "Technical review"},
		{Handle: "master-orchestrator", DefaultModel: models.ModelOpus, PriorityTier: 2, Description: "Coordination"},
	}
}

func TestNew_Valid(t *testing.T) {
	reg, err := New(testDescriptors())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []models.AgentDescriptor
	}{
		{
			"uppercase handle",
			[]models.AgentDescriptor{{Handle: "Business-Analyst", DefaultModel: models.ModelSonnet, PriorityTier: 3}},
		},
		{
			"handle with digits",
			[]models.AgentDescriptor{{Handle: "agent2", DefaultModel: models.ModelSonnet, PriorityTier: 3}},
		},
		{
			"empty handle",
			[]models.AgentDescriptor{{Handle: "", DefaultModel: models.ModelSonnet, PriorityTier: 3}},
		},
		{
			"unknown model",
			[]models.AgentDescriptor{{Handle: "backend-services", DefaultModel: "gpt", PriorityTier: 6}},
		},
		{
			"tier below one",
			[]models.AgentDescriptor{{Handle: "backend-services", DefaultModel: models.ModelSonnet, PriorityTier: 0}},
		},
		{
			"duplicate handle",
			[]models.AgentDescriptor{
				{Handle: "backend-services", DefaultModel: models.ModelSonnet, PriorityTier: 6},
				{Handle: "backend-services", DefaultModel: models.ModelHaiku, PriorityTier: 6},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.descriptors); err == nil {
				t.Error("New() expected error, got nil")
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg, err := New(testDescriptors())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	d, ok := reg.Lookup("business-analyst")
	if !ok {
		t.Fatal("Lookup(business-analyst) not found")
	}
	if d.DefaultModel != models.ModelSonnet {
		t.Errorf("DefaultModel = %q, want %q", d.DefaultModel, models.ModelSonnet)
	}
	if d.PriorityTier != 3 {
		t.Errorf("PriorityTier = %d, want 3", d.PriorityTier)
	}
}

func TestRegistry_Lookup_AbsentIsNotError(t *testing.T) {
	reg, err := New(testDescriptors())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := reg.Lookup("nonexistent"); ok {
		t.Error("Lookup(nonexistent) = found, want absent")
	}
	// Lookup is case-sensitive.
	if _, ok := reg.Lookup("Business-Analyst"); ok {
		t.Error("Lookup(Business-Analyst) = found, want absent (case-sensitive)")
	}
}

func TestRegistry_Handles_Sorted(t *testing.T) {
	reg, err := New(testDescriptors())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	handles := reg.Handles()
	want := []string{"business-analyst", "master-orchestrator", "technical-cto"}
	if len(handles) != len(want) {
		t.Fatalf("Handles() returned %d entries, want %d", len(handles), len(want))
	}
	for i := range want {
		if handles[i] != want[i] {
			t.Errorf("Handles()[%d] = %q, want %q", i, handles[i], want[i])
		}
	}
}

func TestDefault_ContainsOriginalAgents(t *testing.T) {
	reg := Default()

	if reg.Len() != 28 {
		t.Errorf("Default().Len() = %d, want 28", reg.Len())
	}

	tests := []struct {
		handle    string
		wantModel models.Model
		wantTier  int
	}{
		{"master-orchestrator", models.ModelOpus, 2},
		{"prompt-engineer", models.ModelSonnet, 1},
		{"business-analyst", models.ModelSonnet, 3},
		{"technical-cto", models.ModelOpus, 3},
		{"technical-documentation", models.ModelHaiku, 5},
		{"ui-ux-designer", models.ModelSonnet, 10},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			d, ok := reg.Lookup(tt.handle)
			if !ok {
				t.Fatalf("Lookup(%q) not found in default registry", tt.handle)
			}
			if d.DefaultModel != tt.wantModel {
				t.Errorf("DefaultModel = %q, want %q", d.DefaultModel, tt.wantModel)
			}
			if d.PriorityTier != tt.wantTier {
				t.Errorf("PriorityTier = %d, want %d", d.PriorityTier, tt.wantTier)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")
	content := `agents:
  - handle: backend-services
    default_model: sonnet
    priority_tier: 6
    description: Backend work
    keywords: [backend, api]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write registry file: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	d, ok := reg.Lookup("backend-services")
	if !ok {
		t.Fatal("Lookup(backend-services) not found")
	}
	if len(d.Keywords) != 2 {
		t.Errorf("Keywords = %v, want 2 entries", d.Keywords)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse([]byte("agents: []")); err == nil {
		t.Error("Parse() expected error for empty agent list, got nil")
	}
}
