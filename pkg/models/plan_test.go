package models

import (
	"testing"
	"time"
)

func TestTierResult_Failed(t *testing.T) {
	result := TierResult{
		PriorityTier: 3,
		Agents: []AgentResult{
			{Handle: "business-analyst", Status: ResultOK},
			{Handle: "technical-cto", Status: ResultFailed, Reason: "timeout"},
			{Handle: "ceo-strategy", Status: ResultOK},
		},
	}

	failed := result.Failed()
	if len(failed) != 1 {
		t.Fatalf("Failed() returned %d results, want 1", len(failed))
	}
	if failed[0].Handle != "technical-cto" {
		t.Errorf("Failed()[0].Handle = %q, want %q", failed[0].Handle, "technical-cto")
	}
	if failed[0].Reason != "timeout" {
		t.Errorf("Failed()[0].Reason = %q, want %q", failed[0].Reason, "timeout")
	}
}

func TestTierResult_Failed_NoneFailed(t *testing.T) {
	result := TierResult{
		PriorityTier: 2,
		Agents:       []AgentResult{{Handle: "master-orchestrator", Status: ResultOK}},
	}

	if failed := result.Failed(); failed != nil {
		t.Errorf("Failed() = %v, want nil", failed)
	}
}

func TestRoutingPlan_Tiers(t *testing.T) {
	now := time.Now()
	executionTier := ExecutionTier{
		PriorityTier: 3,
		Mentions:     []Mention{{Handle: "business-analyst", ResolvedModel: ModelSonnet, PriorityTier: 3, DetectedAt: now}},
	}
	fallbackTier := ExecutionTier{
		PriorityTier: 2,
		Mentions:     []Mention{{Handle: "master-orchestrator", ResolvedModel: ModelOpus, PriorityTier: 2, DetectedAt: now}},
	}

	tests := []struct {
		name      string
		plan      RoutingPlan
		wantCount int
		wantFirst string
	}{
		{
			name:      "execution path",
			plan:      RoutingPlan{Execution: &ExecutionPlan{Tiers: []ExecutionTier{executionTier}}},
			wantCount: 1,
			wantFirst: "business-analyst",
		},
		{
			name:      "fallback path",
			plan:      RoutingPlan{Fallback: &FallbackPlan{Tier: fallbackTier}},
			wantCount: 1,
			wantFirst: "master-orchestrator",
		},
		{
			name:      "neither path",
			plan:      RoutingPlan{},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiers := tt.plan.Tiers()
			if len(tiers) != tt.wantCount {
				t.Fatalf("Tiers() returned %d tiers, want %d", len(tiers), tt.wantCount)
			}
			if tt.wantCount > 0 && tiers[0].Mentions[0].Handle != tt.wantFirst {
				t.Errorf("first tier handle = %q, want %q", tiers[0].Mentions[0].Handle, tt.wantFirst)
			}
		})
	}
}
