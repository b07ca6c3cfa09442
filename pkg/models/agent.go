// Package models defines the shared data types for agent mention routing:
// agent descriptors, parsed mentions, execution tiers, and routing plans.
package models

// AgentDescriptor describes one registered agent. Descriptors are immutable
// after registry load; the set of valid handles is exactly the registry's
// key set.
type AgentDescriptor struct {
	// Handle is the agent's unique lowercase hyphen-separated name,
	// e.g. "master-orchestrator".
	Handle string `json:"handle" yaml:"handle"`
	// DefaultModel is the model used when a mention carries no override.
	DefaultModel Model `json:"default_model" yaml:"default_model"`
	// PriorityTier orders execution; lower numbers run earlier. Minimum 1.
	PriorityTier int `json:"priority_tier" yaml:"priority_tier"`
	// Description is a short human-readable summary of the agent's role.
	Description string `json:"description" yaml:"description"`
	// Keywords are trigger words consumed by the keyword fallback selector.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}
