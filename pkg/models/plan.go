package models

import "time"

// Mention is a resolved reference to a registered agent found in prompt
// text. The handle always has a matching AgentDescriptor in the registry
// that produced it.
type Mention struct {
	// Handle is the referenced agent's handle.
	Handle string `json:"handle"`
	// ResolvedModel is the explicit bracket override if present in the
	// source text, else the descriptor's default model.
	ResolvedModel Model `json:"resolved_model"`
	// PriorityTier is copied from the descriptor at parse time.
	PriorityTier int `json:"priority_tier"`
	// DetectedAt is when the parser found this mention.
	DetectedAt time.Time `json:"detected_at"`
	// RawText is the matched source text, e.g. "@agent-technical-cto[opus]".
	RawText string `json:"raw_text"`
}

// ExecutionTier groups mentions sharing one priority level. Tiers execute
// in ascending PriorityTier order; within a tier, mention order is the
// first-seen order from the prompt.
type ExecutionTier struct {
	// PriorityTier is the shared priority of every mention in the tier.
	PriorityTier int `json:"priority_tier"`
	// Mentions are the tier's members in first-seen order.
	Mentions []Mention `json:"mentions"`
	// Parallel is true when the tier holds more than one mention.
	Parallel bool `json:"parallel"`
}

// ResultStatus is the settled outcome of one agent invocation.
type ResultStatus string

const (
	// ResultOK indicates the invocation completed successfully.
	ResultOK ResultStatus = "ok"
	// ResultFailed indicates the invocation settled with a failure.
	ResultFailed ResultStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultOK, ResultFailed:
		return true
	default:
		return false
	}
}

// AgentResult is one agent invocation's settled outcome. Executors report
// failures here, never as errors, so a failing agent cannot abort its
// tier-mates.
type AgentResult struct {
	// Handle is the invoked agent's handle.
	Handle string `json:"handle"`
	// Model is the model the invocation ran with.
	Model Model `json:"model"`
	// Status is ok or failed.
	Status ResultStatus `json:"status"`
	// Reason explains a failed status.
	Reason string `json:"reason,omitempty"`
	// Output is opaque result data from the executor.
	Output string `json:"output,omitempty"`
	// Duration is how long the invocation took to settle.
	Duration time.Duration `json:"duration_ns"`
}

// TierResult is the outcome of one executed tier. Agents appear in the
// tier's mention order regardless of completion order; a sequential tier
// holds exactly one element.
type TierResult struct {
	// PriorityTier identifies the tier this result belongs to.
	PriorityTier int `json:"priority_tier"`
	// Agents holds one settled outcome per tier member.
	Agents []AgentResult `json:"agents"`
}

// Failed returns the results within the tier that settled as failures.
func (r TierResult) Failed() []AgentResult {
	var failed []AgentResult
	for _, a := range r.Agents {
		if a.Status == ResultFailed {
			failed = append(failed, a)
		}
	}
	return failed
}

// ExecutionPlan is the explicit-mention execution path: the ordered tiers
// and their settled results.
type ExecutionPlan struct {
	// Tiers are the planned tiers in ascending priority order.
	Tiers []ExecutionTier `json:"tiers"`
	// Results holds one TierResult per executed tier, in tier order.
	Results []TierResult `json:"results,omitempty"`
}

// FallbackPlan is the orchestration path taken when a prompt contains zero
// explicit mentions. It always holds exactly one tier.
type FallbackPlan struct {
	// Selector names the collaborator that chose the agents.
	Selector string `json:"selector"`
	// Handles are the collaborator's recommended agents, in order.
	Handles []string `json:"handles"`
	// Substituted is true when the collaborator failed and the hard-coded
	// default agent was used instead.
	Substituted bool `json:"substituted,omitempty"`
	// Reason records why a substitution happened.
	Reason string `json:"reason,omitempty"`
	// Tier is the single synthesized execution tier.
	Tier ExecutionTier `json:"tier"`
	// Result is the tier's settled outcome.
	Result *TierResult `json:"result,omitempty"`
}

// RoutingPlan is the full record of one routing call. Exactly one of
// Execution or Fallback is populated.
type RoutingPlan struct {
	// ID is a short unique identifier correlating logs, history, and metrics.
	ID string `json:"id"`
	// Timestamp is when the routing call started.
	Timestamp time.Time `json:"timestamp"`
	// OriginalPrompt is the unmodified input prompt.
	OriginalPrompt string `json:"original_prompt"`
	// DetectedMentions are the parser's resolved mentions in textual order.
	DetectedMentions []Mention `json:"detected_mentions"`
	// Execution is the explicit-mention path.
	Execution *ExecutionPlan `json:"execution_plan,omitempty"`
	// Fallback is the orchestration path.
	Fallback *FallbackPlan `json:"fallback_plan,omitempty"`
	// Success is false only on infrastructure failure; per-agent failures
	// and fallback substitution never clear it.
	Success bool `json:"success"`
	// Error describes an infrastructure failure.
	Error string `json:"error,omitempty"`
}

// Tiers returns the plan's execution tiers regardless of which path
// produced them.
func (p *RoutingPlan) Tiers() []ExecutionTier {
	switch {
	case p.Execution != nil:
		return p.Execution.Tiers
	case p.Fallback != nil:
		return []ExecutionTier{p.Fallback.Tier}
	default:
		return nil
	}
}

// ActiveAgent is one entry of the active-agent snapshot.
type ActiveAgent struct {
	// Model is the model the agent was resolved to.
	Model Model `json:"model"`
	// PriorityTier is the agent's tier at detection time.
	PriorityTier int `json:"priority_tier"`
	// DetectedAt is when the agent was implicated.
	DetectedAt time.Time `json:"detected_at"`
}

// ActiveSnapshot maps handles to the agents implicated by the most recent
// routing call. It is replaced wholesale on every successful call; it is
// not a running-process table.
type ActiveSnapshot map[string]ActiveAgent
