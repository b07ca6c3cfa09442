// Package fallback selects agents for prompts that contain no explicit
// mentions. Selectors are collaborators: the router absorbs their failures
// by substituting the default orchestrator handle, so a broken selector can
// never fail a routing call.
package fallback

import "context"

// DefaultHandle is the hard-coded substitute used when a selector fails or
// returns nothing usable.
const DefaultHandle = "master-orchestrator"

// Selector recommends agents for a prompt with no explicit mentions.
type Selector interface {
	// Select returns recommended agent handles in execution-preference
	// order. An empty result is valid and means the selector has no
	// recommendation.
	Select(ctx context.Context, promptText string) ([]string, error)
	// Name identifies the selector in routing plan metadata.
	Name() string
}
