// Package registry provides the agent registry: a static, case-sensitive
// lookup from agent handle to its descriptor. The registry is immutable
// after construction and is injected into the components that consume it;
// there is no package-level instance.
package registry

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/routeworks/agentroute/pkg/models"
)

// handlePattern is the only legal shape for an agent handle.
var handlePattern = regexp.MustCompile(`^[a-z-]+$`)

// Registry maps agent handles to their descriptors.
type Registry struct {
	agents map[string]models.AgentDescriptor
	order  []string
}

// New builds a registry from descriptors. It rejects invalid handles,
// unknown models, tiers below 1, and duplicate handles.
func New(descriptors []models.AgentDescriptor) (*Registry, error) {
	r := &Registry{agents: make(map[string]models.AgentDescriptor, len(descriptors))}
	for _, d := range descriptors {
		if !handlePattern.MatchString(d.Handle) {
			return nil, fmt.Errorf("invalid agent handle %q: must match [a-z-]+", d.Handle)
		}
		if !d.DefaultModel.Valid() {
			return nil, fmt.Errorf("agent %q: invalid default model %q", d.Handle, d.DefaultModel)
		}
		if d.PriorityTier < 1 {
			return nil, fmt.Errorf("agent %q: priority tier %d below minimum 1", d.Handle, d.PriorityTier)
		}
		if _, exists := r.agents[d.Handle]; exists {
			return nil, fmt.Errorf("duplicate agent handle %q", d.Handle)
		}
		r.agents[d.Handle] = d
		r.order = append(r.order, d.Handle)
	}
	return r, nil
}

// Lookup returns the descriptor for an exact, case-sensitive handle match.
// An absent handle is not an error: callers treat it as "not a valid
// mention" and drop the candidate.
func (r *Registry) Lookup(handle string) (models.AgentDescriptor, bool) {
	d, ok := r.agents[handle]
	return d, ok
}

// Handles returns all registered handles sorted alphabetically.
func (r *Registry) Handles() []string {
	handles := make([]string, 0, len(r.agents))
	for h := range r.agents {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

// All returns every descriptor in registration order.
func (r *Registry) All() []models.AgentDescriptor {
	all := make([]models.AgentDescriptor, 0, len(r.order))
	for _, h := range r.order {
		all = append(all, r.agents[h])
	}
	return all
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.agents)
}
