// Package plan groups resolved mentions into ordered execution tiers.
package plan

import (
	"sort"
	"time"

	"github.com/routeworks/agentroute/internal/registry"
	"github.com/routeworks/agentroute/pkg/models"
)

// Build buckets mentions by priority tier and returns the tiers in
// ascending priority order. Within a tier, mentions keep their first-seen
// order from the input; a tier is parallel when it holds more than one
// mention. The output is a deterministic function of the input. An empty
// input returns nil: callers take the fallback path instead of planning.
func Build(mentions []models.Mention) []models.ExecutionTier {
	if len(mentions) == 0 {
		return nil
	}

	buckets := make(map[int][]models.Mention)
	var order []int
	for _, m := range mentions {
		if _, seen := buckets[m.PriorityTier]; !seen {
			order = append(order, m.PriorityTier)
		}
		buckets[m.PriorityTier] = append(buckets[m.PriorityTier], m)
	}
	sort.Ints(order)

	tiers := make([]models.ExecutionTier, 0, len(order))
	for _, priority := range order {
		members := buckets[priority]
		tiers = append(tiers, models.ExecutionTier{
			PriorityTier: priority,
			Mentions:     members,
			Parallel:     len(members) > 1,
		})
	}
	return tiers
}

// FallbackTier synthesizes the single tier for the orchestration path from
// a fallback collaborator's recommended handles. Handles absent from the
// registry are dropped; each resolved handle becomes a mention with the
// descriptor's default model. The tier's priority is the lowest tier among
// the resolved handles, and the parallel rule is the same as Build's.
// ok is false when no handle resolved.
func FallbackTier(handles []string, reg *registry.Registry) (models.ExecutionTier, bool) {
	now := time.Now()
	var mentions []models.Mention
	lowest := 0
	for _, handle := range handles {
		descriptor, found := reg.Lookup(handle)
		if !found {
			continue
		}
		if lowest == 0 || descriptor.PriorityTier < lowest {
			lowest = descriptor.PriorityTier
		}
		mentions = append(mentions, models.Mention{
			Handle:        handle,
			ResolvedModel: descriptor.DefaultModel,
			PriorityTier:  descriptor.PriorityTier,
			DetectedAt:    now,
		})
	}
	if len(mentions) == 0 {
		return models.ExecutionTier{}, false
	}
	return models.ExecutionTier{
		PriorityTier: lowest,
		Mentions:     mentions,
		Parallel:     len(mentions) > 1,
	}, true
}
