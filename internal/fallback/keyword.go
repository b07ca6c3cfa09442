package fallback

import (
	"context"
	"sort"
	"strings"

	"github.com/routeworks/agentroute/internal/registry"
	"github.com/routeworks/agentroute/pkg/models"
)

// Scoring weights for the keyword selector. Keyword overlap dominates,
// domain affinity and a neutral success prior fill in the rest.
const (
	weightKeyword = 0.35
	weightDomain  = 0.15
	weightSuccess = 0.20

	// Without routing history every agent gets the same neutral prior.
	neutralSuccessRate = 0.5

	patternBoost = 1.5

	maxPromptKeywords = 10
)

// Per-complexity selection thresholds and caps.
var complexityLevels = map[string]struct {
	threshold float64
	maxAgents int
}{
	"high":   {threshold: 0.3, maxAgents: 8},
	"medium": {threshold: 0.4, maxAgents: 5},
	"low":    {threshold: 0.5, maxAgents: 3},
}

// Domain trigger words, matched as substrings of the lowercased prompt.
var domainKeywords = map[string][]string{
	"backend":  {"api", "server", "backend", "service", "endpoint"},
	"frontend": {"ui", "interface", "react", "vue", "component"},
	"database": {"database", "db", "sql", "query", "schema"},
	"mobile":   {"mobile", "ios", "android", "app store"},
	"devops":   {"deploy", "docker", "kubernetes", "ci/cd", "pipeline"},
	"security": {"security", "auth", "encryption", "vulnerability"},
	"testing":  {"test", "qa", "quality", "coverage"},
}

// Orchestration patterns pair trigger phrases with a playbook of agents
// whose scores get boosted when the pattern matches.
type orchestrationPattern struct {
	name     string
	triggers []string
	agents   []string
}

var orchestrationPatterns = []orchestrationPattern{
	{
		name:     "new_project",
		triggers: []string{"new project", "start project", "create app", "build application"},
		agents: []string{
			"master-orchestrator", "business-analyst", "technical-cto",
			"project-manager", "technical-specifications",
		},
	},
	{
		name:     "feature_development",
		triggers: []string{"add feature", "implement", "create functionality"},
		agents: []string{
			"technical-specifications", "backend-services",
			"frontend-architecture", "testing-automation",
		},
	},
	{
		name:     "bug_fix",
		triggers: []string{"fix bug", "debug", "error", "issue"},
		agents:   []string{"testing-automation", "backend-services", "devops-engineer"},
	},
	{
		name:     "optimization",
		triggers: []string{"optimize", "improve performance", "speed up"},
		agents:   []string{"performance-optimization", "database-architecture", "devops-engineer"},
	},
	{
		name:     "deployment",
		triggers: []string{"deploy", "release", "production"},
		agents:   []string{"devops-engineer", "security-architecture", "production-frontend"},
	},
}

var complexityIndicators = struct {
	high []string
	low  []string
}{
	high: []string{"entire", "complete", "full", "comprehensive", "production", "enterprise"},
	low:  []string{"simple", "quick", "basic", "small", "minor"},
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "was": {},
	"are": {}, "been": {}, "be": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "can": {}, "could": {}, "that": {},
	"this": {}, "these": {}, "those": {}, "it": {}, "its": {},
}

// KeywordSelector scores every registered agent against the prompt and
// returns the best matches. Selection is deterministic for a given prompt
// and registry.
type KeywordSelector struct {
	reg *registry.Registry
}

// NewKeywordSelector builds a selector over the given registry.
func NewKeywordSelector(reg *registry.Registry) *KeywordSelector {
	return &KeywordSelector{reg: reg}
}

// Name implements Selector.
func (s *KeywordSelector) Name() string { return "keyword" }

// Select implements Selector. It never returns an error; prompts that match
// nothing yield an empty slice.
func (s *KeywordSelector) Select(_ context.Context, promptText string) ([]string, error) {
	lower := strings.ToLower(promptText)

	keywords := extractKeywords(lower)
	domains := detectDomains(lower)
	complexity := assessComplexity(lower)
	pattern := matchPattern(lower)

	level := complexityLevels[complexity]

	scored := s.scoreAgents(keywords, domains, pattern)

	var selected []string
	for _, cand := range scored {
		if cand.score < level.threshold {
			break
		}
		selected = append(selected, cand.handle)
		if len(selected) >= level.maxAgents {
			break
		}
	}

	selected = s.applyStructuralAgents(selected, complexity)
	return selected, nil
}

type scoredAgent struct {
	handle string
	tier   int
	score  float64
}

// scoreAgents rates every registered agent and returns them sorted by score
// descending, with priority tier and handle as tie breakers so the result
// is stable across runs.
func (s *KeywordSelector) scoreAgents(keywords, domains []string, pattern *orchestrationPattern) []scoredAgent {
	boosted := map[string]bool{}
	if pattern != nil {
		for _, h := range pattern.agents {
			boosted[h] = true
		}
	}

	scored := make([]scoredAgent, 0, s.reg.Len())
	for _, desc := range s.reg.All() {
		score := scoreAgent(desc, keywords, domains)
		if boosted[desc.Handle] {
			score *= patternBoost
		}
		scored = append(scored, scoredAgent{handle: desc.Handle, tier: desc.PriorityTier, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].tier != scored[j].tier {
			return scored[i].tier < scored[j].tier
		}
		return scored[i].handle < scored[j].handle
	})
	return scored
}

// scoreAgent combines keyword overlap, domain affinity and the neutral
// success prior, then scales by priority so low-tier agents outrank
// high-tier ones on equal evidence.
func scoreAgent(desc models.AgentDescriptor, keywords, domains []string) float64 {
	matches := 0
	for _, kw := range keywords {
		for _, agentKW := range desc.Keywords {
			if strings.Contains(kw, agentKW) {
				matches++
				break
			}
		}
	}

	domainHits := 0
	for _, domain := range domains {
		if agentCoversDomain(desc, domain) {
			domainHits++
		}
	}

	score := weightKeyword*float64(matches) +
		weightDomain*float64(domainHits) +
		weightSuccess*neutralSuccessRate

	mult := 11 - desc.PriorityTier
	if mult < 1 {
		mult = 1
	}
	return score * float64(mult) / 10
}

// agentCoversDomain reports whether a detected domain belongs to an agent,
// judged by its handle and keyword list.
func agentCoversDomain(desc models.AgentDescriptor, domain string) bool {
	if strings.Contains(desc.Handle, domain) {
		return true
	}
	for _, kw := range desc.Keywords {
		if strings.Contains(kw, domain) {
			return true
		}
	}
	return false
}

// applyStructuralAgents layers coordination agents onto a raw selection:
// high-complexity work leads with the prompt engineer, and any selection
// broad enough to need coordination gets the orchestrator slotted second.
func (s *KeywordSelector) applyStructuralAgents(selected []string, complexity string) []string {
	if complexity == "high" && !containsHandle(selected, "prompt-engineer") {
		if _, ok := s.reg.Lookup("prompt-engineer"); ok {
			selected = append([]string{"prompt-engineer"}, selected...)
		}
	}
	if len(selected) > 2 && !containsHandle(selected, DefaultHandle) {
		if _, ok := s.reg.Lookup(DefaultHandle); ok {
			rest := make([]string, 0, len(selected)+1)
			rest = append(rest, selected[0], DefaultHandle)
			rest = append(rest, selected[1:]...)
			selected = rest
		}
	}
	return selected
}

func containsHandle(handles []string, want string) bool {
	for _, h := range handles {
		if h == want {
			return true
		}
	}
	return false
}

// extractKeywords pulls significant lowercase words from the prompt,
// skipping stop words and anything too short to discriminate.
func extractKeywords(lower string) []string {
	var keywords []string
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,;:!?\"'()[]{}")
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) >= maxPromptKeywords {
			break
		}
	}
	return keywords
}

// detectDomains returns the technical domains whose trigger words appear in
// the prompt, in a fixed order.
func detectDomains(lower string) []string {
	names := make([]string, 0, len(domainKeywords))
	for name := range domainKeywords {
		names = append(names, name)
	}
	sort.Strings(names)

	var detected []string
	for _, name := range names {
		for _, trigger := range domainKeywords[name] {
			if strings.Contains(lower, trigger) {
				detected = append(detected, name)
				break
			}
		}
	}
	return detected
}

// assessComplexity buckets a prompt into high, medium or low effort.
func assessComplexity(lower string) string {
	wordCount := len(strings.Fields(lower))
	for _, ind := range complexityIndicators.high {
		if strings.Contains(lower, ind) {
			return "high"
		}
	}
	if wordCount > 50 {
		return "high"
	}
	for _, ind := range complexityIndicators.low {
		if strings.Contains(lower, ind) {
			return "low"
		}
	}
	if wordCount < 20 {
		return "low"
	}
	return "medium"
}

// matchPattern returns the first orchestration pattern whose trigger phrase
// appears in the prompt, or nil.
func matchPattern(lower string) *orchestrationPattern {
	for i := range orchestrationPatterns {
		for _, trigger := range orchestrationPatterns[i].triggers {
			if strings.Contains(lower, trigger) {
				return &orchestrationPatterns[i]
			}
		}
	}
	return nil
}
