// Package mention scans prompt text for @agent- references and resolves
// them against the registry. The mention regex lives here and nowhere else.
package mention

import (
	"regexp"
	"time"

	"github.com/routeworks/agentroute/internal/registry"
	"github.com/routeworks/agentroute/pkg/models"
)

// mentionPattern matches "@agent-<handle>" with an optional bracketed model
// override. A malformed bracket (unclosed, or an unknown token) does not
// match the override group, so the descriptor default applies.
var mentionPattern = regexp.MustCompile(`@agent-([a-z-]+)(?:\[(opus|haiku|sonnet)\])?`)

// Parser resolves textual mentions against a registry.
type Parser struct {
	reg *registry.Registry
}

// NewParser creates a parser bound to the given registry.
func NewParser(reg *registry.Registry) *Parser {
	return &Parser{reg: reg}
}

// Parse returns the resolved mentions found in promptText, in left-to-right
// textual order. Handles absent from the registry are dropped silently.
// Duplicate mentions of the same handle are preserved as separate entries;
// tier grouping, not the parser, is responsible for any downstream
// coalescing. All mentions of one call share the same DetectedAt.
func (p *Parser) Parse(promptText string) []models.Mention {
	matches := mentionPattern.FindAllStringSubmatch(promptText, -1)
	if len(matches) == 0 {
		return nil
	}

	now := time.Now()
	var mentions []models.Mention
	for _, match := range matches {
		handle := match[1]
		descriptor, ok := p.reg.Lookup(handle)
		if !ok {
			continue
		}

		resolved := descriptor.DefaultModel
		if override := match[2]; override != "" {
			resolved = models.Model(override)
		}

		mentions = append(mentions, models.Mention{
			Handle:        handle,
			ResolvedModel: resolved,
			PriorityTier:  descriptor.PriorityTier,
			DetectedAt:    now,
			RawText:       match[0],
		})
	}
	return mentions
}
