// Package router runs the full routing pipeline for one prompt: mention
// parsing, tier planning or fallback selection, dispatch, and persistence.
package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/routeworks/agentroute/internal/dispatch"
	"github.com/routeworks/agentroute/internal/exec"
	"github.com/routeworks/agentroute/internal/fallback"
	"github.com/routeworks/agentroute/internal/mention"
	"github.com/routeworks/agentroute/internal/plan"
	"github.com/routeworks/agentroute/internal/registry"
	"github.com/routeworks/agentroute/internal/state"
	"github.com/routeworks/agentroute/pkg/models"
)

// PlanRecorder aggregates completed routing plans, e.g. into the metrics
// database. Recording is best effort; errors are logged, never propagated.
type PlanRecorder interface {
	RecordPlan(p *models.RoutingPlan) error
}

// Config wires a Router's collaborators.
type Config struct {
	// Registry resolves mention handles. Required.
	Registry *registry.Registry
	// Store persists snapshots and history. Required.
	Store state.Store
	// Executor invokes settled agents. Defaults to a no-op executor.
	Executor dispatch.Executor
	// Selector picks agents for mention-less prompts. Nil disables smart
	// orchestration; such prompts route straight to the default handle.
	Selector fallback.Selector
	// Emitter publishes progress events. Optional.
	Emitter *EventEmitter
	// Recorder aggregates completed plans. Optional.
	Recorder PlanRecorder
	// Logger receives debug lines. Optional.
	Logger *DebugLogger
}

// Router coordinates one routing call end to end. All collaborators are
// injected; the router holds no global state.
type Router struct {
	reg      *registry.Registry
	store    state.Store
	parser   *mention.Parser
	executor dispatch.Executor
	selector fallback.Selector
	emitter  *EventEmitter
	recorder PlanRecorder
}

// New creates a Router from the given configuration.
func New(cfg Config) (*Router, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("router: registry is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("router: state store is required")
	}

	executor := cfg.Executor
	if executor == nil {
		executor = exec.NopExecutor{}
	}
	if cfg.Logger != nil {
		setPackageLogger(cfg.Logger)
	}

	return &Router{
		reg:      cfg.Registry,
		store:    cfg.Store,
		parser:   mention.NewParser(cfg.Registry),
		executor: executor,
		selector: cfg.Selector,
		emitter:  cfg.Emitter,
		recorder: cfg.Recorder,
	}, nil
}

// Route processes one prompt: it parses mentions, plans and dispatches
// tiers (or takes the fallback path for mention-less prompts), overwrites
// the active snapshot, and appends the plan to history.
//
// The returned plan is always non-nil. The error is non-nil only for
// infrastructure failures, which also clear plan.Success; agent failures
// and fallback substitution are recorded in the plan and never become
// errors. A canceled context does not abort dispatch bookkeeping: every
// tier still settles so history reflects what was attempted.
func (r *Router) Route(ctx context.Context, promptText string) (*models.RoutingPlan, error) {
	rp := &models.RoutingPlan{
		ID:             uuid.New().String()[:8],
		Timestamp:      time.Now(),
		OriginalPrompt: promptText,
	}
	r.emit(Event{Type: EventRouteStarted, PlanID: rp.ID, Timestamp: time.Now()})
	debugLog("route %s: started, prompt %d bytes", rp.ID, len(promptText))

	rp.DetectedMentions = r.parser.Parse(promptText)
	r.emit(Event{
		Type:         EventMentionsDetected,
		PlanID:       rp.ID,
		MentionCount: len(rp.DetectedMentions),
		Timestamp:    time.Now(),
	})
	debugLog("route %s: %d mentions detected", rp.ID, len(rp.DetectedMentions))

	if len(rp.DetectedMentions) > 0 {
		tiers := plan.Build(rp.DetectedMentions)
		rp.Execution = &models.ExecutionPlan{Tiers: tiers}
		rp.Execution.Results = r.dispatchTiers(ctx, rp.ID, tiers)
	} else {
		rp.Fallback = r.routeFallback(ctx, rp.ID, promptText)
	}

	rp.Success = true
	err := r.persist(rp)
	r.record(rp)

	r.emit(Event{
		Type:      EventRouteCompleted,
		PlanID:    rp.ID,
		Message:   rp.Error,
		Timestamp: time.Now(),
	})
	debugLog("route %s: completed, success=%t", rp.ID, rp.Success)
	return rp, err
}

// dispatchTiers runs the tiers through a fresh dispatcher wired to the
// router's event stream.
func (r *Router) dispatchTiers(ctx context.Context, planID string, tiers []models.ExecutionTier) []models.TierResult {
	d := dispatch.New(r.executor)
	d.Hooks = dispatch.Hooks{
		TierStarted: func(_ int, tier models.ExecutionTier) {
			r.emit(Event{
				Type:         EventTierStarted,
				PlanID:       planID,
				Tier:         tier.PriorityTier,
				MentionCount: len(tier.Mentions),
				Timestamp:    time.Now(),
			})
			debugLog("route %s: tier %d started, %d agents, parallel=%t",
				planID, tier.PriorityTier, len(tier.Mentions), tier.Parallel)
		},
		AgentSettled: func(_ int, res models.AgentResult) {
			r.emit(Event{
				Type:      EventAgentSettled,
				PlanID:    planID,
				Handle:    res.Handle,
				Model:     res.Model,
				Status:    res.Status,
				Message:   res.Reason,
				Timestamp: time.Now(),
			})
			debugLog("route %s: agent %s settled %s", planID, res.Handle, res.Status)
		},
		TierSettled: func(_ int, res models.TierResult) {
			r.emit(Event{
				Type:      EventTierCompleted,
				PlanID:    planID,
				Tier:      res.PriorityTier,
				Timestamp: time.Now(),
			})
		},
	}
	return d.Run(ctx, tiers)
}

// routeFallback handles a prompt with zero mentions. Selector failures and
// empty selections are absorbed: the plan substitutes the default handle
// and records why, so the routing call itself never fails here.
func (r *Router) routeFallback(ctx context.Context, planID, promptText string) *models.FallbackPlan {
	fp := &models.FallbackPlan{Selector: "none"}

	if r.selector == nil {
		fp.Substituted = true
		fp.Reason = "no fallback selector configured"
	} else {
		fp.Selector = r.selector.Name()
		handles, err := r.selector.Select(ctx, promptText)
		switch {
		case err != nil:
			fp.Substituted = true
			fp.Reason = fmt.Sprintf("selector failed: %v", err)
			debugLog("route %s: fallback selector %s failed: %v", planID, fp.Selector, err)
		case len(handles) == 0:
			fp.Substituted = true
			fp.Reason = "selector returned no agents"
		default:
			fp.Handles = handles
		}
	}

	handles := fp.Handles
	if fp.Substituted {
		handles = []string{fallback.DefaultHandle}
	}

	tier, ok := plan.FallbackTier(handles, r.reg)
	if !ok && !fp.Substituted {
		fp.Substituted = true
		fp.Reason = "selector returned no registered agents"
		tier, ok = plan.FallbackTier([]string{fallback.DefaultHandle}, r.reg)
	}
	if !ok {
		// Nothing dispatchable, not even the default handle. Keep the plan
		// observable with an empty tier.
		fp.Reason = fp.Reason + "; " + fallback.DefaultHandle + " is not registered"
		debugLog("route %s: fallback produced no dispatchable tier: %s", planID, fp.Reason)
		return fp
	}

	fp.Tier = tier
	r.emit(Event{
		Type:         EventFallbackSelected,
		PlanID:       planID,
		Tier:         tier.PriorityTier,
		MentionCount: len(tier.Mentions),
		Message:      fp.Reason,
		Timestamp:    time.Now(),
	})
	debugLog("route %s: fallback tier %d with %d agents (selector=%s substituted=%t)",
		planID, tier.PriorityTier, len(tier.Mentions), fp.Selector, fp.Substituted)

	results := r.dispatchTiers(ctx, planID, []models.ExecutionTier{tier})
	if len(results) == 1 {
		fp.Result = &results[0]
	}
	return fp
}

// persist overwrites the active snapshot and appends the plan to history.
// These are the routing call's only infrastructure failure points. A
// snapshot failure is recorded on the plan first so the best-effort history
// append captures it.
func (r *Router) persist(rp *models.RoutingPlan) error {
	var firstErr error

	if err := r.store.WriteSnapshot(snapshotFor(rp)); err != nil {
		firstErr = fmt.Errorf("write snapshot: %w", err)
		rp.Success = false
		rp.Error = firstErr.Error()
		log.Printf("[router] snapshot write failed: %v", err)
	}

	if err := r.store.AppendHistory(rp); err != nil {
		appendErr := fmt.Errorf("append history: %w", err)
		rp.Success = false
		if rp.Error == "" {
			rp.Error = appendErr.Error()
		}
		log.Printf("[router] history append failed: %v", err)
		if firstErr == nil {
			firstErr = appendErr
		}
	}

	return firstErr
}

// snapshotFor collects the agents implicated by a routing call, keyed by
// handle. Duplicate mentions of one handle collapse to the last occurrence.
func snapshotFor(rp *models.RoutingPlan) models.ActiveSnapshot {
	snap := models.ActiveSnapshot{}
	for _, tier := range rp.Tiers() {
		for _, m := range tier.Mentions {
			snap[m.Handle] = models.ActiveAgent{
				Model:        m.ResolvedModel,
				PriorityTier: m.PriorityTier,
				DetectedAt:   m.DetectedAt,
			}
		}
	}
	return snap
}

func (r *Router) record(rp *models.RoutingPlan) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordPlan(rp); err != nil {
		log.Printf("[router] metrics record failed: %v", err)
		debugLog("route %s: metrics record failed: %v", rp.ID, err)
	}
}

func (r *Router) emit(event Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}
