// Package dispatch walks execution tiers in priority order and settles
// every agent invocation through an injected executor.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/routeworks/agentroute/pkg/models"
)

// Executor invokes one agent and reports its settled outcome. Failures are
// values, never errors or panics, so the dispatcher's all-settled semantics
// are type-checked.
type Executor interface {
	Invoke(ctx context.Context, m models.Mention) models.AgentResult
}

// Status is the dispatcher's per-call state.
type Status string

const (
	// StatusPending indicates Run has not started.
	StatusPending Status = "pending"
	// StatusRunning indicates a tier is executing.
	StatusRunning Status = "running"
	// StatusDone indicates every tier has settled.
	StatusDone Status = "done"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusDone:
		return true
	default:
		return false
	}
}

// Hooks receive dispatch progress. Hook invocations are serialized by the
// dispatcher, so implementations need not be thread-safe. Nil funcs are
// skipped.
type Hooks struct {
	// TierStarted fires before a tier's first invocation.
	TierStarted func(tierIndex int, tier models.ExecutionTier)
	// AgentSettled fires as each invocation settles, in completion order.
	AgentSettled func(tierIndex int, result models.AgentResult)
	// TierSettled fires after every invocation of a tier has settled.
	TierSettled func(tierIndex int, result models.TierResult)
}

// Dispatcher executes tiers strictly in order. Within a parallel tier all
// invocations start concurrently (in mention order) and the tier completes
// only when every invocation has settled; one agent's failure never cancels
// its tier-mates and never aborts subsequent tiers. Run always walks every
// tier, even under a canceled context: abandoned routing calls still settle
// for bookkeeping, so history reflects what was attempted.
type Dispatcher struct {
	executor Executor

	// Hooks, if set before Run, receive progress callbacks.
	Hooks Hooks

	mu          sync.RWMutex
	status      Status
	currentTier int
	hookMu      sync.Mutex
}

// New creates a Dispatcher using the given executor.
func New(executor Executor) *Dispatcher {
	return &Dispatcher{executor: executor, status: StatusPending}
}

// Status returns the dispatcher's current state.
func (d *Dispatcher) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// CurrentTier returns the index of the tier currently executing. It is only
// meaningful while Status is running.
func (d *Dispatcher) CurrentTier() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.currentTier
}

// Run executes the tiers and returns one TierResult per tier, in tier
// order. Within each TierResult, agents appear in the tier's mention order
// regardless of completion order.
func (d *Dispatcher) Run(ctx context.Context, tiers []models.ExecutionTier) []models.TierResult {
	d.setStatus(StatusRunning, 0)

	results := make([]models.TierResult, 0, len(tiers))
	for i, tier := range tiers {
		d.setStatus(StatusRunning, i)
		d.fireTierStarted(i, tier)

		var tierResult models.TierResult
		if tier.Parallel {
			tierResult = d.runParallel(ctx, i, tier)
		} else {
			tierResult = d.runSequential(ctx, i, tier)
		}
		results = append(results, tierResult)
		d.fireTierSettled(i, tierResult)
	}

	d.setStatus(StatusDone, len(tiers))
	return results
}

// runParallel starts one goroutine per mention, in mention order, and joins
// with an all-settled wait. Result slots are indexed so output order is
// deterministic.
func (d *Dispatcher) runParallel(ctx context.Context, tierIndex int, tier models.ExecutionTier) models.TierResult {
	agents := make([]models.AgentResult, len(tier.Mentions))
	var wg sync.WaitGroup
	for i, m := range tier.Mentions {
		wg.Add(1)
		go func(slot int, m models.Mention) {
			defer wg.Done()
			result := d.invoke(ctx, m)
			agents[slot] = result
			d.fireAgentSettled(tierIndex, result)
		}(i, m)
	}
	wg.Wait()

	return models.TierResult{PriorityTier: tier.PriorityTier, Agents: agents}
}

// runSequential settles the tier's invocations one after another. Planner
// output has exactly one mention here; the loop also covers hand-built
// tiers with the parallel flag cleared.
func (d *Dispatcher) runSequential(ctx context.Context, tierIndex int, tier models.ExecutionTier) models.TierResult {
	agents := make([]models.AgentResult, 0, len(tier.Mentions))
	for _, m := range tier.Mentions {
		result := d.invoke(ctx, m)
		agents = append(agents, result)
		d.fireAgentSettled(tierIndex, result)
	}
	return models.TierResult{PriorityTier: tier.PriorityTier, Agents: agents}
}

// invoke settles one invocation. Executor panics are recovered into failed
// results so a misbehaving collaborator cannot take down the dispatcher or
// skip its tier-mates' bookkeeping.
func (d *Dispatcher) invoke(ctx context.Context, m models.Mention) (result models.AgentResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.AgentResult{
				Handle: m.Handle,
				Model:  m.ResolvedModel,
				Status: models.ResultFailed,
				Reason: fmt.Sprintf("executor panic: %v", r),
			}
		}
	}()

	result = d.executor.Invoke(ctx, m)

	// Normalize sloppy executor output so downstream consumers can rely on
	// the mention's identity and a valid status.
	if result.Handle == "" {
		result.Handle = m.Handle
	}
	if result.Model == "" {
		result.Model = m.ResolvedModel
	}
	if !result.Status.Valid() {
		result.Status = models.ResultFailed
		if result.Reason == "" {
			result.Reason = "executor returned unknown status"
		}
	}
	return result
}

func (d *Dispatcher) setStatus(status Status, tier int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
	d.currentTier = tier
}

func (d *Dispatcher) fireTierStarted(tierIndex int, tier models.ExecutionTier) {
	if d.Hooks.TierStarted == nil {
		return
	}
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.Hooks.TierStarted(tierIndex, tier)
}

func (d *Dispatcher) fireAgentSettled(tierIndex int, result models.AgentResult) {
	if d.Hooks.AgentSettled == nil {
		return
	}
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.Hooks.AgentSettled(tierIndex, result)
}

func (d *Dispatcher) fireTierSettled(tierIndex int, result models.TierResult) {
	if d.Hooks.TierSettled == nil {
		return
	}
	d.hookMu.Lock()
	defer d.hookMu.Unlock()
	d.Hooks.TierSettled(tierIndex, result)
}
