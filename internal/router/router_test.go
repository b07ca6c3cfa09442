package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/routeworks/agentroute/internal/fallback"
	"github.com/routeworks/agentroute/internal/registry"
	"github.com/routeworks/agentroute/internal/state"
	"github.com/routeworks/agentroute/pkg/models"
)

// scriptedExecutor settles every invocation immediately, failing the
// handles listed in fail.
type scriptedExecutor struct {
	mu      sync.Mutex
	invoked []string
	fail    map[string]string
}

func (e *scriptedExecutor) Invoke(_ context.Context, m models.Mention) models.AgentResult {
	e.mu.Lock()
	e.invoked = append(e.invoked, m.Handle)
	e.mu.Unlock()

	if reason, ok := e.fail[m.Handle]; ok {
		return models.AgentResult{Handle: m.Handle, Model: m.ResolvedModel, Status: models.ResultFailed, Reason: reason}
	}
	return models.AgentResult{Handle: m.Handle, Model: m.ResolvedModel, Status: models.ResultOK, Output: "done"}
}

type stubSelector struct {
	handles []string
	err     error
}

func (s stubSelector) Select(context.Context, string) ([]string, error) { return s.handles, s.err }
func (s stubSelector) Name() string                                     { return "stub" }

// flakyStore wraps error injection around in-memory bookkeeping.
type flakyStore struct {
	snapshotErr error
	appendErr   error
	appended    []*models.RoutingPlan
}

func (s *flakyStore) Init() error                               { return nil }
func (s *flakyStore) WriteSnapshot(models.ActiveSnapshot) error { return s.snapshotErr }
func (s *flakyStore) ReadSnapshot() (models.ActiveSnapshot, error) {
	return models.ActiveSnapshot{}, nil
}
func (s *flakyStore) AppendHistory(p *models.RoutingPlan) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, p)
	return nil
}
func (s *flakyStore) ReadHistory(int) ([]*models.RoutingPlan, error) { return nil, nil }

type captureRecorder struct {
	plans []*models.RoutingPlan
	err   error
}

func (r *captureRecorder) RecordPlan(p *models.RoutingPlan) error {
	r.plans = append(r.plans, p)
	return r.err
}

func newFileStore(t *testing.T) *state.FileStore {
	t.Helper()
	store := state.NewFileStore(t.TempDir(), 0)
	if err := store.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return store
}

func TestRouteExplicitMentions(t *testing.T) {
	store := newFileStore(t)
	execr := &scriptedExecutor{}
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: execr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst analyze this and @agent-technical-cto[opus] review it")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !rp.Success {
		t.Fatalf("Success = false, error = %q", rp.Error)
	}
	if rp.Fallback != nil {
		t.Fatal("fallback plan populated on the explicit-mention path")
	}
	if rp.Execution == nil {
		t.Fatal("execution plan missing")
	}
	if len(rp.DetectedMentions) != 2 {
		t.Fatalf("detected %d mentions, want 2", len(rp.DetectedMentions))
	}

	tiers := rp.Execution.Tiers
	if len(tiers) != 1 {
		t.Fatalf("got %d tiers, want 1", len(tiers))
	}
	tier := tiers[0]
	if tier.PriorityTier != 3 || !tier.Parallel {
		t.Fatalf("tier = {priority %d, parallel %t}, want {3, true}", tier.PriorityTier, tier.Parallel)
	}
	wantMentions := []struct {
		handle string
		model  models.Model
	}{
		{"business-analyst", models.ModelSonnet},
		{"technical-cto", models.ModelOpus},
	}
	for i, want := range wantMentions {
		got := tier.Mentions[i]
		if got.Handle != want.handle || got.ResolvedModel != want.model {
			t.Errorf("mention %d = {%s, %s}, want {%s, %s}", i, got.Handle, got.ResolvedModel, want.handle, want.model)
		}
	}

	results := rp.Execution.Results
	if len(results) != 1 || len(results[0].Agents) != 2 {
		t.Fatalf("unexpected results shape: %+v", results)
	}
	for i, want := range wantMentions {
		got := results[0].Agents[i]
		if got.Handle != want.handle || got.Status != models.ResultOK {
			t.Errorf("result %d = {%s, %s}, want {%s, ok}", i, got.Handle, got.Status, want.handle)
		}
	}

	snap, err := store.ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d agents, want 2", len(snap))
	}
	if snap["technical-cto"].Model != models.ModelOpus || snap["technical-cto"].PriorityTier != 3 {
		t.Errorf("snapshot entry = %+v", snap["technical-cto"])
	}

	hist, err := store.ReadHistory(0)
	if err != nil {
		t.Fatalf("ReadHistory: %v", err)
	}
	if len(hist) != 1 || hist[0].ID != rp.ID {
		t.Fatalf("history = %d entries, want the routed plan", len(hist))
	}
}

func TestRouteUnknownMentionDropped(t *testing.T) {
	store := newFileStore(t)
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-nonexistent do it and @agent-business-analyst help")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(rp.DetectedMentions) != 1 || rp.DetectedMentions[0].Handle != "business-analyst" {
		t.Fatalf("detected mentions = %+v, want only business-analyst", rp.DetectedMentions)
	}
	if rp.Fallback != nil {
		t.Fatal("one valid mention must not trigger the fallback path")
	}
	if got := len(rp.Execution.Tiers); got != 1 {
		t.Fatalf("got %d tiers, want 1", got)
	}
	if rp.Execution.Tiers[0].Parallel {
		t.Fatal("single-mention tier must not be parallel")
	}
}

func TestRouteDuplicateMentions(t *testing.T) {
	store := newFileStore(t)
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst first pass then @agent-business-analyst second pass")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(rp.DetectedMentions) != 2 {
		t.Fatalf("duplicates must be preserved, got %d mentions", len(rp.DetectedMentions))
	}
	tier := rp.Execution.Tiers[0]
	if len(tier.Mentions) != 2 || !tier.Parallel {
		t.Fatalf("tier = %+v, want both duplicates in one parallel tier", tier)
	}

	// The snapshot is keyed by handle, so duplicates collapse there.
	snap, err := store.ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("snapshot has %d entries, want 1", len(snap))
	}
}

func TestRouteFallbackSelectorFailureSubstitutes(t *testing.T) {
	store := newFileStore(t)
	execr := &scriptedExecutor{}
	r, err := New(Config{
		Registry: registry.Default(),
		Store:    store,
		Executor: execr,
		Selector: stubSelector{err: errors.New("helper crashed")},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "build me a web app")
	if err != nil {
		t.Fatalf("selector failure must be absorbed, got %v", err)
	}
	if !rp.Success {
		t.Fatalf("Success = false, error = %q", rp.Error)
	}
	if rp.Execution != nil || rp.Fallback == nil {
		t.Fatal("mention-less prompt must take the fallback path")
	}

	fp := rp.Fallback
	if !fp.Substituted || !strings.Contains(fp.Reason, "selector failed") {
		t.Fatalf("fallback = {substituted %t, reason %q}", fp.Substituted, fp.Reason)
	}
	if len(fp.Tier.Mentions) != 1 {
		t.Fatalf("fallback tier has %d mentions, want 1", len(fp.Tier.Mentions))
	}
	m := fp.Tier.Mentions[0]
	if m.Handle != fallback.DefaultHandle || m.ResolvedModel != models.ModelOpus {
		t.Fatalf("substitute mention = {%s, %s}, want {%s, opus}", m.Handle, m.ResolvedModel, fallback.DefaultHandle)
	}
	if fp.Tier.Parallel {
		t.Fatal("single-agent fallback tier must not be parallel")
	}
	if fp.Result == nil || len(fp.Result.Agents) != 1 || fp.Result.Agents[0].Status != models.ResultOK {
		t.Fatalf("fallback result = %+v", fp.Result)
	}
}

func TestRouteFallbackSelectorHandles(t *testing.T) {
	store := newFileStore(t)
	r, err := New(Config{
		Registry: registry.Default(),
		Store:    store,
		Executor: &scriptedExecutor{},
		Selector: stubSelector{handles: []string{"backend-services", "database-architecture"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "build me a web app")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	fp := rp.Fallback
	if fp == nil || fp.Substituted {
		t.Fatalf("fallback = %+v, want selector handles honored", fp)
	}
	if fp.Selector != "stub" {
		t.Errorf("selector name = %q", fp.Selector)
	}
	if fp.Tier.PriorityTier != 6 || !fp.Tier.Parallel || len(fp.Tier.Mentions) != 2 {
		t.Fatalf("fallback tier = %+v", fp.Tier)
	}

	snap, err := store.ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d entries, want the fallback tier agents", len(snap))
	}
}

func TestRouteWithoutSelectorSubstitutes(t *testing.T) {
	store := newFileStore(t)
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "build me a web app")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	fp := rp.Fallback
	if fp == nil || !fp.Substituted || fp.Selector != "none" {
		t.Fatalf("fallback = %+v, want substitution with selector none", fp)
	}
	if len(fp.Tier.Mentions) != 1 || fp.Tier.Mentions[0].Handle != fallback.DefaultHandle {
		t.Fatalf("fallback tier = %+v", fp.Tier)
	}
}

func TestRouteAgentFailureDoesNotFailCall(t *testing.T) {
	store := newFileStore(t)
	execr := &scriptedExecutor{fail: map[string]string{"business-analyst": "agent exploded"}}
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: execr})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst and @agent-technical-cto")
	if err != nil {
		t.Fatalf("agent failure must not error the call, got %v", err)
	}
	if !rp.Success || rp.Error != "" {
		t.Fatalf("plan = {success %t, error %q}, want success", rp.Success, rp.Error)
	}

	failed := rp.Execution.Results[0].Failed()
	if len(failed) != 1 || failed[0].Handle != "business-analyst" || failed[0].Reason != "agent exploded" {
		t.Fatalf("failed agents = %+v", failed)
	}
}

func TestRouteSnapshotFailureIsInfrastructure(t *testing.T) {
	store := &flakyStore{snapshotErr: errors.New("disk full")}
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst go")
	if err == nil {
		t.Fatal("expected an infrastructure error")
	}
	if rp.Success {
		t.Fatal("Success must be false on infrastructure failure")
	}
	if !strings.Contains(rp.Error, "write snapshot") {
		t.Fatalf("Error = %q", rp.Error)
	}

	// History append is still attempted, and the entry records the failure.
	if len(store.appended) != 1 || store.appended[0].Success {
		t.Fatalf("appended = %+v, want one failed plan", store.appended)
	}
}

func TestRouteHistoryFailureIsInfrastructure(t *testing.T) {
	store := &flakyStore{appendErr: errors.New("disk full")}
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst go")
	if err == nil {
		t.Fatal("expected an infrastructure error")
	}
	if rp.Success || !strings.Contains(rp.Error, "append history") {
		t.Fatalf("plan = {success %t, error %q}", rp.Success, rp.Error)
	}
}

func TestRouteEmitsEventSequence(t *testing.T) {
	store := newFileStore(t)
	emitter := NewEventEmitter(64)
	r, err := New(Config{
		Registry: registry.Default(),
		Store:    store,
		Executor: &scriptedExecutor{},
		Emitter:  emitter,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst and @agent-technical-cto")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	var types []EventType
	var planIDs []string
drain:
	for {
		select {
		case ev := <-emitter.Events():
			types = append(types, ev.Type)
			planIDs = append(planIDs, ev.PlanID)
		default:
			break drain
		}
	}

	want := []EventType{
		EventRouteStarted,
		EventMentionsDetected,
		EventTierStarted,
		EventAgentSettled,
		EventAgentSettled,
		EventTierCompleted,
		EventRouteCompleted,
	}
	if len(types) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(types), types, len(want))
	}
	for i, typ := range want {
		if types[i] != typ {
			t.Errorf("event %d = %s, want %s", i, types[i], typ)
		}
	}
	for i, id := range planIDs {
		if id != rp.ID {
			t.Errorf("event %d carries plan ID %q, want %q", i, id, rp.ID)
		}
	}
	if emitter.DroppedCount() != 0 {
		t.Errorf("dropped %d events", emitter.DroppedCount())
	}
}

func TestRouteRecordsMetrics(t *testing.T) {
	store := newFileStore(t)
	rec := &captureRecorder{}
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}, Recorder: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst go")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(rec.plans) != 1 || rec.plans[0].ID != rp.ID {
		t.Fatalf("recorded = %+v", rec.plans)
	}
}

func TestRouteRecorderFailureIsAbsorbed(t *testing.T) {
	store := newFileStore(t)
	rec := &captureRecorder{err: errors.New("metrics db locked")}
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}, Recorder: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := r.Route(context.Background(), "@agent-business-analyst go")
	if err != nil || !rp.Success {
		t.Fatalf("recorder failure must be absorbed, got err=%v success=%t", err, rp.Success)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Store: &flakyStore{}}); err == nil {
		t.Error("expected error for missing registry")
	}
	if _, err := New(Config{Registry: registry.Default()}); err == nil {
		t.Error("expected error for missing store")
	}
}

func TestRoutePlanIDsAreUnique(t *testing.T) {
	store := newFileStore(t)
	r, err := New(Config{Registry: registry.Default(), Store: store, Executor: &scriptedExecutor{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		rp, err := r.Route(context.Background(), "@agent-business-analyst go")
		if err != nil {
			t.Fatalf("Route %d: %v", i, err)
		}
		if rp.ID == "" || seen[rp.ID] {
			t.Fatalf("plan ID %q is empty or repeated", rp.ID)
		}
		seen[rp.ID] = true
	}
}
