package router

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/routeworks/agentroute/pkg/models"
)

// EventType represents the type of routing event.
type EventType string

const (
	// EventRouteStarted indicates a routing call has begun.
	EventRouteStarted EventType = "route_started"
	// EventMentionsDetected indicates the parser has finished.
	EventMentionsDetected EventType = "mentions_detected"
	// EventFallbackSelected indicates the fallback selector has produced
	// a plan for a mention-less prompt.
	EventFallbackSelected EventType = "fallback_selected"
	// EventTierStarted indicates a tier has begun executing.
	EventTierStarted EventType = "tier_started"
	// EventAgentSettled indicates one agent invocation reached an outcome.
	EventAgentSettled EventType = "agent_settled"
	// EventTierCompleted indicates every invocation in a tier has settled.
	EventTierCompleted EventType = "tier_completed"
	// EventRouteCompleted indicates the routing call has finished.
	EventRouteCompleted EventType = "route_completed"
)

// Event is emitted as a routing call progresses. Subscribers such as the
// watch command use these to render live progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// PlanID correlates events belonging to one routing call.
	PlanID string
	// Handle is the related agent handle, if applicable.
	Handle string
	// Model is the related agent's resolved model, if applicable.
	Model models.Model
	// Tier is the related priority tier, if applicable.
	Tier int
	// Status is the settled outcome for agent_settled events.
	Status models.ResultStatus
	// MentionCount is set on mentions_detected events.
	MentionCount int
	// Message provides additional context about the event.
	Message string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventEmitter provides a thread-safe, non-blocking way to publish routing
// events to a subscriber.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event to the events channel.
// If the channel is full, it tries with a timeout before dropping the event.
func (e *EventEmitter) Emit(event Event) {
	// Try immediate send first
	select {
	case e.events <- event:
		return
	default:
		// Channel full, try with timeout
	}

	// Try with 100ms timeout to give the receiver a chance to drain
	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		// Timeout expired, drop the event
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[router] WARNING: Event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of events that have been dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events for subscribers.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the events channel. Call only after the last Emit.
func (e *EventEmitter) Close() {
	close(e.events)
}
