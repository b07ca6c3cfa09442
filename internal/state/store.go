// Package state persists routing state: the active-agent snapshot and the
// bounded routing history log.
package state

import (
	"github.com/routeworks/agentroute/pkg/models"
)

// DefaultHistoryLimit is the history log's entry cap. After every append,
// only the newest DefaultHistoryLimit entries remain (FIFO eviction).
const DefaultHistoryLimit = 1000

// Store persists routing state across calls. It is the sole writer of
// on-disk routing state; implementations must serialize writers and must
// guarantee all-or-nothing visibility of every write, so a crash mid-write
// never leaves a non-parseable file. Stores are injected, never global.
type Store interface {
	// Init prepares the store for use.
	Init() error
	// WriteSnapshot replaces the active-agent snapshot wholesale.
	WriteSnapshot(snap models.ActiveSnapshot) error
	// ReadSnapshot returns the current snapshot. A store with no snapshot
	// yet returns an empty one, not an error.
	ReadSnapshot() (models.ActiveSnapshot, error)
	// AppendHistory appends one completed routing plan to the history log
	// and enforces the entry cap.
	AppendHistory(plan *models.RoutingPlan) error
	// ReadHistory returns history entries in log order (oldest first). A
	// positive limit returns only the newest limit entries.
	ReadHistory(limit int) ([]*models.RoutingPlan, error)
}
