// Package watch tails the routing history log and delivers newly appended
// plans to a subscriber channel.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/routeworks/agentroute/internal/state"
	"github.com/routeworks/agentroute/pkg/models"
)

// Tailer follows the history log. It watches the state directory rather
// than the log file itself because the store replaces the file by rename on
// every append. A periodic poll backs up the watcher so a missed event
// only delays delivery.
type Tailer struct {
	store   *state.FileStore
	watcher *fsnotify.Watcher
	plans   chan *models.RoutingPlan
	done    chan struct{}

	closeOnce sync.Once
	closeErr  error

	// lastID is the newest plan already delivered (or present before the
	// tailer started). Entries after it are new.
	lastID string

	pollInterval time.Duration
}

// NewTailer starts tailing the store's history log. Entries already in the
// log are skipped; only plans appended after this call are delivered.
func NewTailer(store *state.FileStore) (*Tailer, error) {
	dir := filepath.Dir(store.HistoryPath())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	t := &Tailer{
		store:        store,
		watcher:      watcher,
		plans:        make(chan *models.RoutingPlan, 64),
		done:         make(chan struct{}),
		pollInterval: 2 * time.Second,
	}

	if existing, err := store.ReadHistory(0); err == nil && len(existing) > 0 {
		t.lastID = existing[len(existing)-1].ID
	}

	go t.loop()
	return t, nil
}

// Plans returns the channel of newly appended plans. It is closed when the
// tailer is closed.
func (t *Tailer) Plans() <-chan *models.RoutingPlan {
	return t.plans
}

// Close stops the tailer and closes the plans channel. Safe to call more
// than once.
func (t *Tailer) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.closeErr = t.watcher.Close()
	})
	return t.closeErr
}

func (t *Tailer) loop() {
	defer close(t.plans)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	historyName := filepath.Base(t.store.HistoryPath())
	for {
		select {
		case <-t.done:
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != historyName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !t.deliverNew() {
				return
			}
		case <-ticker.C:
			if !t.deliverNew() {
				return
			}
		case <-t.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// deliverNew reads the log and sends every entry after lastID. If lastID is
// gone (the log was replaced wholesale), the full log is replayed. Returns
// false when the tailer is closing.
func (t *Tailer) deliverNew() bool {
	entries, err := t.store.ReadHistory(0)
	if err != nil || len(entries) == 0 {
		return true
	}

	start := 0
	if t.lastID != "" {
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].ID == t.lastID {
				start = i + 1
				break
			}
		}
	}

	for _, p := range entries[start:] {
		select {
		case t.plans <- p:
			t.lastID = p.ID
		case <-t.done:
			return false
		}
	}
	return true
}
