package state

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/routeworks/agentroute/pkg/models"
)

// On-disk file names under the store directory.
const (
	snapshotFile = "active_agents.json"
	historyFile  = "routing_history.jsonl"
)

// FileStore keeps the snapshot as a JSON object and the history as one JSON
// record per line, newest appended last. Every write lands in a temp file
// in the same directory followed by a rename, and one mutex serializes all
// writers, so concurrent routing calls cannot tear or interleave state.
type FileStore struct {
	dir          string
	historyLimit int

	mu sync.Mutex
	// lines caches the history log across appends; loaded lazily so that
	// the cap trim does not reread the file on every call.
	lines  [][]byte
	loaded bool
}

// NewFileStore creates a store rooted at dir. A historyLimit below 1 falls
// back to DefaultHistoryLimit so the cap invariant survives bad config.
func NewFileStore(dir string, historyLimit int) *FileStore {
	if historyLimit < 1 {
		historyLimit = DefaultHistoryLimit
	}
	return &FileStore{dir: dir, historyLimit: historyLimit}
}

// Limit returns the effective history cap.
func (s *FileStore) Limit() int {
	return s.historyLimit
}

// Init creates the store directory.
func (s *FileStore) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// SnapshotPath returns the active-agent snapshot file path.
func (s *FileStore) SnapshotPath() string {
	return filepath.Join(s.dir, snapshotFile)
}

// HistoryPath returns the history log file path.
func (s *FileStore) HistoryPath() string {
	return filepath.Join(s.dir, historyFile)
}

// WriteSnapshot replaces the snapshot wholesale.
func (s *FileStore) WriteSnapshot(snap models.ActiveSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap == nil {
		snap = models.ActiveSnapshot{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(s.SnapshotPath(), data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot returns the current snapshot, or an empty one if none has
// been written yet.
func (s *FileStore) ReadSnapshot() (models.ActiveSnapshot, error) {
	data, err := os.ReadFile(s.SnapshotPath())
	if os.IsNotExist(err) {
		return models.ActiveSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap models.ActiveSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return snap, nil
}

// AppendHistory appends the plan as one JSON line and trims the log to the
// newest historyLimit entries.
func (s *FileStore) AppendHistory(plan *models.RoutingPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshaling history entry: %w", err)
	}

	if err := s.loadLinesLocked(); err != nil {
		return err
	}

	s.lines = append(s.lines, line)
	if over := len(s.lines) - s.historyLimit; over > 0 {
		s.lines = s.lines[over:]
	}

	var buf bytes.Buffer
	for _, l := range s.lines {
		buf.Write(l)
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(s.HistoryPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// ReadHistory returns parsed history entries in log order. Corrupt lines
// are skipped rather than failing the whole read.
func (s *FileStore) ReadHistory(limit int) ([]*models.RoutingPlan, error) {
	file, err := os.Open(s.HistoryPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer file.Close()

	var plans []*models.RoutingPlan
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var plan models.RoutingPlan
		if err := json.Unmarshal(line, &plan); err != nil {
			continue
		}
		plans = append(plans, &plan)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning history: %w", err)
	}

	if limit > 0 && len(plans) > limit {
		plans = plans[len(plans)-limit:]
	}
	return plans, nil
}

// loadLinesLocked populates the append cache from disk on first use.
// Callers must hold mu.
func (s *FileStore) loadLinesLocked() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.HistoryPath())
	if os.IsNotExist(err) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		s.lines = append(s.lines, append([]byte{}, line...))
	}
	s.loaded = true
	return nil
}

// writeFileAtomic writes data to a temp file in the target's directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Verify FileStore implements Store at compile time.
var _ Store = (*FileStore)(nil)
