// Package metrics aggregates routing outcomes into a local SQLite database
// so operators can inspect which agents run, with which models, and how
// often they fail.
package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/routeworks/agentroute/pkg/models"
)

// Plan modes stored in the plans table.
const (
	ModeMention  = "mention"
	ModeFallback = "fallback"
)

// Recorder wraps an SQLite database holding routing metrics.
type Recorder struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the default metrics database location.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "agentroute", "metrics.db")
}

// Open opens the metrics database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*Recorder, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	r := &Recorder{conn: conn, path: path}
	if err := r.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.Close()
}

// Path returns the path to the database file.
func (r *Recorder) Path() string {
	return r.path
}

// migrate applies all pending schema migrations.
func (r *Recorder) migrate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := r.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Plans},
		{2, migrationV2Invocations},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := r.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Migration SQL statements
const migrationV1Plans = `
CREATE TABLE IF NOT EXISTS plans (
	plan_id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	mentions INTEGER NOT NULL DEFAULT 0,
	success INTEGER NOT NULL DEFAULT 1,
	substituted INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_mode ON plans(mode);
`

const migrationV2Invocations = `
CREATE TABLE IF NOT EXISTS invocations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id TEXT NOT NULL,
	handle TEXT NOT NULL,
	model TEXT NOT NULL,
	priority_tier INTEGER NOT NULL,
	status TEXT NOT NULL,
	reason TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invocations_plan_id ON invocations(plan_id);
CREATE INDEX IF NOT EXISTS idx_invocations_handle ON invocations(handle);
CREATE INDEX IF NOT EXISTS idx_invocations_status ON invocations(status);
`

// RecordPlan stores one routing plan and a row per settled agent
// invocation. It satisfies the router's PlanRecorder interface.
func (r *Recorder) RecordPlan(p *models.RoutingPlan) error {
	if p == nil {
		return fmt.Errorf("record plan: nil plan")
	}

	mode := ModeMention
	substituted := false
	var results []models.TierResult
	switch {
	case p.Fallback != nil:
		mode = ModeFallback
		substituted = p.Fallback.Substituted
		if p.Fallback.Result != nil {
			results = []models.TierResult{*p.Fallback.Result}
		}
	case p.Execution != nil:
		results = p.Execution.Results
	}

	return r.transaction(func(tx *sql.Tx) error {
		createdAt := formatTime(p.Timestamp)
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO plans (plan_id, mode, mentions, success, substituted, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, mode, len(p.DetectedMentions), boolInt(p.Success), boolInt(substituted), p.Error, createdAt)
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}

		for _, tier := range results {
			for _, a := range tier.Agents {
				_, err := tx.Exec(`
					INSERT INTO invocations (plan_id, handle, model, priority_tier, status, reason, duration_ms, created_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, p.ID, a.Handle, string(a.Model), tier.PriorityTier, string(a.Status), a.Reason, a.Duration.Milliseconds(), createdAt)
				if err != nil {
					return fmt.Errorf("insert invocation: %w", err)
				}
			}
		}
		return nil
	})
}

// AgentTotal summarizes the invocations of one agent handle.
type AgentTotal struct {
	Handle      string
	Invocations int
	OK          int
	Failed      int
}

// AgentTotals returns per-handle invocation counts, busiest first.
func (r *Recorder) AgentTotals() ([]AgentTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.conn.Query(`
		SELECT handle,
		       COUNT(*),
		       SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END)
		FROM invocations
		GROUP BY handle
		ORDER BY COUNT(*) DESC, handle ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query agent totals: %w", err)
	}
	defer rows.Close()

	var totals []AgentTotal
	for rows.Next() {
		var t AgentTotal
		if err := rows.Scan(&t.Handle, &t.Invocations, &t.OK, &t.Failed); err != nil {
			return nil, fmt.Errorf("scan agent total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ModelTotal summarizes the invocations run with one model.
type ModelTotal struct {
	Model       string
	Invocations int
}

// ModelTotals returns per-model invocation counts, busiest first.
func (r *Recorder) ModelTotals() ([]ModelTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.conn.Query(`
		SELECT model, COUNT(*)
		FROM invocations
		GROUP BY model
		ORDER BY COUNT(*) DESC, model ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query model totals: %w", err)
	}
	defer rows.Close()

	var totals []ModelTotal
	for rows.Next() {
		var t ModelTotal
		if err := rows.Scan(&t.Model, &t.Invocations); err != nil {
			return nil, fmt.Errorf("scan model total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Summary aggregates routing call counts.
type Summary struct {
	Plans        int
	Succeeded    int
	MentionPath  int
	FallbackPath int
	Substituted  int
}

// Summarize returns overall plan counts.
func (r *Recorder) Summarize() (Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Summary
	row := r.conn.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN mode = 'mention' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN mode = 'fallback' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN substituted = 1 THEN 1 ELSE 0 END)
		FROM plans
	`)
	var succeeded, mention, fb, sub sql.NullInt64
	if err := row.Scan(&s.Plans, &succeeded, &mention, &fb, &sub); err != nil {
		return Summary{}, fmt.Errorf("summarize plans: %w", err)
	}
	s.Succeeded = int(succeeded.Int64)
	s.MentionPath = int(mention.Int64)
	s.FallbackPath = int(fb.Int64)
	s.Substituted = int(sub.Int64)
	return s, nil
}

// Failure is one failed invocation.
type Failure struct {
	PlanID string
	Handle string
	Reason string
	At     time.Time
}

// RecentFailures returns the newest failed invocations, newest first.
func (r *Recorder) RecentFailures(limit int) ([]Failure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := r.conn.Query(`
		SELECT plan_id, handle, COALESCE(reason, ''), created_at
		FROM invocations
		WHERE status = 'failed'
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		var at string
		if err := rows.Scan(&f.PlanID, &f.Handle, &f.Reason, &at); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if t, err := parseTime(at); err == nil {
			f.At = t
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// transaction runs fn within a transaction.
func (r *Recorder) transaction(fn func(tx *sql.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
