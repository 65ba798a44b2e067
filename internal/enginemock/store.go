// Package enginemock provides an in-process, Cromwell-shaped workflow
// engine backed by SQLite. It exists for the client's package tests and as
// a standalone development server; it is not a workflow engine.
package enginemock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Workflow statuses reported by the mock engine.
const (
	StatusSubmitted = "Submitted"
	StatusRunning   = "Running"
	StatusSucceeded = "Succeeded"
	StatusFailed    = "Failed"
	StatusAborted   = "Aborted"
)

// validTransitions maps each status to the set of statuses it may move to.
var validTransitions = map[string]map[string]bool{
	StatusSubmitted: {
		StatusRunning: true,
		StatusAborted: true,
	},
	StatusRunning: {
		StatusSucceeded: true,
		StatusFailed:    true,
		StatusAborted:   true,
	},
}

// ValidTransition reports whether moving from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Workflow is one workflow run tracked by the mock engine.
type Workflow struct {
	ID         string
	Name       string
	Status     string
	Submission time.Time
	Start      *time.Time
	End        *time.Time
	Outputs    []byte // JSON object, nil until the run succeeds
}

// CallLog is one task call attempt's log record.
type CallLog struct {
	WorkflowID string
	Call       string
	Attempt    int
	ShardIndex int
	Stdout     string
	Stderr     string
}

// Stats holds aggregate engine counters.
type Stats struct {
	Workflows int
	Jobs      int
	ByStatus  map[string]int
}

const createWorkflowsTable = `
CREATE TABLE IF NOT EXISTS workflows (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    status     TEXT NOT NULL,
    submission DATETIME NOT NULL,
    started_at DATETIME,
    ended_at   DATETIME,
    outputs    BLOB
)`

const createCallLogsTable = `
CREATE TABLE IF NOT EXISTS call_logs (
    workflow_id TEXT NOT NULL,
    call        TEXT NOT NULL,
    attempt     INTEGER NOT NULL,
    shard_index INTEGER NOT NULL,
    stdout      TEXT NOT NULL,
    stderr      TEXT NOT NULL
)`

// ErrNotFound is returned when a workflow is not found.
var ErrNotFound = errors.New("workflow not found")

// ErrInvalidTransition is returned for a disallowed status change.
var ErrInvalidTransition = errors.New("invalid status transition")

// Store persists mock engine state in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath and runs migrations.
// Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps in-memory databases coherent and avoids
	// SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(createWorkflowsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create workflows table: %w", err)
	}
	if _, err := db.Exec(createCallLogsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create call_logs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateWorkflow inserts a new workflow record.
func (s *Store) CreateWorkflow(ctx context.Context, w *Workflow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (id, name, status, submission, started_at, ended_at, outputs)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Status, w.Submission, w.Start, w.End, w.Outputs,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	w := &Workflow{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, submission, started_at, ended_at, outputs
		 FROM workflows WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.Status, &w.Submission, &w.Start, &w.End, &w.Outputs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return w, nil
}

// QueryWorkflows returns workflows matching the given name and status
// filters (empty means any), paginated, newest submission first, along
// with the total match count.
func (s *Store) QueryWorkflows(ctx context.Context, name, status string, page, pagesize int) ([]*Workflow, int, error) {
	if pagesize <= 0 {
		pagesize = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pagesize

	where := "WHERE 1=1"
	args := []any{}
	if name != "" {
		where += " AND name = ?"
		args = append(args, name)
	}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count workflows: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, status, submission, started_at, ended_at, outputs
		 FROM workflows `+where+` ORDER BY submission DESC LIMIT ? OFFSET ?`,
		append(args, pagesize, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*Workflow
	for rows.Next() {
		w := &Workflow{}
		if err := rows.Scan(&w.ID, &w.Name, &w.Status, &w.Submission, &w.Start, &w.End, &w.Outputs); err != nil {
			return nil, 0, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate workflows: %w", err)
	}

	return workflows, total, nil
}

// UpdateWorkflowStatus moves a workflow to a new status, enforcing the
// transition table. Running sets start; terminal statuses set end.
func (s *Store) UpdateWorkflowStatus(ctx context.Context, id, status string) error {
	w, err := s.GetWorkflow(ctx, id)
	if err != nil {
		return err
	}
	if !ValidTransition(w.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, status)
	}

	now := time.Now().UTC()
	switch status {
	case StatusRunning:
		_, err = s.db.ExecContext(ctx,
			"UPDATE workflows SET status = ?, started_at = ? WHERE id = ?",
			status, now, id,
		)
	default:
		_, err = s.db.ExecContext(ctx,
			"UPDATE workflows SET status = ?, ended_at = ? WHERE id = ?",
			status, now, id,
		)
	}
	if err != nil {
		return fmt.Errorf("update workflow status: %w", err)
	}
	return nil
}

// SetOutputs stores the outputs JSON for a workflow.
func (s *Store) SetOutputs(ctx context.Context, id string, outputs []byte) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE workflows SET outputs = ? WHERE id = ?", outputs, id,
	)
	if err != nil {
		return fmt.Errorf("set outputs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertCallLog records one task call attempt.
func (s *Store) InsertCallLog(ctx context.Context, cl *CallLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_logs (workflow_id, call, attempt, shard_index, stdout, stderr)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cl.WorkflowID, cl.Call, cl.Attempt, cl.ShardIndex, cl.Stdout, cl.Stderr,
	)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

// GetCallLogs returns all call attempts for a workflow in insertion order.
func (s *Store) GetCallLogs(ctx context.Context, workflowID string) ([]CallLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT workflow_id, call, attempt, shard_index, stdout, stderr
		 FROM call_logs WHERE workflow_id = ? ORDER BY rowid`, workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("get call logs: %w", err)
	}
	defer rows.Close()

	var logs []CallLog
	for rows.Next() {
		var cl CallLog
		if err := rows.Scan(&cl.WorkflowID, &cl.Call, &cl.Attempt, &cl.ShardIndex, &cl.Stdout, &cl.Stderr); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		logs = append(logs, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call logs: %w", err)
	}

	return logs, nil
}

// GetStats returns aggregate workflow and call counters.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM workflows GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count workflows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Workflows += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM call_logs").Scan(&stats.Jobs); err != nil {
		return nil, fmt.Errorf("count call logs: %w", err)
	}

	return stats, nil
}
