package daemon

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/overhuman/agentrt/internal/storage"
)

// ActionOutcome is the result of one audited autonomous action.
// Grounded on original_source/autonomous/audit_log.rs's ActionOutcome.
type ActionOutcome string

const (
	OutcomeSuccess ActionOutcome = "success"
	OutcomeFailure ActionOutcome = "failure"
	OutcomeSkipped ActionOutcome = "skipped"
	OutcomeBlocked ActionOutcome = "blocked"
)

func (o ActionOutcome) String() string { return string(o) }

// ActionOutcomeFromString parses a persisted outcome string, defaulting
// to Failure on an unrecognized value (matching the Rust
// ActionOutcome::from_str fallback).
func ActionOutcomeFromString(s string) ActionOutcome {
	switch ActionOutcome(s) {
	case OutcomeSuccess, OutcomeSkipped, OutcomeBlocked:
		return ActionOutcome(s)
	default:
		return OutcomeFailure
	}
}

// AuditEntry is one recorded autonomous action.
type AuditEntry struct {
	EntryID    string
	ActionType string
	Description string
	Outcome    ActionOutcome
	Details    string
	Source     string
	Timestamp  time.Time
	DurationMs *int64
	Error      *string
}

// NewAuditEntry builds an entry with a fresh ID and the current
// timestamp.
func NewAuditEntry(actionType, description string, outcome ActionOutcome, source string) AuditEntry {
	return AuditEntry{
		EntryID:     uuid.New().String(),
		ActionType:  actionType,
		Description: description,
		Outcome:     outcome,
		Source:      source,
		Timestamp:   time.Now().UTC(),
	}
}

func (e AuditEntry) WithDetails(details string) AuditEntry { e.Details = details; return e }

func (e AuditEntry) WithDuration(ms int64) AuditEntry { e.DurationMs = &ms; return e }

func (e AuditEntry) WithError(errMsg string) AuditEntry { e.Error = &errMsg; return e }

// AuditLog is the SQLite-backed persistent trail of every autonomous
// action, following ExperienceStore's OpenWAL+schema-init pattern.
// Grounded on original_source/autonomous/audit_log.rs's AuditLog.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (or creates) an audit log at path. Use ":memory:"
// for an in-memory log (tests, NewInMemoryAutonomousDaemon).
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := storage.OpenWAL(path)
	if err != nil {
		return nil, err
	}
	log := &AuditLog{db: db}
	if err := log.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return log, nil
}

func (l *AuditLog) initSchema() error {
	_, err := l.db.Exec(`
	CREATE TABLE IF NOT EXISTS audit_entries (
		entry_id    TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		description TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		details     TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL,
		timestamp   INTEGER NOT NULL,
		duration_ms INTEGER,
		error       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_action_type ON audit_entries(action_type);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_outcome ON audit_entries(outcome);
	`)
	if err != nil {
		return fmt.Errorf("init audit log schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *AuditLog) Close() error { return l.db.Close() }

// Record persists one audit entry.
func (l *AuditLog) Record(entry AuditEntry) error {
	_, err := l.db.Exec(`
		INSERT INTO audit_entries
			(entry_id, action_type, description, outcome, details, source, timestamp, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryID, entry.ActionType, entry.Description, entry.Outcome.String(),
		entry.Details, entry.Source, entry.Timestamp.Unix(), entry.DurationMs, entry.Error,
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// RecordSuccess is a convenience wrapper recording a successful action.
func (l *AuditLog) RecordSuccess(actionType, description, source string) (string, error) {
	entry := NewAuditEntry(actionType, description, OutcomeSuccess, source)
	if err := l.Record(entry); err != nil {
		return "", err
	}
	return entry.EntryID, nil
}

// RecordFailure is a convenience wrapper recording a failed action.
func (l *AuditLog) RecordFailure(actionType, description, source, errMsg string) (string, error) {
	entry := NewAuditEntry(actionType, description, OutcomeFailure, source).WithError(errMsg)
	if err := l.Record(entry); err != nil {
		return "", err
	}
	return entry.EntryID, nil
}

// Recent returns the most recent limit entries, newest first.
func (l *AuditLog) Recent(limit int) ([]AuditEntry, error) {
	rows, err := l.db.Query(
		`SELECT entry_id, action_type, description, outcome, details, source, timestamp, duration_ms, error
		 FROM audit_entries ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit entries: %w", err)
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// ByActionType returns entries matching actionType, newest first.
func (l *AuditLog) ByActionType(actionType string, limit int) ([]AuditEntry, error) {
	rows, err := l.db.Query(
		`SELECT entry_id, action_type, description, outcome, details, source, timestamp, duration_ms, error
		 FROM audit_entries WHERE action_type = ? ORDER BY timestamp DESC LIMIT ?`, actionType, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries by action type: %w", err)
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// ByOutcome returns entries matching outcome, newest first.
func (l *AuditLog) ByOutcome(outcome ActionOutcome, limit int) ([]AuditEntry, error) {
	rows, err := l.db.Query(
		`SELECT entry_id, action_type, description, outcome, details, source, timestamp, duration_ms, error
		 FROM audit_entries WHERE outcome = ? ORDER BY timestamp DESC LIMIT ?`, outcome.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries by outcome: %w", err)
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

// Count returns the total number of entries.
func (l *AuditLog) Count() (int, error) {
	var n int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM audit_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// CountByOutcome returns the number of entries with the given outcome.
func (l *AuditLog) CountByOutcome(outcome ActionOutcome) (int, error) {
	var n int
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM audit_entries WHERE outcome = ?`, outcome.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries by outcome: %w", err)
	}
	return n, nil
}

// Clear deletes every entry and returns the number removed.
func (l *AuditLog) Clear() (int, error) {
	res, err := l.db.Exec(`DELETE FROM audit_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear audit entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func scanAuditEntries(rows *sql.Rows) ([]AuditEntry, error) {
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var outcome string
		var ts int64
		if err := rows.Scan(&e.EntryID, &e.ActionType, &e.Description, &outcome,
			&e.Details, &e.Source, &ts, &e.DurationMs, &e.Error); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Outcome = ActionOutcomeFromString(outcome)
		e.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
