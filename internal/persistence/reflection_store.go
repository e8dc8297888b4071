package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/overhuman/agentrt/internal/storage"
)

// AttemptOutcome is the terminal state of one reflected-upon attempt.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"
	OutcomePartial AttemptOutcome = "partial"
)

// Reflection is a durable lesson extracted from a past attempt, persisted
// so the runtime can learn from failures across restarts. Grounded on
// original_source/agents/persistence/reflection_store.rs's Reflection row
// shape.
type Reflection struct {
	ID             uuid.UUID
	Task           string
	AttemptSummary string
	Outcome        AttemptOutcome
	Diagnosis      string
	ReflectionText string
	Lessons        []string
	Improvements   []string
	Confidence     float64
	CreatedAt      time.Time
	Tags           []string
}

// NewReflection builds a Reflection with a fresh ID and timestamp.
func NewReflection(task, attemptSummary string, outcome AttemptOutcome) Reflection {
	return Reflection{
		ID:             uuid.New(),
		Task:           task,
		AttemptSummary: attemptSummary,
		Outcome:        outcome,
		Confidence:     1.0,
		CreatedAt:      time.Now().UTC(),
	}
}

// ReflectionStore is a SQLite-backed store for reflections, retrieved by
// keyword overlap or by tag.
type ReflectionStore struct {
	db *sql.DB
}

// OpenReflectionStore opens (or creates) a reflection store.
func OpenReflectionStore(path string) (*ReflectionStore, error) {
	db, err := storage.OpenWAL(path)
	if err != nil {
		return nil, err
	}
	s := &ReflectionStore{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ReflectionStore) initTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS reflections (
		reflection_id    TEXT PRIMARY KEY,
		task             TEXT NOT NULL,
		attempt_summary  TEXT NOT NULL,
		outcome          TEXT NOT NULL,
		diagnosis        TEXT NOT NULL DEFAULT '',
		reflection_text  TEXT NOT NULL DEFAULT '',
		lessons          TEXT NOT NULL DEFAULT '[]',
		improvements     TEXT NOT NULL DEFAULT '[]',
		confidence       REAL NOT NULL DEFAULT 1.0,
		created_at       TEXT NOT NULL,
		tags             TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_reflections_created_at ON reflections(created_at DESC);`)
	if err != nil {
		return fmt.Errorf("create reflections table: %w", err)
	}
	return nil
}

const reflectionCols = "reflection_id, task, attempt_summary, outcome, diagnosis, reflection_text, lessons, improvements, confidence, created_at, tags"

// Store inserts or replaces a reflection.
func (s *ReflectionStore) Store(r Reflection) error {
	lessonsJSON, _ := json.Marshal(r.Lessons)
	improvementsJSON, _ := json.Marshal(r.Improvements)
	tagsJSON, _ := json.Marshal(r.Tags)

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO reflections
			(reflection_id, task, attempt_summary, outcome, diagnosis,
			 reflection_text, lessons, improvements, confidence, created_at, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Task, r.AttemptSummary, string(r.Outcome), r.Diagnosis,
		r.ReflectionText, string(lessonsJSON), string(improvementsJSON), r.Confidence,
		r.CreatedAt.UTC().Format(time.RFC3339), string(tagsJSON),
	)
	if err != nil {
		return fmt.Errorf("store reflection %q: %w", r.ID, err)
	}
	return nil
}

// LoadAll returns every reflection, most recent first.
func (s *ReflectionStore) LoadAll() ([]Reflection, error) {
	rows, err := s.db.Query("SELECT " + reflectionCols + " FROM reflections ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("load reflections: %w", err)
	}
	return scanReflections(rows)
}

// FindRelevant finds reflections matching task via keyword overlap against
// the task and diagnosis fields, scored by match count, most recent first.
func (s *ReflectionStore) FindRelevant(task string, limit int) ([]Reflection, error) {
	var keywords []string
	for _, w := range strings.Fields(task) {
		if len(w) > 3 {
			keywords = append(keywords, strings.ToLower(w))
		}
	}
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	var scoreParts []string
	for range keywords {
		scoreParts = append(scoreParts, "(CASE WHEN LOWER(task) LIKE '%' || ? || '%' THEN 1 ELSE 0 END + "+
			"CASE WHEN LOWER(diagnosis) LIKE '%' || ? || '%' THEN 1 ELSE 0 END)")
	}
	scoreExpr := strings.Join(scoreParts, " + ")

	query := fmt.Sprintf(`
		SELECT %s FROM reflections
		WHERE (%s) > 0
		ORDER BY (%s) DESC, created_at DESC
		LIMIT ?`, reflectionCols, scoreExpr, scoreExpr)

	var args []any
	for _, kw := range keywords {
		args = append(args, kw, kw)
	}
	for _, kw := range keywords {
		args = append(args, kw, kw)
	}
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find relevant reflections: %w", err)
	}
	return scanReflections(rows)
}

// FindByTag finds every reflection carrying tag.
func (s *ReflectionStore) FindByTag(tag string) ([]Reflection, error) {
	pattern := fmt.Sprintf("%%%q%%", tag)
	rows, err := s.db.Query("SELECT "+reflectionCols+" FROM reflections WHERE tags LIKE ? ORDER BY created_at DESC", pattern)
	if err != nil {
		return nil, fmt.Errorf("find reflections by tag %q: %w", tag, err)
	}
	return scanReflections(rows)
}

// Count returns the total number of stored reflections.
func (s *ReflectionStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM reflections").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reflections: %w", err)
	}
	return count, nil
}

// Close shuts down the underlying database connection.
func (s *ReflectionStore) Close() error {
	return s.db.Close()
}

func scanReflections(rows *sql.Rows) ([]Reflection, error) {
	defer rows.Close()
	var out []Reflection
	for rows.Next() {
		var idStr, task, attemptSummary, outcome, diagnosis, reflectionText, lessonsJSON, improvementsJSON, createdAtStr, tagsJSON string
		var confidence float64

		if err := rows.Scan(&idStr, &task, &attemptSummary, &outcome, &diagnosis, &reflectionText,
			&lessonsJSON, &improvementsJSON, &confidence, &createdAtStr, &tagsJSON); err != nil {
			return nil, err
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse reflection id %q: %w", idStr, err)
		}

		r := Reflection{
			ID:             id,
			Task:           task,
			AttemptSummary: attemptSummary,
			Outcome:        AttemptOutcome(outcome),
			Diagnosis:      diagnosis,
			ReflectionText: reflectionText,
			Confidence:     confidence,
		}
		json.Unmarshal([]byte(lessonsJSON), &r.Lessons)
		json.Unmarshal([]byte(improvementsJSON), &r.Improvements)
		json.Unmarshal([]byte(tagsJSON), &r.Tags)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)

		out = append(out, r)
	}
	return out, rows.Err()
}
