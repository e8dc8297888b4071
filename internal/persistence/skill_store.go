package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/storage"
)

// Skill is a learned strategy: what core to use and how, retrieved by
// keyword match against new tasks. Grounded on
// original_source/agents/skill_library.rs's Voyager-style skill library.
type Skill struct {
	ID              uuid.UUID
	Name            string
	Description     string
	RecommendedCore bus.CoreType
	Steps           []string
	Preconditions   []string
	TaskPatterns    []string
	UseCount        int
	AttemptCount    int
	SuccessRate     float64
	Verified        bool
	CreatedAt       time.Time
	LastUsed        *time.Time
}

// NewSkill creates an unverified skill with no recorded usage yet.
func NewSkill(name, description string, core bus.CoreType) Skill {
	return Skill{
		ID:              uuid.New(),
		Name:            name,
		Description:     description,
		RecommendedCore: core,
		CreatedAt:       time.Now().UTC(),
	}
}

func (s Skill) WithSteps(steps []string) Skill             { s.Steps = steps; return s }
func (s Skill) WithPreconditions(pre []string) Skill        { s.Preconditions = pre; return s }
func (s Skill) WithPatterns(patterns []string) Skill        { s.TaskPatterns = patterns; return s }

// RecordUsage updates use/attempt counts and the derived success rate,
// marking the skill verified the first time it succeeds.
func (s *Skill) RecordUsage(succeeded bool) {
	s.AttemptCount++
	if succeeded {
		s.UseCount++
		s.Verified = true
	}
	if s.AttemptCount > 0 {
		s.SuccessRate = float64(s.UseCount) / float64(s.AttemptCount)
	}
	now := time.Now().UTC()
	s.LastUsed = &now
}

// AsPromptContext formats the skill as prompt-injectable text.
func (s Skill) AsPromptContext() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Skill: %s", s.Name))
	parts = append(parts, fmt.Sprintf("Strategy: %s", s.Description))
	parts = append(parts, fmt.Sprintf("Recommended core: %s", s.RecommendedCore))

	if len(s.Steps) > 0 {
		parts = append(parts, "Steps:")
		for i, step := range s.Steps {
			parts = append(parts, fmt.Sprintf("  %d. %s", i+1, step))
		}
	}
	if len(s.Preconditions) > 0 {
		parts = append(parts, fmt.Sprintf("When to use: %s", strings.Join(s.Preconditions, ", ")))
	}
	if s.Verified {
		parts = append(parts, fmt.Sprintf("Track record: %d/%d successful (%.0f%%)", s.UseCount, s.AttemptCount, s.SuccessRate*100))
	}
	return strings.Join(parts, "\n")
}

// SkillStore is a SQLite-backed skill library, retrieved by keyword overlap
// against verified skills only.
type SkillStore struct {
	db *sql.DB
}

// OpenSkillStore opens (or creates) a skill store.
func OpenSkillStore(path string) (*SkillStore, error) {
	db, err := storage.OpenWAL(path)
	if err != nil {
		return nil, err
	}
	s := &SkillStore{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SkillStore) initTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS skills (
		skill_id          TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		description       TEXT NOT NULL,
		recommended_core  TEXT NOT NULL,
		steps             TEXT NOT NULL DEFAULT '[]',
		preconditions     TEXT NOT NULL DEFAULT '[]',
		task_patterns     TEXT NOT NULL DEFAULT '[]',
		use_count         INTEGER NOT NULL DEFAULT 0,
		attempt_count     INTEGER NOT NULL DEFAULT 0,
		success_rate      REAL NOT NULL DEFAULT 0.0,
		verified          INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL,
		last_used         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_skills_verified
		ON skills(verified DESC, success_rate DESC);`)
	if err != nil {
		return fmt.Errorf("create skills table: %w", err)
	}
	return nil
}

// Store inserts or replaces a skill.
func (s *SkillStore) Store(sk Skill) error {
	stepsJSON, _ := json.Marshal(sk.Steps)
	preJSON, _ := json.Marshal(sk.Preconditions)
	patternsJSON, _ := json.Marshal(sk.TaskPatterns)

	var lastUsed *string
	if sk.LastUsed != nil {
		str := sk.LastUsed.UTC().Format(time.RFC3339)
		lastUsed = &str
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO skills
			(skill_id, name, description, recommended_core, steps,
			 preconditions, task_patterns, use_count, attempt_count,
			 success_rate, verified, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sk.ID.String(), sk.Name, sk.Description, string(sk.RecommendedCore),
		string(stepsJSON), string(preJSON), string(patternsJSON),
		sk.UseCount, sk.AttemptCount, sk.SuccessRate, boolToInt(sk.Verified),
		sk.CreatedAt.UTC().Format(time.RFC3339), lastUsed,
	)
	if err != nil {
		return fmt.Errorf("store skill %q: %w", sk.ID, err)
	}
	return nil
}

// FindForTask finds verified skills matching task via keyword overlap
// (name match weighted 2x, description 1x, task_patterns 3x), ordered by
// match score then success rate then use count. Excludes unverified skills.
func (s *SkillStore) FindForTask(task string, limit int) ([]Skill, error) {
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
		scoreParts = append(scoreParts, "(CASE WHEN LOWER(name) LIKE '%' || ? || '%' THEN 2 ELSE 0 END + "+
			"CASE WHEN LOWER(description) LIKE '%' || ? || '%' THEN 1 ELSE 0 END + "+
			"CASE WHEN LOWER(task_patterns) LIKE '%' || ? || '%' THEN 3 ELSE 0 END)")
	}
	scoreExpr := strings.Join(scoreParts, " + ")

	query := fmt.Sprintf(`
		SELECT skill_id, name, description, recommended_core, steps,
			preconditions, task_patterns, use_count, attempt_count,
			success_rate, verified, created_at, last_used
		FROM skills
		WHERE (%s) > 0 AND verified = 1
		ORDER BY (%s) DESC, success_rate DESC, use_count DESC
		LIMIT ?`, scoreExpr, scoreExpr)

	var args []any
	for _, kw := range keywords {
		args = append(args, kw, kw, kw)
	}
	for _, kw := range keywords {
		args = append(args, kw, kw, kw)
	}
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find skills for task: %w", err)
	}
	defer rows.Close()

	var out []Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sk)
	}
	return out, rows.Err()
}

// Close shuts down the underlying database connection.
func (s *SkillStore) Close() error {
	return s.db.Close()
}

func scanSkill(rows *sql.Rows) (*Skill, error) {
	var idStr, name, description, core, stepsJSON, preJSON, patternsJSON, createdAtStr string
	var useCount, attemptCount int
	var successRate float64
	var verifiedInt int
	var lastUsedStr sql.NullString

	if err := rows.Scan(&idStr, &name, &description, &core, &stepsJSON, &preJSON, &patternsJSON,
		&useCount, &attemptCount, &successRate, &verifiedInt, &createdAtStr, &lastUsedStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse skill id %q: %w", idStr, err)
	}

	sk := &Skill{
		ID:              id,
		Name:            name,
		Description:     description,
		RecommendedCore: bus.CoreType(core),
		UseCount:        useCount,
		AttemptCount:    attemptCount,
		SuccessRate:     successRate,
		Verified:        verifiedInt != 0,
	}
	json.Unmarshal([]byte(stepsJSON), &sk.Steps)
	json.Unmarshal([]byte(preJSON), &sk.Preconditions)
	json.Unmarshal([]byte(patternsJSON), &sk.TaskPatterns)
	sk.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	if lastUsedStr.Valid && lastUsedStr.String != "" {
		t, err := time.Parse(time.RFC3339, lastUsedStr.String)
		if err == nil {
			sk.LastUsed = &t
		}
	}
	return sk, nil
}
