// Package persistence implements the durable SQLite stores that back the
// agent runtime's learning loop: experiences (which core performed well on
// which kind of task), skills (LLM→code promotion), and reflections
// (post-run lessons). Grounded on internal/memory/longterm.go's SQLite+FTS5
// idiom and original_source/agents/{core/selector.rs,skill_library.rs,
// persistence/reflection_store.rs}.
package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/overhuman/agentrt/internal/bus"
	"github.com/overhuman/agentrt/internal/storage"
)

// Experience records one core's outcome on one task, tagged with a task
// category for later "which core wins at X" queries.
type Experience struct {
	ID          uuid.UUID
	Task        string
	CoreType    bus.CoreType
	Category    string
	Success     bool
	Turns       int
	CostUSD     float64
	ElapsedMs   int64
	RecordedAt  time.Time
}

// NewExperience builds an Experience with a fresh ID and the current
// timestamp, matching original_source's Experience::new constructor.
func NewExperience(task string, coreType bus.CoreType, success bool, turns int, costUSD float64, elapsedMs int64) Experience {
	return Experience{
		ID:         uuid.New(),
		Task:       task,
		CoreType:   coreType,
		Success:    success,
		Turns:      turns,
		CostUSD:    costUSD,
		ElapsedMs:  elapsedMs,
		RecordedAt: time.Now().UTC(),
	}
}

// WithCategory sets the task category, returning the updated value for
// chaining (original_source's builder-method idiom).
func (e Experience) WithCategory(category string) Experience {
	e.Category = category
	return e
}

// ExperienceStore is the SQLite-backed ranking table behind
// agentcore.CoreSelector's experience-based selection step.
type ExperienceStore struct {
	db              *sql.DB
	cache           *cache.Cache
	minSamples      int
}

// bestCoreCacheTTL matches the 30s cache window named in SPEC_FULL.md §4.1.
const bestCoreCacheTTL = 30 * time.Second

// OpenExperienceStore opens (or creates) an experience store. minSamples is
// the minimum row count (`HAVING COUNT(*) >= minSamples`) before a
// category's historical winner is trusted over static suitability scoring.
func OpenExperienceStore(path string, minSamples int) (*ExperienceStore, error) {
	db, err := storage.OpenWAL(path)
	if err != nil {
		return nil, err
	}
	s := &ExperienceStore{
		db:         db,
		cache:      cache.New(bestCoreCacheTTL, 2*bestCoreCacheTTL),
		minSamples: minSamples,
	}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ExperienceStore) initTables() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS experiences (
		id          TEXT PRIMARY KEY,
		task        TEXT NOT NULL,
		core_type   TEXT NOT NULL,
		category    TEXT NOT NULL,
		success     INTEGER NOT NULL,
		turns       INTEGER NOT NULL,
		cost_usd    REAL NOT NULL,
		elapsed_ms  INTEGER NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_experiences_category_core
		ON experiences(category, core_type);`)
	if err != nil {
		return fmt.Errorf("create experiences table: %w", err)
	}
	return nil
}

// Store persists an Experience and invalidates the best-core cache entry
// for its category, so the next lookup reflects the new data point.
func (s *ExperienceStore) Store(e Experience) error {
	_, err := s.db.Exec(`
		INSERT INTO experiences (id, task, core_type, category, success, turns, cost_usd, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Task, string(e.CoreType), e.Category, boolToInt(e.Success),
		e.Turns, e.CostUSD, e.ElapsedMs, e.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store experience: %w", err)
	}
	s.cache.Delete(e.Category)
	return nil
}

// BestCoreForCategory returns the core type with the highest success rate
// for category, provided at least minSamples experiences were recorded for
// it. Returns ok=false when no core clears that threshold.
func (s *ExperienceStore) BestCoreForCategory(category string) (coreType bus.CoreType, successRate float64, ok bool, err error) {
	type cached struct {
		CoreType    bus.CoreType
		SuccessRate float64
	}
	if v, found := s.cache.Get(category); found {
		c := v.(cached)
		return c.CoreType, c.SuccessRate, true, nil
	}

	row := s.db.QueryRow(`
		SELECT core_type, AVG(success) AS rate
		FROM experiences
		WHERE category = ?
		GROUP BY core_type
		HAVING COUNT(*) >= ?
		ORDER BY rate DESC
		LIMIT 1`,
		category, s.minSamples,
	)

	var core string
	var rate float64
	if err := row.Scan(&core, &rate); err != nil {
		if err == sql.ErrNoRows {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("best core for category %q: %w", category, err)
	}

	s.cache.Set(category, cached{CoreType: bus.CoreType(core), SuccessRate: rate}, cache.DefaultExpiration)
	return bus.CoreType(core), rate, true, nil
}

// Close shuts down the underlying database connection.
func (s *ExperienceStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
