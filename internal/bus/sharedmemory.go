package bus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/overhuman/agentrt/internal/storage"
)

// MemoryEntry is a single key-value record in shared memory.
type MemoryEntry struct {
	Namespace string
	Key       string
	Value     any
	Version   int64
	UpdatedBy string
	UpdatedAt time.Time
}

// NamespaceShared is the namespace visible to every agent.
const NamespaceShared = "shared"

// NamespaceTeam returns the namespace scoped to a team, e.g. "team:alpha".
func NamespaceTeam(teamID string) string { return fmt.Sprintf("team:%s", teamID) }

// NamespaceAgent returns the namespace scoped to a single agent, e.g.
// "agent:coder-1".
func NamespaceAgent(agentID string) string { return fmt.Sprintf("agent:%s", agentID) }

// SharedMemory is a SQLite-backed key-value store with namespace scoping
// and optimistic-concurrency versioning. Grounded on
// original_source/agent_bus/shared_memory.rs's SharedMemory.
type SharedMemory struct {
	db *sql.DB
}

// OpenSharedMemory opens (or creates) shared memory backed by a file. Use
// ":memory:" for an in-memory store, handy for tests.
func OpenSharedMemory(path string) (*SharedMemory, error) {
	db, err := storage.OpenWAL(path)
	if err != nil {
		return nil, err
	}
	m := &SharedMemory{db: db}
	if err := m.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *SharedMemory) initTables() error {
	_, err := m.db.Exec(`
	CREATE TABLE IF NOT EXISTS team_memories (
		namespace   TEXT NOT NULL,
		key         TEXT NOT NULL,
		value       TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		updated_by  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (namespace, key)
	);`)
	if err != nil {
		return fmt.Errorf("create team_memories table: %w", err)
	}
	return nil
}

// Set writes a key in the given namespace. If the key already exists, its
// version is incremented. When expectedVersion is non-nil, the write only
// succeeds if the current version matches it (optimistic concurrency); a
// mismatch returns a "version conflict" error. An expectedVersion of 0
// succeeds only when the key does not exist yet.
func (m *SharedMemory) Set(namespace, key string, value any, updatedBy string, expectedVersion *int64) (MemoryEntry, error) {
	if expectedVersion != nil {
		var current int64
		err := m.db.QueryRow(
			"SELECT version FROM team_memories WHERE namespace = ? AND key = ?",
			namespace, key,
		).Scan(&current)
		switch {
		case err == sql.ErrNoRows:
			if *expectedVersion != 0 {
				return MemoryEntry{}, fmt.Errorf("version conflict: key %s/%s does not exist (expected version %d)", namespace, key, *expectedVersion)
			}
		case err != nil:
			return MemoryEntry{}, fmt.Errorf("check version %s/%s: %w", namespace, key, err)
		default:
			if current != *expectedVersion {
				return MemoryEntry{}, fmt.Errorf("version conflict: expected %d, found %d for %s/%s", *expectedVersion, current, namespace, key)
			}
		}
	}

	valueJSON, err := json.Marshal(value)
	if err != nil {
		return MemoryEntry{}, fmt.Errorf("marshal value: %w", err)
	}
	now := time.Now().UTC()

	_, err = m.db.Exec(`
		INSERT INTO team_memories (namespace, key, value, version, updated_by, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value      = excluded.value,
			version    = team_memories.version + 1,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		namespace, key, string(valueJSON), updatedBy, now.Format(time.RFC3339),
	)
	if err != nil {
		return MemoryEntry{}, fmt.Errorf("set %s/%s: %w", namespace, key, err)
	}

	var version int64
	if err := m.db.QueryRow(
		"SELECT version FROM team_memories WHERE namespace = ? AND key = ?",
		namespace, key,
	).Scan(&version); err != nil {
		return MemoryEntry{}, fmt.Errorf("read back version %s/%s: %w", namespace, key, err)
	}

	return MemoryEntry{
		Namespace: namespace,
		Key:       key,
		Value:     value,
		Version:   version,
		UpdatedBy: updatedBy,
		UpdatedAt: now,
	}, nil
}

// Get reads a key from the given namespace. Returns nil, nil if not found.
func (m *SharedMemory) Get(namespace, key string) (*MemoryEntry, error) {
	row := m.db.QueryRow(`
		SELECT namespace, key, value, version, updated_by, updated_at
		FROM team_memories WHERE namespace = ? AND key = ?`, namespace, key)
	entry, err := scanMemoryEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	return entry, nil
}

// Delete removes a key from the given namespace. Reports whether a row was
// actually removed.
func (m *SharedMemory) Delete(namespace, key string) (bool, error) {
	res, err := m.db.Exec("DELETE FROM team_memories WHERE namespace = ? AND key = ?", namespace, key)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListNamespace lists every entry in a namespace, ordered by key.
func (m *SharedMemory) ListNamespace(namespace string) ([]MemoryEntry, error) {
	rows, err := m.db.Query(`
		SELECT namespace, key, value, version, updated_by, updated_at
		FROM team_memories WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return nil, fmt.Errorf("list namespace %s: %w", namespace, err)
	}
	defer rows.Close()

	var out []MemoryEntry
	for rows.Next() {
		entry, err := scanMemoryEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

// ListNamespaces lists every namespace that has at least one entry.
func (m *SharedMemory) ListNamespaces() ([]string, error) {
	rows, err := m.db.Query("SELECT DISTINCT namespace FROM team_memories ORDER BY namespace")
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// Close shuts down the underlying database connection.
func (m *SharedMemory) Close() error {
	return m.db.Close()
}

func scanMemoryEntry(row rowScanner) (*MemoryEntry, error) {
	var namespace, key, valueJSON, updatedBy, updatedAtStr string
	var version int64

	if err := row.Scan(&namespace, &key, &valueJSON, &version, &updatedBy, &updatedAtStr); err != nil {
		return nil, err
	}

	entry := &MemoryEntry{
		Namespace: namespace,
		Key:       key,
		Version:   version,
		UpdatedBy: updatedBy,
	}
	entry.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)
	if err := json.Unmarshal([]byte(valueJSON), &entry.Value); err != nil {
		return nil, fmt.Errorf("unmarshal value for %s/%s: %w", namespace, key, err)
	}
	return entry, nil
}
