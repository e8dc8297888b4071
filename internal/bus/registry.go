package bus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/overhuman/agentrt/internal/storage"
)

// AgentRecord is the persistent view of a registered agent.
type AgentRecord struct {
	ID            AgentId
	DisplayName   string
	Role          AgentRole
	Team          *TeamId
	Status        AgentStatus
	Capabilities  []string
	RegisteredAt  time.Time
	LastHeartbeat *time.Time
	Metadata      map[string]any
}

// AgentRegistry is a SQLite-backed registry of every known agent.
// Grounded on original_source/agent_bus/registry.rs's AgentRegistry, with
// the connection/table-init idiom of internal/storage.NewSQLiteStore.
type AgentRegistry struct {
	db *sql.DB
}

// OpenAgentRegistry opens (or creates) a registry backed by a file.
// Use ":memory:" for an in-memory registry, handy for tests.
func OpenAgentRegistry(path string) (*AgentRegistry, error) {
	db, err := storage.OpenWAL(path)
	if err != nil {
		return nil, err
	}
	r := &AgentRegistry{db: db}
	if err := r.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *AgentRegistry) initTables() error {
	_, err := r.db.Exec(`
	CREATE TABLE IF NOT EXISTS agents (
		id              TEXT PRIMARY KEY,
		display_name    TEXT NOT NULL,
		role            TEXT NOT NULL,
		team            TEXT,
		status          TEXT NOT NULL DEFAULT 'offline',
		capabilities    TEXT NOT NULL DEFAULT '[]',
		registered_at   TEXT NOT NULL,
		last_heartbeat  TEXT,
		metadata        TEXT NOT NULL DEFAULT '{}'
	);`)
	if err != nil {
		return fmt.Errorf("create agents table: %w", err)
	}
	return nil
}

// RegisterAgent inserts a new agent or updates an existing one.
func (r *AgentRegistry) RegisterAgent(rec AgentRecord) error {
	caps, err := json.Marshal(rec.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	var team *string
	if rec.Team != nil {
		s := rec.Team.String()
		team = &s
	}
	var heartbeat *string
	if rec.LastHeartbeat != nil {
		s := rec.LastHeartbeat.UTC().Format(time.RFC3339)
		heartbeat = &s
	}
	registeredAt := rec.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}

	_, err = r.db.Exec(`
		INSERT INTO agents (id, display_name, role, team, status, capabilities, registered_at, last_heartbeat, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name   = excluded.display_name,
			role           = excluded.role,
			team           = excluded.team,
			status         = excluded.status,
			capabilities   = excluded.capabilities,
			last_heartbeat = excluded.last_heartbeat,
			metadata       = excluded.metadata`,
		rec.ID.String(), rec.DisplayName, string(rec.Role), team, string(rec.Status),
		string(caps), registeredAt.UTC().Format(time.RFC3339), heartbeat, string(meta),
	)
	if err != nil {
		return fmt.Errorf("register agent %q: %w", rec.ID, err)
	}
	return nil
}

// UnregisterAgent removes an agent from the registry. Reports whether a row
// was actually removed.
func (r *AgentRegistry) UnregisterAgent(id AgentId) (bool, error) {
	res, err := r.db.Exec("DELETE FROM agents WHERE id = ?", id.String())
	if err != nil {
		return false, fmt.Errorf("unregister agent %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateStatus sets the status of an agent. Reports whether a row was updated.
func (r *AgentRegistry) UpdateStatus(id AgentId, status AgentStatus) (bool, error) {
	res, err := r.db.Exec("UPDATE agents SET status = ? WHERE id = ?", string(status), id.String())
	if err != nil {
		return false, fmt.Errorf("update status %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RecordHeartbeat touches the heartbeat timestamp for an agent.
func (r *AgentRegistry) RecordHeartbeat(id AgentId) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.db.Exec("UPDATE agents SET last_heartbeat = ? WHERE id = ?", now, id.String())
	if err != nil {
		return false, fmt.Errorf("record heartbeat %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const selectCols = "id, display_name, role, team, status, capabilities, registered_at, last_heartbeat, metadata"

// GetAgent retrieves a single agent by id. Returns nil, nil if not found.
func (r *AgentRegistry) GetAgent(id AgentId) (*AgentRecord, error) {
	row := r.db.QueryRow("SELECT "+selectCols+" FROM agents WHERE id = ?", id.String())
	rec, err := scanAgentRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %q: %w", id, err)
	}
	return rec, nil
}

// ListAgents lists all agents, optionally filtering by status.
func (r *AgentRegistry) ListAgents(statusFilter *AgentStatus) ([]AgentRecord, error) {
	var rows *sql.Rows
	var err error
	if statusFilter != nil {
		rows, err = r.db.Query("SELECT "+selectCols+" FROM agents WHERE status = ? ORDER BY id", string(*statusFilter))
	} else {
		rows, err = r.db.Query("SELECT " + selectCols + " FROM agents ORDER BY id")
	}
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return scanAgentRecords(rows)
}

// AgentsByRole lists agents that have a specific role.
func (r *AgentRegistry) AgentsByRole(role AgentRole) ([]AgentRecord, error) {
	rows, err := r.db.Query("SELECT "+selectCols+" FROM agents WHERE role = ? ORDER BY id", string(role))
	if err != nil {
		return nil, fmt.Errorf("agents by role %q: %w", role, err)
	}
	return scanAgentRecords(rows)
}

// AgentsByTeam lists agents belonging to a specific team.
func (r *AgentRegistry) AgentsByTeam(team TeamId) ([]AgentRecord, error) {
	rows, err := r.db.Query("SELECT "+selectCols+" FROM agents WHERE team = ? ORDER BY id", team.String())
	if err != nil {
		return nil, fmt.Errorf("agents by team %q: %w", team, err)
	}
	return scanAgentRecords(rows)
}

// Close shuts down the underlying database connection.
func (r *AgentRegistry) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgentRecord(row rowScanner) (*AgentRecord, error) {
	var idStr, displayName, roleStr, statusStr, capsStr, registeredStr, metaStr string
	var teamStr, heartbeatStr sql.NullString

	if err := row.Scan(&idStr, &displayName, &roleStr, &teamStr, &statusStr, &capsStr, &registeredStr, &heartbeatStr, &metaStr); err != nil {
		return nil, err
	}

	rec := &AgentRecord{
		ID:          AgentId(idStr),
		DisplayName: displayName,
		Role:        AgentRole(roleStr),
		Status:      AgentStatus(statusStr),
	}
	if teamStr.Valid && teamStr.String != "" {
		t := TeamId(teamStr.String)
		rec.Team = &t
	}
	rec.RegisteredAt, _ = time.Parse(time.RFC3339, registeredStr)
	if heartbeatStr.Valid && heartbeatStr.String != "" {
		hb, err := time.Parse(time.RFC3339, heartbeatStr.String)
		if err == nil {
			rec.LastHeartbeat = &hb
		}
	}
	if capsStr != "" {
		json.Unmarshal([]byte(capsStr), &rec.Capabilities)
	}
	if metaStr != "" {
		json.Unmarshal([]byte(metaStr), &rec.Metadata)
	}
	return rec, nil
}

func scanAgentRecords(rows *sql.Rows) ([]AgentRecord, error) {
	defer rows.Close()
	var out []AgentRecord
	for rows.Next() {
		rec, err := scanAgentRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
