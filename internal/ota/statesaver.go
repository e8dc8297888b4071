// Package ota implements the self-update pipeline: capture running state,
// build a new binary from source, atomically swap it in, health-check the
// result, and roll back automatically on failure.
//
// Grounded on original_source/ota/*.rs.
package ota

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// StateSnapshot captures enough running state to resume a session across
// a binary swap. Grounded on original_source/ota/mod.rs's use of
// StateSaver (the Rust source file itself is absent from the retrieval
// pack; fields follow the spec and mod.rs call sites).
type StateSnapshot struct {
	SnapshotID string
	CreatedAt  time.Time
	Version    string
	ConfigJSON string
	SessionIDs []string
	Extra      *string
}

// StateSaver persists StateSnapshots to disk as pretty JSON, pruning to
// the newest MaxSnapshots.
type StateSaver struct {
	snapshotDir  string
	maxSnapshots int
}

// NewStateSaver creates a StateSaver writing under snapshotDir, retaining
// at most maxSnapshots files.
func NewStateSaver(snapshotDir string, maxSnapshots int) *StateSaver {
	return &StateSaver{snapshotDir: snapshotDir, maxSnapshots: maxSnapshots}
}

// SnapshotDir returns the directory snapshots are written to.
func (s *StateSaver) SnapshotDir() string { return s.snapshotDir }

// CaptureState builds a new StateSnapshot with a fresh ID and timestamp.
func (s *StateSaver) CaptureState(version, configJSON string, sessionIDs []string, extra *string) StateSnapshot {
	return StateSnapshot{
		SnapshotID: uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Version:    version,
		ConfigJSON: configJSON,
		SessionIDs: sessionIDs,
		Extra:      extra,
	}
}

// SaveSnapshot writes snapshot as pretty JSON into the snapshot
// directory and prunes older snapshots beyond MaxSnapshots. Errors here
// are treated as non-fatal by OtaManager.PerformUpdate, matching the
// state machine's SavingState transition.
func (s *StateSaver) SaveSnapshot(snapshot StateSnapshot) error {
	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := filepath.Join(s.snapshotDir, fmt.Sprintf("snapshot_%s.json", snapshot.SnapshotID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return s.pruneSnapshots()
}

// LoadSnapshots reads every persisted snapshot, newest first.
func (s *StateSaver) LoadSnapshots() ([]StateSnapshot, error) {
	entries, err := os.ReadDir(s.snapshotDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var snapshots []StateSnapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.snapshotDir, e.Name()))
		if err != nil {
			continue
		}
		var snap StateSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt) })
	return snapshots, nil
}

func (s *StateSaver) pruneSnapshots() error {
	snapshots, err := s.LoadSnapshots()
	if err != nil {
		return err
	}
	if len(snapshots) <= s.maxSnapshots {
		return nil
	}
	for _, snap := range snapshots[s.maxSnapshots:] {
		path := filepath.Join(s.snapshotDir, fmt.Sprintf("snapshot_%s.json", snap.SnapshotID))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune snapshot: %w", err)
		}
	}
	return nil
}
