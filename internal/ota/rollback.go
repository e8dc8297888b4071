package ota

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RollbackReason explains why a rollback was triggered. Grounded on
// original_source/ota/rollback.rs's RollbackReason; the Rust Custom(String)
// variant generalizes to a plain string carrying "custom: <msg>",
// matching its Display impl.
type RollbackReason string

const (
	ReasonHealthCheckFailed      RollbackReason = "health_check_failed"
	ReasonUserRequested          RollbackReason = "user_requested"
	ReasonBuildValidationFailed  RollbackReason = "build_validation_failed"
	ReasonSwapVerificationFailed RollbackReason = "swap_verification_failed"
	ReasonStartupCrash           RollbackReason = "startup_crash"
)

// CustomRollbackReason builds a Custom rollback reason carrying msg.
func CustomRollbackReason(msg string) RollbackReason {
	return RollbackReason("custom: " + msg)
}

func (r RollbackReason) String() string { return string(r) }

// RollbackRecord documents one rollback attempt.
type RollbackRecord struct {
	RollbackID   string
	SwapID       string
	Reason       RollbackReason
	RolledBackAt time.Time
	Success      bool
	Details      string
}

// RollbackManager maintains bounded history of swaps and snapshots so a
// failed update can be reversed. Grounded on
// original_source/ota/rollback.rs's RollbackManager.
type RollbackManager struct {
	mu              sync.Mutex
	historyDir      string
	swapHistory     []SwapRecord
	snapshotHistory []string
	maxHistory      int
}

// NewRollbackManager creates a RollbackManager retaining at most
// maxHistory swap records and snapshot IDs.
func NewRollbackManager(historyDir string, maxHistory int) *RollbackManager {
	return &RollbackManager{historyDir: historyDir, maxHistory: maxHistory}
}

// NewRollbackManagerWithDefaults creates a RollbackManager retaining 20
// history entries.
func NewRollbackManagerWithDefaults(historyDir string) *RollbackManager {
	return NewRollbackManager(historyDir, 20)
}

// HistoryDir returns the directory rollback records are persisted to.
func (m *RollbackManager) HistoryDir() string { return m.historyDir }

// RecordSwap pushes record to the front of the swap history, trimming
// to MaxHistory.
func (m *RollbackManager) RecordSwap(record SwapRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swapHistory = append([]SwapRecord{record}, m.swapHistory...)
	if len(m.swapHistory) > m.maxHistory {
		m.swapHistory = m.swapHistory[:m.maxHistory]
	}
}

// RecordSnapshot pushes snapshotID to the front of the snapshot
// history, trimming to MaxHistory.
func (m *RollbackManager) RecordSnapshot(snapshotID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshotHistory = append([]string{snapshotID}, m.snapshotHistory...)
	if len(m.snapshotHistory) > m.maxHistory {
		m.snapshotHistory = m.snapshotHistory[:m.maxHistory]
	}
}

// LastSwap returns the most recent swap record, if any.
func (m *RollbackManager) LastSwap() (SwapRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.swapHistory) == 0 {
		return SwapRecord{}, false
	}
	return m.swapHistory[0], true
}

// LastSnapshotID returns the most recent snapshot ID, if any.
func (m *RollbackManager) LastSnapshotID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshotHistory) == 0 {
		return "", false
	}
	return m.snapshotHistory[0], true
}

// SwapCount returns the number of recorded swaps.
func (m *RollbackManager) SwapCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.swapHistory)
}

// SnapshotCount returns the number of recorded snapshots.
func (m *RollbackManager) SnapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshotHistory)
}

// CanRollback reports whether a swap record with an existing backup
// file is available.
func (m *RollbackManager) CanRollback() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.swapHistory) == 0 {
		return false
	}
	_, err := os.Stat(m.swapHistory[0].BackupPath)
	return err == nil
}

// Rollback restores the most recent swap's backup over its active
// path, persisting a RollbackRecord to the history directory.
func (m *RollbackManager) Rollback(reason RollbackReason) (RollbackRecord, error) {
	m.mu.Lock()
	if len(m.swapHistory) == 0 {
		m.mu.Unlock()
		return RollbackRecord{}, fmt.Errorf("no swap history available for rollback")
	}
	swap := m.swapHistory[0]
	m.mu.Unlock()

	rollbackID := uuid.New().String()

	if _, err := os.Stat(swap.BackupPath); err != nil {
		record := RollbackRecord{
			RollbackID:   rollbackID,
			SwapID:       swap.SwapID,
			Reason:       reason,
			RolledBackAt: time.Now().UTC(),
			Success:      false,
			Details:      fmt.Sprintf("Backup not found: %s", swap.BackupPath),
		}
		return record, nil
	}

	var success bool
	var details string
	if err := copyFile(swap.BackupPath, swap.ActivePath); err != nil {
		success = false
		details = fmt.Sprintf("Restore failed: %v", err)
	} else {
		success = true
		details = fmt.Sprintf("Restored backup from %s", swap.BackupPath)
	}

	record := RollbackRecord{
		RollbackID:   rollbackID,
		SwapID:       swap.SwapID,
		Reason:       reason,
		RolledBackAt: time.Now().UTC(),
		Success:      success,
		Details:      details,
	}

	m.saveRollbackRecord(record)
	return record, nil
}

func (m *RollbackManager) saveRollbackRecord(record RollbackRecord) error {
	if err := os.MkdirAll(m.historyDir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	path := filepath.Join(m.historyDir, fmt.Sprintf("rollback_%s.json", record.RollbackID))
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize rollback record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rollback record: %w", err)
	}
	return nil
}

// LoadHistory reads every persisted rollback record, newest first.
func (m *RollbackManager) LoadHistory() ([]RollbackRecord, error) {
	entries, err := os.ReadDir(m.historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history directory: %w", err)
	}

	var records []RollbackRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.historyDir, e.Name()))
		if err != nil {
			continue
		}
		var record RollbackRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].RolledBackAt.After(records[j].RolledBackAt) })
	return records, nil
}

// ClearHistory empties both in-memory history stacks.
func (m *RollbackManager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swapHistory = nil
	m.snapshotHistory = nil
}
