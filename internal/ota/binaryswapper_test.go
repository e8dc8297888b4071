package ota

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test_file")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	hash, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64", len(hash))
	}

	path2 := filepath.Join(dir, "test_file2")
	if err := os.WriteFile(path2, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	hash2, err := FileHash(path2)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	if hash != hash2 {
		t.Error("expected same content to produce same hash")
	}
}

func TestIsDifferent(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a")
	path2 := filepath.Join(dir, "b")
	os.WriteFile(path1, []byte("version 1"), 0o644)
	os.WriteFile(path2, []byte("version 2"), 0o644)

	diff, err := IsDifferent(path1, path2)
	if err != nil {
		t.Fatalf("IsDifferent: %v", err)
	}
	if !diff {
		t.Error("expected different content to differ")
	}

	path3 := filepath.Join(dir, "c")
	os.WriteFile(path3, []byte("version 1"), 0o644)
	same, err := IsDifferent(path1, path3)
	if err != nil {
		t.Fatalf("IsDifferent: %v", err)
	}
	if same {
		t.Error("expected same content to not differ")
	}
}

func TestGenerateBackupPath(t *testing.T) {
	dir := t.TempDir()
	swapper := NewBinarySwapperWithDefaults(dir)
	backup := swapper.generateBackupPath("/usr/local/bin/agentrt")

	if !strings.Contains(backup, "agentrt_") {
		t.Errorf("backup = %q", backup)
	}
	if !strings.HasPrefix(backup, dir) {
		t.Errorf("backup = %q, want prefix %q", backup, dir)
	}
}

func TestSwap_NewBinary(t *testing.T) {
	dir := t.TempDir()
	swapper := NewBinarySwapperWithDefaults(filepath.Join(dir, "backups"))

	active := filepath.Join(dir, "active_binary")
	newBin := filepath.Join(dir, "new_binary")
	os.WriteFile(active, []byte("old binary content"), 0o644)
	os.WriteFile(newBin, []byte("new binary content"), 0o644)

	record, err := swapper.Swap(active, newBin)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if !record.Success {
		t.Error("expected successful swap")
	}
	if _, err := os.Stat(record.BackupPath); err != nil {
		t.Error("expected backup to exist")
	}

	content, _ := os.ReadFile(active)
	if string(content) != "new binary content" {
		t.Errorf("active content = %q", content)
	}
}

func TestSwap_NoExistingBinary(t *testing.T) {
	dir := t.TempDir()
	swapper := NewBinarySwapperWithDefaults(filepath.Join(dir, "backups"))

	active := filepath.Join(dir, "nonexistent_binary")
	newBin := filepath.Join(dir, "new_binary")
	os.WriteFile(newBin, []byte("new binary content"), 0o644)

	record, err := swapper.Swap(active, newBin)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if !record.Success {
		t.Error("expected successful swap")
	}

	content, _ := os.ReadFile(active)
	if string(content) != "new binary content" {
		t.Errorf("active content = %q", content)
	}
}

func TestSwap_RejectsEmptyBinary(t *testing.T) {
	dir := t.TempDir()
	swapper := NewBinarySwapperWithDefaults(filepath.Join(dir, "backups"))

	active := filepath.Join(dir, "active")
	newBin := filepath.Join(dir, "empty")
	os.WriteFile(active, []byte("old content"), 0o644)
	os.WriteFile(newBin, []byte(""), 0o644)

	if _, err := swapper.Swap(active, newBin); err == nil {
		t.Error("expected error for empty source binary")
	}
}

func TestSwap_RejectsMissingSource(t *testing.T) {
	dir := t.TempDir()
	swapper := NewBinarySwapperWithDefaults(filepath.Join(dir, "backups"))

	active := filepath.Join(dir, "active")
	newBin := filepath.Join(dir, "does_not_exist")

	if _, err := swapper.Swap(active, newBin); err == nil {
		t.Error("expected error for missing source binary")
	}
}

func TestRestoreFromBackup(t *testing.T) {
	dir := t.TempDir()
	swapper := NewBinarySwapperWithDefaults(filepath.Join(dir, "backups"))

	active := filepath.Join(dir, "active_binary")
	newBin := filepath.Join(dir, "new_binary")
	os.WriteFile(active, []byte("old binary v1"), 0o644)
	os.WriteFile(newBin, []byte("new binary v2"), 0o644)

	record, err := swapper.Swap(active, newBin)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	content, _ := os.ReadFile(active)
	if string(content) != "new binary v2" {
		t.Fatalf("active content = %q", content)
	}

	if err := swapper.RestoreFromBackup(record); err != nil {
		t.Fatalf("RestoreFromBackup: %v", err)
	}
	content, _ = os.ReadFile(active)
	if string(content) != "old binary v1" {
		t.Errorf("active content after restore = %q", content)
	}
}

func TestListBackups_Empty(t *testing.T) {
	dir := t.TempDir()
	swapper := NewBinarySwapperWithDefaults(filepath.Join(dir, "empty_backups"))
	list, err := swapper.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty, got %d", len(list))
	}
}

func TestPruneBackups(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	swapper := NewBinarySwapper(backupDir, 2)

	active := filepath.Join(dir, "active")
	os.WriteFile(active, []byte("v0"), 0o644)

	for i := 0; i < 4; i++ {
		newBin := filepath.Join(dir, "new")
		os.WriteFile(newBin, []byte("v"+string(rune('1'+i))), 0o644)
		if _, err := swapper.Swap(active, newBin); err != nil {
			t.Fatalf("Swap: %v", err)
		}
	}

	backups, err := swapper.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) > 2 {
		t.Errorf("backups = %d, want <= 2", len(backups))
	}
}
