package ota

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SwapRecord documents one binary replacement, kept for rollback.
// Grounded on original_source/ota/binary_swapper.rs's SwapRecord.
type SwapRecord struct {
	SwapID     string
	ActivePath string
	BackupPath string
	SourcePath string
	SwappedAt  time.Time
	OldHash    *string
	NewHash    *string
	Success    bool
}

// BinarySwapper performs atomic binary replacement with backup and
// verification. Grounded on original_source/ota/binary_swapper.rs's
// BinarySwapper.
type BinarySwapper struct {
	backupDir  string
	maxBackups int
}

// NewBinarySwapper creates a BinarySwapper retaining at most maxBackups
// backup files.
func NewBinarySwapper(backupDir string, maxBackups int) *BinarySwapper {
	return &BinarySwapper{backupDir: backupDir, maxBackups: maxBackups}
}

// NewBinarySwapperWithDefaults creates a BinarySwapper retaining 10
// backups.
func NewBinarySwapperWithDefaults(backupDir string) *BinarySwapper {
	return NewBinarySwapper(backupDir, 10)
}

// BackupDir returns the directory backups are stored in.
func (s *BinarySwapper) BackupDir() string { return s.backupDir }

// FileHash computes the SHA-256 hex digest of path's contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read file for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *BinarySwapper) generateBackupPath(original string) string {
	timestamp := time.Now().Format("20060102_150405")
	name := filepath.Base(original)
	if name == "." || name == "/" {
		name = "binary"
	}
	return filepath.Join(s.backupDir, fmt.Sprintf("%s_%s", name, timestamp))
}

// Swap atomically replaces activePath with newBinaryPath's contents,
// backing up the existing binary first. Returns a SwapRecord for
// rollback tracking.
func (s *BinarySwapper) Swap(activePath, newBinaryPath string) (SwapRecord, error) {
	info, err := os.Stat(newBinaryPath)
	if err != nil {
		return SwapRecord{}, fmt.Errorf("new binary does not exist: %s", newBinaryPath)
	}
	if info.Size() == 0 {
		return SwapRecord{}, fmt.Errorf("new binary is empty: %s", newBinaryPath)
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return SwapRecord{}, fmt.Errorf("create backup directory: %w", err)
	}

	backupPath := s.generateBackupPath(activePath)
	swapID := uuid.New().String()

	newHash, _ := FileHash(newBinaryPath)
	var newHashPtr *string
	if newHash != "" {
		newHashPtr = &newHash
	}

	var oldHashPtr *string
	if _, err := os.Stat(activePath); err == nil {
		if oldHash, herr := FileHash(activePath); herr == nil {
			oldHashPtr = &oldHash
		}
		if err := copyFile(activePath, backupPath); err != nil {
			return SwapRecord{}, fmt.Errorf("backup %s to %s: %w", activePath, backupPath, err)
		}
	}

	if err := copyFile(newBinaryPath, activePath); err != nil {
		return SwapRecord{}, fmt.Errorf("copy new binary from %s to %s: %w", newBinaryPath, activePath, err)
	}

	verifyHash, _ := FileHash(activePath)
	var success bool
	if newHashPtr != nil && verifyHash != "" {
		success = verifyHash == *newHashPtr
	} else {
		_, err := os.Stat(activePath)
		success = err == nil
	}

	s.pruneBackups()

	return SwapRecord{
		SwapID:     swapID,
		ActivePath: activePath,
		BackupPath: backupPath,
		SourcePath: newBinaryPath,
		SwappedAt:  time.Now().UTC(),
		OldHash:    oldHashPtr,
		NewHash:    newHashPtr,
		Success:    success,
	}, nil
}

// RestoreFromBackup copies record's backup back over its active path,
// used during rollback.
func (s *BinarySwapper) RestoreFromBackup(record SwapRecord) error {
	if _, err := os.Stat(record.BackupPath); err != nil {
		return fmt.Errorf("backup not found: %s", record.BackupPath)
	}
	if err := copyFile(record.BackupPath, record.ActivePath); err != nil {
		return fmt.Errorf("restore backup from %s to %s: %w", record.BackupPath, record.ActivePath, err)
	}
	return nil
}

// ListBackups returns every backup file under BackupDir, newest first.
func (s *BinarySwapper) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []string
	for _, e := range entries {
		if !e.IsDir() {
			backups = append(backups, filepath.Join(s.backupDir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func (s *BinarySwapper) pruneBackups() error {
	backups, err := s.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) <= s.maxBackups {
		return nil
	}
	for _, path := range backups[s.maxBackups:] {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune backup: %w", err)
		}
	}
	return nil
}

// IsDifferent reports whether two files have different SHA-256 hashes.
func IsDifferent(pathA, pathB string) (bool, error) {
	hashA, err := FileHash(pathA)
	if err != nil {
		return false, err
	}
	hashB, err := FileHash(pathB)
	if err != nil {
		return false, err
	}
	return hashA != hashB, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Chmod(0o755)
}
