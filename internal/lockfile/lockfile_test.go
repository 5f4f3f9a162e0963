package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockAcquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	lockPath := filepath.Join(tempDir, LockFileName)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Errorf("Lock file was not created: %s", lockPath)
	}

	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	expectedPrefix := fmt.Sprintf("pid=%d\n", os.Getpid())
	if !strings.HasPrefix(string(content), expectedPrefix) {
		t.Errorf("Lock file should start with %q, got %q", expectedPrefix, string(content))
	}
	if !strings.Contains(string(content), "started_at=") {
		t.Errorf("Lock file should record the start time, got %q", string(content))
	}
}

func TestLockConflict(t *testing.T) {
	tempDir := t.TempDir()

	lock1, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := AcquireLock(tempDir)
	if err == nil {
		lock2.Release()
		t.Fatalf("Second lock acquisition should have failed")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Errorf("Expected LockError, got: %T", err)
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "Another InterviewPipe instance is already running") {
		t.Errorf("Error message should mention another instance running: %s", errMsg)
	}
	if !strings.Contains(errMsg, tempDir) {
		t.Errorf("Error message should contain the lock path: %s", errMsg)
	}
}

func TestLockReleaseAndReacquire(t *testing.T) {
	tempDir := t.TempDir()

	lock1, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}

	// Release removes the lock file.
	lockPath := filepath.Join(tempDir, LockFileName)
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("Lock file should be removed after release")
	}

	lock2, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to reacquire lock after release: %v", err)
	}
	defer lock2.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("First release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Second release should be a no-op, got: %v", err)
	}
}

func TestExtractPIDFromLockInfo(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"valid pid line", "pid=12345\nstarted_at=2026-01-01T00:00:00Z\n", 12345},
		{"no pid", "started_at=2026-01-01T00:00:00Z\n", 0},
		{"empty", "", 0},
		{"malformed pid", "pid=abc\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPIDFromLockInfo(tt.content); got != tt.want {
				t.Errorf("extractPIDFromLockInfo(%q) = %d, want %d", tt.content, got, tt.want)
			}
		})
	}
}
