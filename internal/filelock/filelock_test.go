package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestNewFileLock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	lock := NewFileLock(lockPath)
	if lock == nil {
		t.Fatal("NewFileLock should not return nil")
	}

	if lock.Path() != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, lock.Path())
	}
}

func TestTryLock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")

	lock1 := NewFileLock(lockPath)
	lock2 := NewFileLock(lockPath)

	// First lock should succeed
	acquired, err := lock1.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Fatal("First TryLock should succeed")
	}

	// Second lock should fail (already locked)
	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		t.Error("Second TryLock should fail when lock is held")
	}

	// After unlock, should succeed
	if err := lock1.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Error("TryLock should succeed after unlock")
	}

	lock2.Unlock()
}

func TestRunLockPath(t *testing.T) {
	root := t.TempDir()

	first, err := RunLockPath(root)
	if err != nil {
		t.Fatalf("RunLockPath failed: %v", err)
	}

	// Trailing separators and "." segments name the same directory
	second, err := RunLockPath(root + string(filepath.Separator) + ".")
	if err != nil {
		t.Fatalf("RunLockPath failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected same lock path for equivalent roots, got %s and %s", first, second)
	}

	other, err := RunLockPath(t.TempDir())
	if err != nil {
		t.Fatalf("RunLockPath failed: %v", err)
	}
	if first == other {
		t.Error("Expected different lock paths for different roots")
	}

	if filepath.Dir(first) != filepath.Clean(os.TempDir()) {
		t.Errorf("Expected lock in %s, got %s", os.TempDir(), first)
	}
	if !strings.HasPrefix(filepath.Base(first), "pitufo-") || !strings.HasSuffix(first, ".lock") {
		t.Errorf("Unexpected lock file name %s", filepath.Base(first))
	}
}

func TestAcquireRunLock(t *testing.T) {
	root := t.TempDir()

	lock, err := AcquireRunLock(root)
	if err != nil {
		t.Fatalf("AcquireRunLock failed: %v", err)
	}
	t.Cleanup(func() { os.Remove(lock.Path()) })

	// A second run over the same root is refused
	_, err = AcquireRunLock(root)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Expected ErrLocked, got %v", err)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	again, err := AcquireRunLock(root)
	if err != nil {
		t.Fatalf("AcquireRunLock after unlock failed: %v", err)
	}
	again.Unlock()
}

func TestWriteInPlace(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.json")

	if err := os.WriteFile(targetPath, []byte(`{"long": "original content"}`), 0600); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}

	if err := WriteInPlace(targetPath, []byte(`{}`)); err != nil {
		t.Fatalf("WriteInPlace failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(readContent) != `{}` {
		t.Errorf("Expected content %q, got %q", `{}`, string(readContent))
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions to stay 0600, got %v", info.Mode().Perm())
	}
}

func TestWriteInPlaceMissingFile(t *testing.T) {
	targetPath := filepath.Join(t.TempDir(), "missing.json")

	if err := WriteInPlace(targetPath, []byte(`{}`)); err == nil {
		t.Fatal("Expected error writing a file that does not exist")
	}

	if _, err := os.Stat(targetPath); !os.IsNotExist(err) {
		t.Error("WriteInPlace must not create files")
	}
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.txt")

	content := []byte("Hello, World!")

	if err := AtomicWrite(targetPath, content); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	if string(readContent) != string(content) {
		t.Errorf("Expected content %q, got %q", string(content), string(readContent))
	}
}

func TestAtomicWriteKeepsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not enforced on windows")
	}

	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.json")

	if err := os.WriteFile(targetPath, []byte("old"), 0600); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}

	if err := AtomicWrite(targetPath, []byte("new")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions 0600, got %v", info.Mode().Perm())
	}
}

func TestAtomicWriteThroughSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "target.json")
	linkPath := filepath.Join(tmpDir, "link.json")

	if err := os.WriteFile(targetPath, []byte("old"), 0644); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}
	if err := os.Symlink(targetPath, linkPath); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if err := AtomicWrite(linkPath, []byte("new")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	info, err := os.Lstat(linkPath)
	if err != nil {
		t.Fatalf("Failed to lstat link: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("Expected the link to remain a symlink")
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read target: %v", err)
	}
	if string(readContent) != "new" {
		t.Errorf("Expected target content %q, got %q", "new", string(readContent))
	}
}

func TestAtomicWriteNoTempFileLeftBehind(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "test.txt")

	if err := AtomicWrite(targetPath, []byte("Test content")); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}

	// Should only have the target file, no temp files
	if len(entries) != 1 {
		var files []string
		for _, entry := range entries {
			files = append(files, entry.Name())
		}
		t.Errorf("Expected only 1 file, found %d: %v", len(entries), files)
	}

	if entries[0].Name() != "test.txt" {
		t.Errorf("Expected file test.txt, got %s", entries[0].Name())
	}
}
