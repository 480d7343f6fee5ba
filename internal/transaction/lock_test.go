package transaction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testLockName = LockName("libvips", "8.15.0", "linux-x64")

func TestLockName(t *testing.T) {
	if got := LockName("libvips", "8.15.0", "linuxmusl-x64"); got != ".libvips-8.15.0-linuxmusl-x64.lock" {
		t.Errorf("LockName() = %q", got)
	}
}

func TestAcquireLock(t *testing.T) {
	t.Run("creates lock file", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(context.Background(), dir, testLockName)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		lockPath := filepath.Join(dir, testLockName)
		if lock.Path() != lockPath {
			t.Errorf("Path() = %s, want %s", lock.Path(), lockPath)
		}
		data, err := os.ReadFile(lockPath)
		if err != nil {
			t.Fatalf("failed to read lock file: %v", err)
		}
		if len(data) == 0 {
			t.Error("lock file should contain metadata")
		}
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := AcquireLock(context.Background(), dir, testLockName)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		defer lock1.Release()

		_, err = AcquireLock(context.Background(), dir, testLockName)
		if !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})

	t.Run("different platforms do not conflict", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := AcquireLock(context.Background(), dir, testLockName)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		defer lock1.Release()

		lock2, err := AcquireLock(context.Background(), dir, LockName("libvips", "8.15.0", "linux-arm64v8"))
		if err != nil {
			t.Fatalf("second AcquireLock failed: %v", err)
		}
		defer lock2.Release()
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := AcquireLock(ctx, t.TempDir(), testLockName); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("creates directory if needed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "vendor")

		lock, err := AcquireLock(context.Background(), dir, testLockName)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("directory not created")
		}
	})
}

func TestLockRelease(t *testing.T) {
	t.Run("removes lock file and allows a new lock", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := AcquireLock(context.Background(), dir, testLockName)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		if err := lock1.Release(); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, testLockName)); !os.IsNotExist(err) {
			t.Error("lock file should be removed after release")
		}

		lock2, err := AcquireLock(context.Background(), dir, testLockName)
		if err != nil {
			t.Fatalf("second AcquireLock should succeed: %v", err)
		}
		defer lock2.Release()
	})

	t.Run("is idempotent", func(t *testing.T) {
		lock, err := AcquireLock(context.Background(), t.TempDir(), testLockName)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}

		if err := lock.Release(); err != nil {
			t.Fatalf("first Release failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("second Release should not error: %v", err)
		}
	})
}

func TestStaleLockHandling(t *testing.T) {
	writeLock := func(t *testing.T, dir string, age time.Duration) {
		t.Helper()
		lockPath := filepath.Join(dir, testLockName)
		if err := os.WriteFile(lockPath, []byte("pid=99999\ntimestamp=2020-01-01T00:00:00Z\n"), 0600); err != nil {
			t.Fatalf("failed to create lock: %v", err)
		}
		mtime := time.Now().Add(-age)
		if err := os.Chtimes(lockPath, mtime, mtime); err != nil {
			t.Fatalf("failed to set lock time: %v", err)
		}
	}

	t.Run("removes stale lock and acquires new one", func(t *testing.T) {
		dir := t.TempDir()
		writeLock(t, dir, StaleLockThreshold+time.Minute)

		lock, err := AcquireLock(context.Background(), dir, testLockName)
		if err != nil {
			t.Fatalf("AcquireLock should succeed with stale lock: %v", err)
		}
		defer lock.Release()
	})

	t.Run("fails for non-stale lock", func(t *testing.T) {
		dir := t.TempDir()
		writeLock(t, dir, 0)

		if _, err := AcquireLock(context.Background(), dir, testLockName); !errors.Is(err, ErrLockExists) {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})
}
