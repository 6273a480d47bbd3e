package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/casweep/pkg/casweep/logging"
)

func countLogs(t *testing.T, dir, prefix string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".log") {
			n++
		}
	}
	return n
}

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "size.log")

	w, err := logging.NewRotatingWriter(path, logging.RotationConfig{MaxSize: 512})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := w.Write([]byte(strings.Repeat("x", 50) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := countLogs(t, dir, "size"); n < 2 {
		t.Errorf("expected at least 2 log files after rotation, got %d", n)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat current log: %v", err)
	}
	if info.Size() > 512 {
		t.Errorf("current log is %d bytes, want <= 512", info.Size())
	}
}

func TestRotationMaxBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "backups.log")

	w, err := logging.NewRotatingWriter(path, logging.RotationConfig{MaxSize: 64, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 40; i++ {
		if _, err := w.Write([]byte(strings.Repeat("y", 30) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	backups := w.Backups()
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(backups) > 2 {
		t.Errorf("expected at most 2 backups, got %d: %v", len(backups), backups)
	}
	if n := countLogs(t, dir, "backups"); n > 3 {
		t.Errorf("expected at most 3 log files, got %d", n)
	}
}

func TestRotatingWriterClosed(t *testing.T) {
	t.Parallel()

	w, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := w.Write([]byte("late\n")); err == nil {
		t.Error("Write() after Close() should fail")
	}
}

func TestRotatingWriterCreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state", "casweep.log")
	w, err := logging.NewRotatingWriter(path, logging.RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer func() { _ = w.Close() }()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
