package pipeline_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tiliavir/nt-hours/internal/pipeline"
)

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	l, err := pipeline.Acquire(path, time.Hour, now)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := pipeline.Acquire(path, time.Hour, now.Add(time.Minute)); !errors.Is(err, pipeline.ErrLocked) {
		t.Fatalf("second acquire: got %v, want ErrLocked", err)
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}
	l, err = pipeline.Acquire(path, time.Hour, now)
	if err != nil {
		t.Fatalf("re-acquire after release: %v", err)
	}
	_ = l.Release()
}

func TestLock_StaleIsTakenOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if _, err := pipeline.Acquire(path, time.Hour, now); err != nil {
		t.Fatal(err)
	}
	l, err := pipeline.Acquire(path, time.Hour, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("stale lock not taken over: %v", err)
	}
	_ = l.Release()
}
