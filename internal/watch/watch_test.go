package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, files []string, job Job) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, files, 50*time.Millisecond, quiet, job) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Watch: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatch_RunsOnStartAndOnChange(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(input, []byte("1: Mona Lisa, Leonardo da Vinci\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	startWatch(t, []string{input}, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool { return runs.Load() == 1 }, "initial run missing")

	if err := os.WriteFile(input, []byte("1: Olympia, Édouard Manet\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return runs.Load() >= 2 }, "change did not trigger a run")
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	if err := os.WriteFile(input, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	startWatch(t, []string{input}, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool { return runs.Load() == 1 }, "initial run missing")

	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d, unrelated file should not trigger a run", n)
	}
}

func TestWatch_JobErrorKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "template.md")
	if err := os.WriteFile(tmpl, []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	startWatch(t, []string{tmpl}, func(context.Context) error {
		runs.Add(1)
		return errors.New("template error")
	})
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool { return runs.Load() == 1 }, "initial run missing")

	if err := os.WriteFile(tmpl, []byte("---\nyear:\n---\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return runs.Load() >= 2 }, "watch should survive a failing run")
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), []string{filepath.Join(t.TempDir(), "nope", "input.txt")}, 0, quiet, func(context.Context) error { return nil })
	if err == nil {
		t.Error("expected error for a missing directory")
	}
}
