// Package watch re-runs a job whenever one of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before the job
// runs again.
const DefaultDebounce = 300 * time.Millisecond

// Job is the work repeated on every change.
type Job func(ctx context.Context) error

// Watch runs job once, then again after each change to one of files, until
// ctx is cancelled. Jobs never overlap. The parent directories are watched
// rather than the files, so editors that save by rename are followed.
// A failing job is logged and waited out; only watcher setup errors are
// returned.
func Watch(ctx context.Context, files []string, debounce time.Duration, logger *slog.Logger, job Job) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "watch"))

	targets := make(map[string]struct{}, len(files))
	dirs := make(map[string]struct{}, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("watch: resolve %s: %w", f, err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
	}

	runJob := func() {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			logger.Error("watch: run failed", slog.String("error", err.Error()))
		}
	}

	logger.Info("watch: started", slog.Any("files", files))
	runJob()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-timerCh:
			timer, timerCh = nil, nil
			logger.Info("watch: change detected, running")
			runJob()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if _, ok := targets[filepath.Clean(ev.Name)]; !ok {
				continue
			}
			logger.Debug("watch: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}
