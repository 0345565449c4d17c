package build

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is how long the watcher waits for events to settle
// before rebuilding.
const DebounceInterval = 200 * time.Millisecond

// RebuildFunc runs one full build.
type RebuildFunc func(ctx context.Context) error

// Watch observes dir and calls rebuild after every burst of changes until
// ctx is cancelled. Only the top level of dir is watched, matching what a
// build reads. Events for paths in ignore (the output directory and the
// build report database when they live inside dir) and for in-flight temp
// files are dropped, so a rebuild never triggers itself. A failed rebuild
// is logged and watching continues.
func Watch(ctx context.Context, dir string, ignore []string, logger *slog.Logger, rebuild RebuildFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	ignored := pathSet(ignore)

	logger.Info("watcher: started", slog.String("root", dir))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(DebounceInterval)
			timerCh = timer.C
		} else {
			timer.Reset(DebounceInterval)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			logger.Info("watcher: rebuilding")
			if err := rebuild(ctx); err != nil {
				logger.Error("watcher: rebuild failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, ignored) {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func relevant(ev fsnotify.Event, ignored map[string]struct{}) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if strings.HasPrefix(filepath.Base(ev.Name), ".wikify-tmp-") {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return true
	}
	_, skip := ignored[abs]
	return !skip
}

// pathSet returns the absolute forms of paths.
func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		set[p] = struct{}{}
	}
	return set
}
