package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchEvent describes a credentials file change.
type WatchEvent string

const (
	// WatchUpdated fires when the file was written or created.
	WatchUpdated WatchEvent = "updated"
	// WatchCleared fires when the file was removed, meaning another
	// process signed out.
	WatchCleared WatchEvent = "cleared"
)

// WatchCallback is called after the manager reloaded its session.
type WatchCallback func(event WatchEvent)

// WatchCredentials watches the credentials file for external changes and
// reloads the manager's session when another process rewrites it (a second
// CLI invocation refreshing the token, or a sign-out). It blocks until ctx
// is cancelled.
//
// The parent directory is watched rather than the file itself so atomic
// rename-into-place writes are observed. Events are debounced: Save writes
// a temp file and renames it, which yields several events per update.
func WatchCredentials(ctx context.Context, m *Manager, logger *slog.Logger, cb WatchCallback) error {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(m.store.Path())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("auth: watching credentials", slog.String("path", m.store.Path()))

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	var pending WatchEvent

	schedule := func(event WatchEvent) {
		pending = event
		if debounce == nil {
			debounce = time.NewTimer(100 * time.Millisecond)
			debounceCh = debounce.C
		} else {
			debounce.Reset(100 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("auth: credentials watcher stopped")
			return nil

		case <-debounceCh:
			m.Reload()
			logger.Debug("auth: session reloaded from disk",
				slog.String("event", string(pending)))
			if cb != nil {
				cb(pending)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != m.store.Path() {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				schedule(WatchUpdated)
			case ev.Op&fsnotify.Remove != 0:
				schedule(WatchCleared)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("auth: watcher error", slog.String("error", err.Error()))
		}
	}
}
