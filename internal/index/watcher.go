package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/storage"
)

// EventCallback is called after a reconciliation pass changes the
// index. kind is one of "created", "updated", "deleted".
type EventCallback func(kind, filename string)

const debounceDelay = 200 * time.Millisecond

// Watch observes the documents directory with fsnotify and runs
// debounced reconciliation passes until ctx is cancelled. It also
// owns the fixed-interval reconciliation timer, so the whole
// background schedule stops cleanly with the process. cb (if
// non-nil) receives one event per entry that changed between passes.
//
// Snapshot directories, the manifest file, and temp files are
// ignored; external writers touching document files are the events
// of interest.
func Watch(ctx context.Context, engine *Engine, docsRoot string, interval time.Duration, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(docsRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", docsRoot))

	// Seed the diff baseline with an initial pass.
	last, err := engine.Reconcile()
	if err != nil {
		logger.Warn("watcher: initial reconcile failed", slog.String("error", err.Error()))
	}

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	scheduleReconcile := func() {
		if debounce == nil {
			debounce = time.NewTimer(debounceDelay)
			debounceCh = debounce.C
		} else {
			debounce.Reset(debounceDelay)
		}
	}

	runReconcile := func() {
		next, recErr := engine.Reconcile()
		if recErr != nil {
			logger.Warn("watcher: reconcile failed", slog.String("error", recErr.Error()))
			return
		}
		emitDiff(last, next, cb)
		last = next
	}

	var tickerCh <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tickerCh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			runReconcile()

		case <-tickerCh:
			runReconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isDocumentEvent(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: fs event",
					slog.String("path", ev.Name),
					slog.String("op", ev.Op.String()))
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// isDocumentEvent filters events down to top-level document files.
func isDocumentEvent(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false // snapshot dir, temp files
	}
	if name == ManifestFilename {
		return false
	}
	return strings.HasSuffix(name, storage.DocExt)
}

// emitDiff compares two reconciled entry lists and reports one event
// per created, deleted, or updated document.
func emitDiff(old, next []Entry, cb EventCallback) {
	if cb == nil {
		return
	}
	prev := make(map[string]Entry, len(old))
	for _, en := range old {
		prev[en.Filename] = en
	}
	seen := make(map[string]struct{}, len(next))
	for _, en := range next {
		seen[en.Filename] = struct{}{}
		before, ok := prev[en.Filename]
		switch {
		case !ok:
			cb("created", en.Filename)
		case !before.UpdatedAt.Equal(en.UpdatedAt) || before.Title != en.Title:
			cb("updated", en.Filename)
		}
	}
	for _, en := range old {
		if _, ok := seen[en.Filename]; !ok {
			cb("deleted", en.Filename)
		}
	}
}
