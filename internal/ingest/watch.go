package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"guardian/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events (editors write,
// rename, and chmod in quick succession) into a single re-index.
const debounceWindow = 500 * time.Millisecond

// Watch re-indexes the contract store whenever a contract document in the
// resolved directory changes. Blocks until ctx is cancelled. If no contract
// directory exists, Watch returns immediately with no error.
func (ix *Indexer) Watch(ctx context.Context) error {
	dir, ok := ix.ResolveDir()
	if !ok {
		logging.Ingest("watch disabled: no contract directory found among %v", ix.Dirs)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	logging.Ingest("watching contract directory %s", dir)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, okCh := <-watcher.Events:
			if !okCh {
				return nil
			}
			if !isContractEvent(ev) {
				continue
			}
			logging.IngestDebug("contract change: %s %s", ev.Op, ev.Name)
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerC = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if n, err := ix.Reindex(ctx); err != nil {
				logging.Ingest("re-index after change failed: %v", err)
			} else {
				logging.Ingest("re-indexed %d chunks after contract change", n)
			}

		case err, okCh := <-watcher.Errors:
			if !okCh {
				return nil
			}
			logging.Ingest("watch error: %v", err)
		}
	}
}

func isContractEvent(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".md", ".txt":
		return true
	}
	return false
}
