// Package watcher translates raw OS filesystem notifications into the
// system's three-event vocabulary (Created, Modified, Removed) and applies
// them to the document service.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"notebit/pkg/gatekeeper"
	"notebit/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

type operationKind int

const (
	opWatchDirectory operationKind = iota
	opUnwatchDirectory
)

type operation struct {
	kind operationKind
	path string
}

// FileWatcher owns the single fsnotify.Watcher and the goroutine that reads
// from it. Directories are added or removed from the underlying watch only
// through its control mailbox, so watch-set mutation never races against
// the event-translation loop reading from the same *fsnotify.Watcher.
type FileWatcher struct {
	watcher    *fsnotify.Watcher
	gatekeeper *gatekeeper.Gatekeeper
	events     chan Event
	operations chan operation
}

// NewFileWatcher creates a FileWatcher. Run must be started in its own
// goroutine before WatchDirectory/UnwatchDirectory are called.
func NewFileWatcher(gk *gatekeeper.Gatekeeper, eventBufferSize int) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		watcher:    w,
		gatekeeper: gk,
		events:     make(chan Event, eventBufferSize),
		operations: make(chan operation, 16),
	}, nil
}

// Events returns the channel Created/Modified/Removed events are published
// on. There is a single consumer in this process (EventHandler); a
// broadcast-to-many fan-out isn't needed since nothing else currently needs
// raw filesystem events, unlike pkg/documents' Event stream which several
// independent listeners (UI, job pipeline) do need.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// WatchDirectory registers path (recursively) for notifications.
func (w *FileWatcher) WatchDirectory(ctx context.Context, path string) error {
	select {
	case w.operations <- operation{kind: opWatchDirectory, path: path}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UnwatchDirectory stops notifications for path and every subdirectory
// beneath it.
func (w *FileWatcher) UnwatchDirectory(ctx context.Context, path string) error {
	select {
	case w.operations <- operation{kind: opUnwatchDirectory, path: path}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run selects between the underlying fsnotify channels and the control
// mailbox until ctx is canceled.
func (w *FileWatcher) Run(ctx context.Context) {
	logger.Info("file watcher started")
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("file watcher: notify error: %v", err)

		case op := <-w.operations:
			w.handleOperation(op)

		case <-ctx.Done():
			logger.Info("file watcher stopped")
			return
		}
	}
}

func (w *FileWatcher) handleOperation(op operation) {
	switch op.kind {
	case opWatchDirectory:
		if err := w.addRecursive(op.path); err != nil {
			logger.Error("file watcher: watch %s: %v", op.path, err)
		}
	case opUnwatchDirectory:
		prefix := op.path + string(filepath.Separator)
		for _, watched := range w.watcher.WatchList() {
			if watched == op.path || (len(watched) > len(prefix) && watched[:len(prefix)] == prefix) {
				if err := w.watcher.Remove(watched); err != nil {
					logger.Error("file watcher: unwatch %s: %v", watched, err)
				}
			}
		}
	}
}

// addRecursive adds path and every subdirectory beneath it, since fsnotify
// only watches a single directory's immediate entries.
func (w *FileWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func (w *FileWatcher) handleFSEvent(event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		w.handleCreate(event.Name)
	case event.Op&fsnotify.Write == fsnotify.Write:
		w.publishIfEligible(Modified, event.Name, w.gatekeeper.IsEligible)
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		// fsnotify reports a rename as Remove-on-old-path plus a separate
		// Create-on-new-path, unlike the notify crate's single combined
		// ModifyKind::Name event; the old path is already gone by the time
		// this arrives, so it is handled exactly like a Remove.
		w.publishIfEligible(Removed, event.Name, w.gatekeeper.IsEligibleIfFileExists)
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		w.publishIfEligible(Removed, event.Name, w.gatekeeper.IsEligibleIfFileExists)
	}
}

func (w *FileWatcher) handleCreate(path string) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		if err := w.addRecursive(path); err != nil {
			logger.Error("file watcher: watch new directory %s: %v", path, err)
		}
		return
	}
	w.publishIfEligible(Created, path, w.gatekeeper.IsEligible)
}

func (w *FileWatcher) publishIfEligible(kind EventKind, path string, eligible func(string) bool) {
	if !eligible(path) {
		return
	}
	select {
	case w.events <- Event{Kind: kind, Path: path}:
	default:
		logger.Warn("file watcher: event buffer full, dropping %s event for %s", kind, path)
	}
}
