// Package tracker watches workspace directories and appends file events to
// the pending-changes log, where the next session capture drains them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fyrsmithlabs/recalld/internal/session"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("tracker: failed to initialize filesystem watcher")

// ignoredDirs are directory names never watched or reported.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".idea":        true,
	".vscode":      true,
}

// Tracker forwards create/write/rename/remove events to the changelog.
type Tracker struct {
	watcher   *fsnotify.Watcher
	changelog *session.ChangeLog
	logger    *zap.Logger
	stop      chan struct{}
}

// New creates a tracker writing to the given changelog.
func New(changelog *session.ChangeLog, logger *zap.Logger) (*Tracker, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		watcher:   watcher,
		changelog: changelog,
		logger:    logger,
		stop:      make(chan struct{}),
	}, nil
}

// Watch adds a directory tree to the watch set, skipping ignored and hidden
// directories.
func (t *Tracker) Watch(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (ignoredDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := t.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// Start processes watcher events until ctx is cancelled or Stop is called.
// Runs in a background goroutine.
func (t *Tracker) Start(ctx context.Context) {
	go t.run(ctx)
}

// Stop stops the tracker and closes the watcher.
func (t *Tracker) Stop() {
	select {
	case <-t.stop:
	default:
		close(t.stop)
		_ = t.watcher.Close()
	}
}

func (t *Tracker) run(ctx context.Context) {
	for {
		select {
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			t.handleEvent(ctx, event)
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (t *Tracker) handleEvent(ctx context.Context, event fsnotify.Event) {
	op := opName(event.Op)
	if op == "" {
		return
	}
	base := filepath.Base(event.Name)
	if ignoredDirs[base] || strings.HasPrefix(base, ".") {
		return
	}

	// New directories join the watch set so nested edits keep flowing.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := t.watcher.Add(event.Name); err != nil {
				t.logger.Warn("watching new directory failed",
					zap.String("path", event.Name),
					zap.Error(err))
			}
			return
		}
	}

	change := session.Change{
		Path: event.Name,
		Op:   op,
		Time: time.Now(),
	}
	if err := t.changelog.Append(ctx, change); err != nil {
		t.logger.Warn("appending change failed",
			zap.String("path", event.Name),
			zap.Error(err))
	}
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Rename):
		return "rename"
	case op.Has(fsnotify.Remove):
		return "remove"
	default:
		return ""
	}
}
