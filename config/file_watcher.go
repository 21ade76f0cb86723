// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/edge-rewriter/logging"
)

const defaultReconcileInterval = 200 * time.Millisecond

// FileWatcher emits an event whenever one of a set of configuration files
// changes. It watches the parent directories so that files replaced by
// rename, as most editors and config management tools do, keep being
// tracked. A periodic reconcile compares modification times to catch changes
// fsnotify missed.
type FileWatcher struct {
	watcher           *fsnotify.Watcher
	files             map[string]*watchedFile
	logger            hclog.Logger
	reconcileInterval time.Duration
	cancel            context.CancelFunc
	done              chan struct{}
	stopOnce          sync.Once

	// EventsCh receives one event per detected change once Start has been
	// called. It is closed by Stop.
	EventsCh chan *FileWatcherEvent
}

type watchedFile struct {
	modTime time.Time
	size    int64
}

type FileWatcherEvent struct {
	Filename string
}

// NewFileWatcher watches files. Every file must exist.
func NewFileWatcher(files []string, logger hclog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	ws, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &FileWatcher{
		watcher:           ws,
		files:             make(map[string]*watchedFile),
		logger:            logger.Named(logging.Watcher),
		reconcileInterval: defaultReconcileInterval,
		done:              make(chan struct{}),
		EventsCh:          make(chan *FileWatcherEvent),
	}

	dirs := mapset.NewThreadUnsafeSet[string]()
	for _, f := range files {
		name, err := filepath.Abs(f)
		if err != nil {
			ws.Close()
			return nil, fmt.Errorf("error adding file %q: %w", f, err)
		}
		wf, err := stat(name)
		if err != nil {
			ws.Close()
			return nil, fmt.Errorf("error adding file %q: %w", f, err)
		}
		w.files[name] = wf
		dirs.Add(filepath.Dir(name))
	}
	for _, dir := range dirs.ToSlice() {
		w.logger.Trace("watching directory", "dir", dir)
		if err := ws.Add(dir); err != nil {
			ws.Close()
			return nil, fmt.Errorf("error watching directory %q: %w", dir, err)
		}
	}
	return w, nil
}

// Start begins watching. Calling Start more than once has no effect.
func (w *FileWatcher) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.watch(ctx)
}

// Stop ends the watch and closes EventsCh. It is safe to call more than once.
func (w *FileWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		}
		close(w.EventsCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *FileWatcher) watch(ctx context.Context) {
	ticker := time.NewTicker(w.reconcileInterval)
	defer ticker.Stop()
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Error("watcher event channel is closed")
				return
			}
			name := filepath.Clean(event.Name)
			if _, watched := w.files[name]; !watched {
				continue
			}
			w.logger.Trace("received watcher event", "file", name, "op", event.Op)
			if !w.check(ctx, name) {
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Error("watcher error channel is closed")
				return
			}
			w.logger.Warn("watcher error", "error", err)
		case <-ticker.C:
			for name := range w.files {
				if !w.check(ctx, name) {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// check emits an event when name differs from what was last seen. A missing
// file is remembered as such so that it is reported once it reappears. It
// returns false when ctx is done.
func (w *FileWatcher) check(ctx context.Context, name string) bool {
	prev := w.files[name]
	cur, err := stat(name)
	if err != nil {
		if !prev.modTime.IsZero() {
			w.logger.Trace("watched file is gone", "file", name, "error", err)
		}
		w.files[name] = &watchedFile{}
		return true
	}
	if cur.modTime.Equal(prev.modTime) && cur.size == prev.size {
		return true
	}
	w.files[name] = cur

	w.logger.Debug("config file changed", "file", name)
	select {
	case w.EventsCh <- &FileWatcherEvent{Filename: name}:
		return true
	case <-ctx.Done():
		return false
	}
}

func stat(name string) (*watchedFile, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", name)
	}
	return &watchedFile{modTime: fi.ModTime(), size: fi.Size()}, nil
}
