// Package watcher provides file system watching with debouncing for the
// extension packages directory.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the extension packages root for changes and sends
// notifications so the host can trigger a fresh discovery pass.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Root        string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		DebounceDur: 1 * time.Second,
	}
}

// New creates a new packages-directory watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		root:      cfg.Root,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the packages root and every package directory
// already inside it. Returns a channel that receives a signal when the
// package set or a manifest changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	if err := w.fsWatcher.Add(w.root); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.root, err)
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("listing directory %s: %w", w.root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			// Best effort: a vanished directory just won't be watched.
			_ = w.fsWatcher.Add(filepath.Join(w.root, entry.Name()))
		}
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// A new package directory needs its own watch for manifest
			// edits inside it.
			if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == w.root {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsWatcher.Add(event.Name)
				}
			}

			if !w.isRelevantEvent(event) {
				continue
			}

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = true
			} else {
				if !timer.Stop() {
					// Drain the timer channel if it already fired
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
				pending = true
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				// Non-blocking send - drop if channel full
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			// Keep watching; callers can wrap the watcher if they need
			// error visibility.

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent checks if the event should trigger a discovery pass.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	// Package directories appearing or disappearing directly under the
	// root change the discoverable set.
	if filepath.Dir(event.Name) == w.root {
		return event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
	}

	// Inside a package, only manifest edits matter.
	if filepath.Base(event.Name) != "extension.yaml" {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
