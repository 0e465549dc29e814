// Package watcher monitors a game data directory for changes so the UI can
// reload the mod and pack trees. It prefers fsnotify and falls back to
// periodic rescans when inotify is unavailable or explicitly disabled.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrDirRemoved     = errors.New("watched directory was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when the directory changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// Watcher monitors a directory tree using fsnotify with polling fallback.
type Watcher struct {
	dir              string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	forcePollEnv     bool

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	lastScan    dirFingerprint

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// dirFingerprint summarizes a directory tree for polling comparisons.
type dirFingerprint struct {
	entries     int
	latestMtime time.Time
	missing     bool
}

// NewWatcher creates a watcher for the given directory.
func NewWatcher(dir string, opts ...WatcherOption) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:              absDir,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching the directory for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())

	// Reset per-start state.
	w.useFallback = false
	w.forcePollEnv = envBool("MM_FORCE_POLLING") || envBool("MM_FORCE_POLL")

	forcePoll := w.forcePoll || w.forcePollEnv
	if forcePoll {
		w.useFallback = true
	}

	if _, err := os.Stat(w.dir); err != nil {
		if os.IsPermission(err) {
			return ErrPermission
		}
		// Directory might not exist yet, that's okay.
	}
	w.lastScan = scanDir(w.dir)

	// Try to use fsnotify
	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			if err := addTree(fsw, w.dir); err != nil {
				fsw.Close()
				w.useFallback = true
			} else {
				w.fsWatcher = fsw
				go w.watchFsnotify()
			}
		} else {
			w.useFallback = true
		}
	}

	if w.useFallback {
		go w.watchPolling()
	}

	w.started = true
	return nil
}

// Stop stops watching.
// Note: The changeCh channel is intentionally NOT closed here. Closing it
// would race with notifyChange() and make pending receives fire spuriously.
// Stop() is only called at program exit, so the blocked receiver is cleaned
// up by process termination.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when the directory changes.
// This is an alternative to using the OnChange callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// addTree registers the directory and every subdirectory with fsnotify.
// inotify watches are not recursive.
func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil && path == root {
				return err
			}
		}
		return nil
	})
}

// watchFsnotify monitors using fsnotify events.
func (w *Watcher) watchFsnotify() {
	// Capture channel references to avoid race with Stop() setting
	// fsWatcher to nil.
	w.mu.RLock()
	fsw := w.fsWatcher
	w.mu.RUnlock()
	if fsw == nil {
		return
	}
	events := fsw.Events
	errs := fsw.Errors

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Remove != 0 && event.Name == w.dir {
				w.onError(ErrDirRemoved)
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				// New subdirectories need their own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addTree(fsw, event.Name)
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// watchPolling monitors using periodic rescans.
func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			scan := scanDir(w.dir)

			w.mu.Lock()
			prev := w.lastScan
			changed := scan != prev
			if changed {
				w.lastScan = scan
			}
			w.mu.Unlock()

			if scan.missing && !prev.missing {
				w.onError(ErrDirRemoved)
				continue
			}
			if changed {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// scanDir walks the tree and summarizes it: entry count plus the newest
// modification time. Cheap enough at mod-collection scale, and catches
// adds, removes, and in-place edits alike.
func scanDir(dir string) dirFingerprint {
	var fp dirFingerprint
	if _, err := os.Stat(dir); err != nil {
		fp.missing = true
		return fp
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		fp.entries++
		if info, err := d.Info(); err == nil && info.ModTime().After(fp.latestMtime) {
			fp.latestMtime = info.ModTime()
		}
		return nil
	})
	return fp
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	// Best-effort guard against callbacks after Stop(); callbacks are
	// idempotent so the small race window is harmless.
	if !started {
		return
	}

	w.onChange()

	// Non-blocking send to change channel
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
