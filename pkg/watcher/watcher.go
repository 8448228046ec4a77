// Package watcher reports changes to the timelines path so the TUI can reload
// the working set.
//
// The watched path may be a single file or a directory of timeline files.
// fsnotify is used where it is reliable; on network and FUSE filesystems, or
// when CDV_FORCE_POLL is set, the watcher falls back to stat polling. Bursts of
// events are coalesced by a Debouncer.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/curiousdates/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounceDuration = d }
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnChange sets the callback invoked after a debounced change.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// WithFilter restricts directory watching to file names for which keep
// returns true. It has no effect when a single file is watched.
func WithFilter(keep func(name string) bool) Option {
	return func(w *Watcher) { w.filter = keep }
}

// snapshot is what polling compares between ticks.
type snapshot struct {
	exists  bool
	files   int
	size    int64
	modTime time.Time
}

func (s snapshot) differs(o snapshot) bool {
	return s.exists != o.exists || s.files != o.files || s.size != o.size || !s.modTime.Equal(o.modTime)
}

// Watcher monitors a file or directory for changes.
type Watcher struct {
	path             string
	isDir            bool
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	filter           func(string) bool
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	last        snapshot

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a watcher for path, which may be a file or a directory.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		filter:           func(string) bool { return true },
		changeCh:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		w.isDir = true
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.fsType = DetectFilesystemType(w.path)
	w.useFallback = w.forcePoll || envBool("CDV_FORCE_POLL") || isRemoteFilesystem(w.fsType)

	snap, err := w.stat()
	if err != nil && os.IsPermission(err) {
		w.cancel()
		return ErrPermission
	}
	w.last = snap

	if !w.useFallback {
		if err := w.startFsnotify(); err != nil {
			debug.Log("watcher: fsnotify unavailable for %s: %v, polling", w.path, err)
			w.useFallback = true
		}
	}
	if w.useFallback {
		go w.watchPolling(w.ctx)
	}

	debug.Log("watcher: started on %s (dir=%v polling=%v fs=%s)", w.path, w.isDir, w.useFallback, w.fsType)
	w.started = true
	return nil
}

func (w *Watcher) startFsnotify() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// For a single file, watch its directory: editors replace files with
	// rename, which would drop a watch on the file itself.
	dir := w.path
	if !w.isDir {
		dir = filepath.Dir(w.path)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}
	w.fsWatcher = fsw
	go w.watchFsnotify(w.ctx, fsw)
	return nil
}

// Stop stops watching. The Changed channel is left open; a receiver blocked
// on it simply never fires again.
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

// Changed returns a channel that receives after each debounced change.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the watched path.
func (w *Watcher) Path() string { return w.path }

// IsDir reports whether a directory is being watched.
func (w *Watcher) IsDir() bool { return w.isDir }

// FilesystemType returns the filesystem classification for the watched path.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// relevant reports whether an fsnotify event concerns the watched content.
func (w *Watcher) relevant(name string) bool {
	if w.isDir {
		return filepath.Dir(name) == w.path && w.filter(filepath.Base(name))
	}
	return filepath.Base(name) == filepath.Base(w.path)
}

func (w *Watcher) watchFsnotify(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0 && !w.isDir:
				w.onError(ErrFileRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// stat fingerprints the watched path: the file itself, or every matching
// file in the directory.
func (w *Watcher) stat() (snapshot, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return snapshot{}, err
	}
	if !w.isDir {
		return snapshot{exists: true, files: 1, size: info.Size(), modTime: info.ModTime()}, nil
	}

	entries, err := os.ReadDir(w.path)
	if err != nil {
		return snapshot{}, err
	}
	s := snapshot{exists: true}
	for _, e := range entries {
		if e.IsDir() || !w.filter(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		s.files++
		s.size += fi.Size()
		if fi.ModTime().After(s.modTime) {
			s.modTime = fi.ModTime()
		}
	}
	return s, nil
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			snap, err := w.stat()
			if err != nil {
				switch {
				case os.IsNotExist(err):
					w.mu.Lock()
					had := w.last.exists
					w.last = snapshot{}
					w.mu.Unlock()
					if had {
						w.onError(ErrFileRemoved)
					}
				case os.IsPermission(err):
					w.onError(ErrPermission)
				default:
					w.onError(err)
				}
				continue
			}

			w.mu.Lock()
			changed := snap.differs(w.last)
			w.last = snap
			w.mu.Unlock()

			if changed {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()
	if !started {
		return
	}

	w.onChange()

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
