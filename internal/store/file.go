package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a File store waits after the last file event
// before it reports an outside edit.
const DefaultSettle = 50 * time.Millisecond

// File stores the snapshot as one JSON file.
// Saves from this process notify watchers immediately; edits by other
// processes are picked up from filesystem events on the parent directory.
type File struct {
	path   string
	base   string
	settle time.Duration
	logger *slog.Logger
	origin string

	mu       sync.Mutex
	savedMod time.Time
	watchers map[chan Change]struct{}
	closed   bool
	done     chan struct{}
}

// NewFile returns a store backed by path. The directory is created if needed.
// Bursts of file events within settle are reported once; settle <= 0 uses
// DefaultSettle.
func NewFile(path string, settle time.Duration, logger *slog.Logger) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: empty path")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file store: create dir: %w", err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &File{
		path:     path,
		base:     filepath.Base(path),
		settle:   settle,
		logger:   logger,
		origin:   NewOrigin(),
		watchers: make(map[chan Change]struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (f *File) Origin() string { return f.origin }
func (f *File) Path() string   { return f.path }

func (f *File) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Save writes the snapshot atomically (write temp, rename).
func (f *File) Save(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	f.savedMod = f.modTime()

	c := Change{Origin: f.origin, At: time.Now()}
	for ch := range f.watchers {
		notify(ch, c)
	}
	return nil
}

// Watch reports this store's own saves with its origin and outside edits
// without one. The parent directory is watched since saves replace the file
// by rename.
func (f *File) Watch(ctx context.Context) (<-chan Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file store: create watcher: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("file store: watch %s: %w", dir, err)
	}

	ch := make(chan Change, 1)
	f.watchers[ch] = struct{}{}
	go f.watchLoop(ctx, w, ch, f.modTime())
	return ch, nil
}

func (f *File) watchLoop(ctx context.Context, w *fsnotify.Watcher, ch chan Change, seen time.Time) {
	defer w.Close()
	defer f.unwatch(ch)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !f.touches(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(f.settle)
				timerC = timer.C
			} else {
				timer.Reset(f.settle)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("snapshot watcher error", "path", f.path, "error", err)

		case <-timerC:
			timer, timerC = nil, nil
			mod := f.modTime()
			if mod.IsZero() || mod.Equal(seen) {
				continue
			}
			seen = mod
			f.mu.Lock()
			own := mod.Equal(f.savedMod)
			f.mu.Unlock()
			if own {
				// Already announced by Save.
				continue
			}
			f.logger.Debug("snapshot changed on disk", "path", f.path, "mtime", mod)
			notify(ch, Change{At: mod})
		}
	}
}

// touches reports whether ev can have replaced the snapshot file.
func (f *File) touches(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != f.base {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}

func (f *File) unwatch(ch chan Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.watchers[ch]; ok {
		delete(f.watchers, ch)
		close(ch)
	}
}

func (f *File) modTime() time.Time {
	st, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}
	}
	return st.ModTime()
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	return nil
}
