// Package inbox imports CSV files dropped into a directory.
//
// The watcher reacts to files created or written directly in the directory
// (subdirectories are not watched). Writes are debounced per file so a file
// copied in several chunks is imported once, after it settles. Each file is
// then moved to processed/ or failed/ so it is never imported twice.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/logging"
)

const (
	// DefaultDebounce is the quiet period after the last write before a
	// file is imported.
	DefaultDebounce = 250 * time.Millisecond

	// ProcessedDir and FailedDir receive files after their import.
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// ImportFunc imports the file at path and returns the persisted row count.
type ImportFunc func(ctx context.Context, path string) (int, error)

// Watcher imports CSV files that appear in a directory.
type Watcher struct {
	dir      string
	importFn ImportFunc
	limiter  *core.ImportLimiter
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// New creates a watcher over dir. Imports take a slot from limiter, shared
// with the HTTP upload path.
func New(dir string, limiter *core.ImportLimiter, fn ImportFunc) *Watcher {
	return &Watcher{
		dir:      dir,
		importFn: fn,
		limiter:  limiter,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string),
		done:     make(chan struct{}),
	}
}

// WithDebounce sets the debounce duration.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run imports any CSV files already in the directory, then watches for new
// ones until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.FromContext(ctx).With("component", "inbox", "dir", w.dir)
	ctx = logging.NewContext(ctx, log)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("inbox: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", w.dir, err)
	}
	defer w.stop()

	log.Info("inbox watching")
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("inbox stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if isCSV(event.Name) && filepath.Dir(event.Name) == filepath.Clean(w.dir) {
					w.schedule(event.Name)
				}
			}

		case path := <-w.ready:
			w.process(ctx, path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("inbox watch error", "error", err)
		}
	}
}

// sweep imports files that arrived while nothing was watching.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logging.FromContext(ctx).Warn("inbox sweep failed", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.Type().IsRegular() && isCSV(entry.Name()) {
			w.process(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

// stop cancels pending timers and releases any timer blocked on ready.
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	close(w.done)
}

// process imports one file and files it away.
func (w *Watcher) process(ctx context.Context, path string) {
	log := logging.FromContext(ctx).With("file", filepath.Base(path))

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return
	}

	if err := w.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, core.ErrTooManyImports) {
			log.Warn("inbox import deferred", "error", err)
			w.schedule(path)
		}
		return
	}
	count, err := w.importFn(ctx, path)
	w.limiter.Release()

	dest := ProcessedDir
	if err != nil {
		dest = FailedDir
		log.Error("inbox import failed", "error", err)
	} else {
		log.Info("inbox import complete", "imported", count)
	}

	if err := w.moveTo(path, dest); err != nil {
		log.Error("inbox move failed", "error", err)
	}
}

// moveTo renames path into the named subdirectory. A timestamp prefix keeps
// repeated drops of the same file name apart.
func (w *Watcher) moveTo(path, sub string) error {
	dir := filepath.Join(w.dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	name := strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + filepath.Base(path)
	return os.Rename(path, filepath.Join(dir, name))
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
