package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of file events, e.g. a profile save that
// writes two files and renames a directory.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports edits made to the profiles directory, including those
// made outside WOMP.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func()
	logger   *zap.Logger
}

// NewWatcher creates a watcher for dir that calls onChange at most once
// per debounce window.
func NewWatcher(dir string, onChange func(), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{dir: dir, debounce: DefaultDebounce, onChange: onChange, logger: logger}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch profiles directory: %w", err)
	}
	entries, err := os.ReadDir(w.dir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				w.add(fw, filepath.Join(w.dir, e.Name()))
			}
		}
	}
	w.logger.Debug("watching profiles directory", zap.String("dir", w.dir))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 && filepath.Dir(ev.Name) == filepath.Clean(w.dir) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.add(fw, ev.Name)
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("profiles watcher error", zap.Error(err))

		case <-timer.C:
			w.onChange()
		}
	}
}

func (w *Watcher) add(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.logger.Debug("failed to watch profile directory", zap.String("dir", dir), zap.Error(err))
	}
}

// relevant drops events inside hidden staging directories.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel == "." {
		return false
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return !strings.HasPrefix(first, ".")
}
