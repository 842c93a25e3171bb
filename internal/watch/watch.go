// Package watch regenerates query files as they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/pthm/sqlimport/internal/project"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 100 * time.Millisecond

// Watcher feeds file system events under a project root into the project.
// Every directory under the root is watched; directories created later are
// added as they appear.
type Watcher struct {
	proj     *project.Project
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger

	// handled is called after each debounced batch. Tests use it to
	// synchronize with the event loop.
	handled func(changed []string)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before changed files are transformed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithHandled registers a callback run after every processed batch of
// changes with the query files it transformed or forgot.
func WithHandled(fn func(changed []string)) Option {
	return func(w *Watcher) { w.handled = fn }
}

// New creates a watcher over every directory under the project root.
func New(proj *project.Project, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		proj:     proj,
		fsw:      fsw,
		debounce: DefaultDebounce,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}

	if _, err := w.addTree(proj.Root()); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run processes events until ctx is done or the watcher is closed. Transform
// errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending[event.Name] |= event.Op
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := w.flush(ctx, pending)
			pending = make(map[string]fsnotify.Op)
			if w.handled != nil {
				w.handled(changed)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	// Creations may be new directories.
	return strings.HasSuffix(event.Name, project.QueryFileExt) || event.Has(fsnotify.Create)
}

// flush handles one debounced batch of events and returns the query files
// it touched in lexical order.
func (w *Watcher) flush(ctx context.Context, pending map[string]fsnotify.Op) []string {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changed []string
	for _, path := range paths {
		info, err := w.proj.Fs().Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if !strings.HasSuffix(path, project.QueryFileExt) {
				continue
			}
			if err := w.proj.Forget(path); err != nil {
				w.log.Error("forget query file", "file", path, "error", err)
				continue
			}
			w.log.Info("query file removed", "file", path)
			changed = append(changed, path)

		case err != nil:
			w.log.Error("stat changed path", "path", path, "error", err)

		case info.IsDir():
			files, err := w.addTree(path)
			if err != nil {
				w.log.Error("watch new directory", "dir", path, "error", err)
			}
			for _, f := range files {
				if w.transform(ctx, f) {
					changed = append(changed, f)
				}
			}

		case strings.HasSuffix(path, project.QueryFileExt):
			if w.transform(ctx, path) {
				changed = append(changed, path)
			}
		}
	}
	return changed
}

func (w *Watcher) transform(ctx context.Context, path string) bool {
	res, err := w.proj.TransformFile(ctx, path)
	if err != nil {
		w.log.Error("transform query file", "file", path, "error", err)
		return false
	}
	w.log.Info("regenerated", "file", res.File, "modules", res.Modules)
	return true
}

// addTree watches dir and its subdirectories and returns the query files
// found beneath it.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := afero.Walk(w.proj.Fs(), dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if strings.HasSuffix(path, project.QueryFileExt) {
				files = append(files, path)
			}
			return nil
		}
		if path != w.proj.Root() && project.Ignored(info.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.log.Debug("watching directory", "dir", path)
		return nil
	})
	return files, err
}
