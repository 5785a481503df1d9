package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/diwan-editor/docsearch/internal/logger"
)

// DefaultDebounce is how long a Watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to the chapters under a directory. Bursts of
// events are merged into one batch once the directory has been quiet for
// Debounce.
type Watcher struct {
	Debounce time.Duration

	watcher *fsnotify.Watcher
	root    string
	log     *slog.Logger
}

// NewWatcher watches dir and every directory below it.
func NewWatcher(dir string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watcher := &Watcher{
		Debounce: DefaultDebounce,
		watcher:  w,
		root:     filepath.Clean(dir),
		log:      logger.WithComponent("watch"),
	}
	if err := watcher.addRecursive(watcher.root); err != nil {
		_ = w.Close()
		return nil, err
	}
	return watcher, nil
}

// Run calls onChange with the sorted relative paths of the chapters changed
// in each batch, until ctx is done or onChange returns an error. Errors
// reported by the watcher itself are logged and do not stop Run.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string) error) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.log.Warn("cannot watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			rel, ok := w.relevant(event)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			if err := onChange(paths); err != nil {
				return err
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.log.Warn("watch error", "dir", w.root, "error", err)
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

// relevant reports whether event touches a chapter or SUMMARY.md, and returns
// its slash-separated path relative to the root.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}
	if ForFile(event.Name) == nil {
		return "", false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
