package devloop

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// Watcher observes source trees and reports changed files.
type Watcher struct {
	fs     *fsnotify.Watcher
	ignore []string
}

// NewWatcher watches every existing directory below roots. Directories in
// ignore (typically the output and cache directories) are never watched.
func NewWatcher(roots []string, ignore ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "failed to create file watcher").Build()
	}
	w := &Watcher{fs: fw}
	for _, dir := range ignore {
		if dir != "" {
			w.ignore = append(w.ignore, filepath.Clean(dir))
		}
	}
	watched := 0
	for _, root := range dedupeRoots(roots) {
		if st, statErr := os.Stat(root); statErr != nil || !st.IsDir() {
			continue
		}
		w.addRecursive(root)
		watched++
	}
	if watched == 0 {
		_ = fw.Close()
		return nil, foundationerrors.ValidationError("no source directories to watch").
			WithContext("roots", strings.Join(roots, ",")).
			Build()
	}
	return w, nil
}

// Run forwards relevant events to onChange until ctx is done or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev, onChange)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error { return w.fs.Close() }

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string { return w.fs.WatchList() }

func (w *Watcher) handle(ev fsnotify.Event, onChange func(string)) {
	if ev.Op == fsnotify.Chmod || w.ignored(ev.Name) || shouldIgnoreFile(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addRecursive(ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	onChange(ev.Name)
}

func (w *Watcher) addRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// shouldIgnoreFile reports hidden, editor swap and OS metadata files.
func shouldIgnoreFile(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}

// dedupeRoots drops empty, repeated and nested roots.
func dedupeRoots(roots []string) []string {
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != "" {
			clean = append(clean, filepath.Clean(r))
		}
	}
	sort.SliceStable(clean, func(i, j int) bool { return len(clean[i]) < len(clean[j]) })

	var out []string
	for _, r := range clean {
		covered := false
		for _, o := range out {
			if r == o || strings.HasPrefix(r, o+string(filepath.Separator)) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, r)
		}
	}
	return out
}
