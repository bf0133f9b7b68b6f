package build

import (
	"log/slog"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/mdxbuilder/internal/components"
	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	"git.home.luguber.info/inful/mdxbuilder/internal/entry"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
	"git.home.luguber.info/inful/mdxbuilder/internal/preprocess"
)

// Workspace holds the build-scoped caches: the discovered entries, the
// component map, the materialized fallbacks and the collected content
// errors. They are computed lazily and invalidated together.
type Workspace struct {
	cfg *config.Config

	mu         sync.Mutex
	entries    []*entry.PathEntry
	bySource   map[string]*entry.PathEntry
	components *components.Map
	markdown   string

	materializer *components.Materializer
	collector    *preprocess.Collector
}

// NewWorkspace returns an empty workspace for cfg.
func NewWorkspace(cfg *config.Config) *Workspace {
	return &Workspace{
		cfg:          cfg,
		materializer: components.NewMaterializer(cfg.CacheDir()),
		collector:    preprocess.NewCollector(),
	}
}

// Entries returns the discovered entries, scanning the content directory on
// first use.
func (w *Workspace) Entries() ([]*entry.PathEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.entries != nil {
		return w.entries, nil
	}
	entries, err := entry.Discover(w.cfg.ContentDir())
	if err != nil {
		return nil, err
	}
	w.entries = entries
	w.bySource = make(map[string]*entry.PathEntry, len(entries))
	for _, e := range entries {
		w.bySource[e.SourcePath] = e
	}
	return entries, nil
}

// Components returns the component map, resolving it on first use. General
// component directories take precedence over components colocated with
// content.
func (w *Workspace) Components() *components.Map {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.components == nil {
		dirs := append(w.cfg.ComponentDirs(), w.cfg.ContentDir())
		w.components = components.Resolve(dirs, components.DefaultFallbacks(), w.materializer)
		slog.Debug("Resolved components",
			logfields.Count(len(w.components.Paths)),
			slog.Int("conflicts", len(w.components.Conflicts)))
	}
	return w.components
}

// MarkdownModule returns the module providing markdown element overrides.
func (w *Workspace) MarkdownModule() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.markdown != "" {
		return w.markdown, nil
	}
	path, err := components.ResolveMarkdownModule(w.cfg.MarkdownComponentsDir(), w.materializer)
	if err != nil {
		return "", err
	}
	w.markdown = path
	return path, nil
}

// Collector returns the content error collector of this generation.
func (w *Workspace) Collector() *preprocess.Collector { return w.collector }

// SetFrontmatter records frontmatter for the entry whose source is path.
// Paths outside the entry set are ignored.
func (w *Workspace) SetFrontmatter(path string, fields map[string]any) {
	w.mu.Lock()
	e := w.bySource[filepath.Clean(path)]
	w.mu.Unlock()
	if e != nil {
		e.SetFrontmatter(fields)
	}
}

// Invalidate drops every cache so the next build rescans content and
// components.
func (w *Workspace) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = nil
	w.bySource = nil
	w.components = nil
	w.markdown = ""
	w.materializer.Reset()
	w.collector.Reset()
}
