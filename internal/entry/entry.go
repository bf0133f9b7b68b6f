// Package entry models content source files as logical routes.
package entry

import (
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// PathEntry is one content source file mapped to a route name.
type PathEntry struct {
	// Name is the source path relative to BaseDir, extension removed, with
	// forward slashes. Sources outside BaseDir keep their ".." segments.
	Name       string
	SourcePath string
	BaseDir    string

	mu          sync.RWMutex
	frontmatter map[string]any
}

// New builds a PathEntry for sourcePath discovered under baseDir. Both paths
// are made absolute first so the result does not depend on the working
// directory.
func New(sourcePath, baseDir string) (*PathEntry, error) {
	absSource, err := filepath.Abs(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("resolve source path %s: %w", sourcePath, err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir %s: %w", baseDir, err)
	}
	rel, err := filepath.Rel(absBase, absSource)
	if err != nil {
		return nil, fmt.Errorf("relative path of %s: %w", absSource, err)
	}
	rel = filepath.ToSlash(rel)
	name := strings.TrimSuffix(rel, path.Ext(rel))

	return &PathEntry{
		Name:       norm.NFC.String(name),
		SourcePath: absSource,
		BaseDir:    absBase,
	}, nil
}

// IsIndex reports whether the last segment of the route name is "index".
func (e *PathEntry) IsIndex() bool {
	return path.Base(e.Name) == "index"
}

// ArtifactPath returns where the artifact with extension ext (including the
// dot) lives under outRoot. Index routes map to outRoot/name.ext, all other
// routes to outRoot/name/index.ext.
func (e *PathEntry) ArtifactPath(ext, outRoot string) string {
	rel := e.Name + ext
	if !e.IsIndex() {
		rel = e.Name + "/index" + ext
	}
	return filepath.Join(outRoot, filepath.FromSlash(rel))
}

// RoutePath returns the URL path of the route relative to the site base,
// with a trailing slash ("" for the root index, "about/" for about/index).
func (e *PathEntry) RoutePath() string {
	dir := e.Name
	if e.IsIndex() {
		dir = path.Dir(e.Name)
	}
	if dir == "." || dir == "" {
		return ""
	}
	return dir + "/"
}

// Frontmatter returns a copy of the metadata extracted during compilation.
func (e *PathEntry) Frontmatter() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.frontmatter == nil {
		return nil
	}
	return maps.Clone(e.frontmatter)
}

// SetFrontmatter records metadata extracted during compilation.
func (e *PathEntry) SetFrontmatter(fm map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frontmatter = fm
}

func (e *PathEntry) String() string {
	return e.Name
}
