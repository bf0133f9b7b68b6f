package entry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

var (
	// ErrContentDirNotFound indicates the configured content directory does not exist.
	ErrContentDirNotFound = errors.New("content directory not found")

	// ErrNoEntries indicates the content directory holds no content files.
	ErrNoEntries = errors.New("no content files found")

	// ErrRouteConflict indicates two content files render to the same page.
	ErrRouteConflict = errors.New("content files map to the same route")
)

// ContentExtensions are the source extensions that become routes.
var ContentExtensions = []string{".md", ".mdx"}

// IsContentFile reports whether path has a content extension.
func IsContentFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ContentExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Discover walks contentDir and returns one entry per content file, sorted by
// name. Hidden files and directories and node_modules are skipped.
func Discover(contentDir string) ([]*PathEntry, error) {
	info, err := os.Stat(contentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrContentDirNotFound, contentDir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrContentDirNotFound, contentDir)
	}

	var entries []*PathEntry
	routes := make(map[string][]string)
	err = filepath.WalkDir(contentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != contentDir && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !IsContentFile(name) {
			return nil
		}

		e, err := New(path, contentDir)
		if err != nil {
			return err
		}
		route := e.RoutePath()
		routes[route] = append(routes[route], e.SourcePath)
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content directory %s: %w", contentDir, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoEntries, contentDir)
	}
	if err := routeConflicts(routes); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	slog.Debug("Discovered content entries", logfields.Count(len(entries)), logfields.Path(contentDir))
	return entries, nil
}

// routeConflicts reports every route produced by more than one source file,
// for example about.mdx next to about/index.mdx.
func routeConflicts(routes map[string][]string) error {
	var conflicts []string
	var files []string
	for route, paths := range routes {
		if len(paths) < 2 {
			continue
		}
		conflicts = append(conflicts, "/"+route)
		files = append(files, paths...)
	}
	if len(conflicts) == 0 {
		return nil
	}
	sort.Strings(conflicts)
	sort.Strings(files)
	return ferrors.ContentError(fmt.Sprintf("%s: %s", ErrRouteConflict, strings.Join(files, ", "))).
		WithCause(ErrRouteConflict).
		WithContext("routes", conflicts).
		WithContext("files", files).
		WithHint("rename or remove one of the files so each page has a single source").
		Build()
}
