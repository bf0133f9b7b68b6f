// Package components resolves short component names to the files that define
// them, detecting names that are defined more than once.
package components

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"unicode"

	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// Extensions are the component source extensions picked up by a scan.
var Extensions = []string{".jsx", ".tsx", ".js", ".ts"}

// Map resolves component names to absolute file paths. Names found in more
// than one location stay in Paths but are also recorded in Conflicts with
// every location they were found at.
type Map struct {
	Paths     map[string]string
	Conflicts map[string][]string
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{Paths: map[string]string{}, Conflicts: map[string][]string{}}
}

// Lookup returns the path for name. Conflicted names are unresolved.
func (m *Map) Lookup(name string) (string, bool) {
	if m == nil || m.IsConflicted(name) {
		return "", false
	}
	p, ok := m.Paths[name]
	return p, ok
}

// Has reports whether name is present, conflicted or not.
func (m *Map) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Paths[name]
	return ok
}

// IsConflicted reports whether name was defined in more than one location.
func (m *Map) IsConflicted(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Conflicts[name]
	return ok
}

// Names returns the resolvable names in sorted order.
func (m *Map) Names() []string {
	names := make([]string, 0, len(m.Paths))
	for n := range m.Paths {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve scans dirs in priority order and merges the results. The first
// definition of a name keeps the map slot; every later definition marks the
// name as conflicted. Fallbacks are materialized for roles still absent after
// the scan. Missing directories are skipped, so Resolve never fails.
func Resolve(dirs []string, fallbacks []Fallback, mat *Materializer) *Map {
	m := NewMap()
	for _, dir := range dirs {
		for _, path := range scanDir(dir) {
			name := NameOf(path)
			prev, exists := m.Paths[name]
			if !exists {
				m.Paths[name] = path
				continue
			}
			if prev == path {
				continue
			}
			if _, seen := m.Conflicts[name]; !seen {
				m.Conflicts[name] = []string{prev}
			}
			m.Conflicts[name] = append(m.Conflicts[name], path)
			slog.Debug("Component name defined more than once",
				logfields.Component(name),
				slog.Any("paths", m.Conflicts[name]))
		}
	}

	for _, fb := range fallbacks {
		if m.Has(fb.Name) || fb.Source == nil {
			continue
		}
		if mat == nil {
			continue
		}
		path, err := mat.Materialize(fb)
		if err != nil {
			slog.Warn("Failed to materialize fallback component", logfields.Component(fb.Name), logfields.Error(err))
			continue
		}
		m.Paths[fb.Name] = path
	}
	return m
}

// NameOf returns the component name defined by path: its basename without
// extension.
func NameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsComponentName reports whether name can be used as a JSX component tag.
func IsComponentName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case i == 0 && !unicode.IsUpper(r):
			return false
		case r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return true
}

func isComponentFile(name string) bool {
	ext := filepath.Ext(name)
	if !slices.Contains(Extensions, ext) {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	// Declaration files and tests are never components.
	if strings.Contains(stem, ".") {
		return false
	}
	return IsComponentName(stem)
}

// scanDir returns component files under dir in lexical walk order.
func scanDir(dir string) []string {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if isComponentFile(d.Name()) {
			abs, err := filepath.Abs(path)
			if err == nil {
				out = append(out, abs)
			}
		}
		return nil
	})
	return out
}
