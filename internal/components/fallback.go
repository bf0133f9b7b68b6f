package components

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Well-known component roles.
const (
	RoleLayout    = "Layout"
	RoleCodeBlock = "CodeBlock"
	RoleHead      = "Head"
)

//go:embed defaults/*.jsx
var defaultFS embed.FS

// Fallback is a default source for a component role. A nil Source marks an
// optional role with no default.
type Fallback struct {
	Name   string
	Source []byte
}

// DefaultFallbacks returns the embedded fallbacks in a fixed order.
func DefaultFallbacks() []Fallback {
	return []Fallback{
		{Name: RoleLayout, Source: mustDefault("Layout.jsx")},
		{Name: RoleCodeBlock, Source: mustDefault("CodeBlock.jsx")},
		{Name: RoleHead},
	}
}

// DefaultMarkdownComponents returns the module used when a project has no
// markdown component overrides.
func DefaultMarkdownComponents() Fallback {
	return Fallback{Name: "markdown", Source: mustDefault("markdown.jsx")}
}

func mustDefault(name string) []byte {
	b, err := defaultFS.ReadFile("defaults/" + name)
	if err != nil {
		panic(fmt.Sprintf("embedded default %s: %v", name, err))
	}
	return b
}

// Materializer writes fallback sources below a cache directory. Within one
// generation every fallback is written at most once.
type Materializer struct {
	dir string

	mu      sync.Mutex
	written map[string]string
}

// NewMaterializer returns a materializer writing to cacheDir/fallback.
func NewMaterializer(cacheDir string) *Materializer {
	return &Materializer{dir: filepath.Join(cacheDir, "fallback"), written: map[string]string{}}
}

// Dir is the directory fallbacks are written to.
func (m *Materializer) Dir() string { return m.dir }

// Materialize writes fb to a deterministic path and returns it.
func (m *Materializer) Materialize(fb Fallback) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.written[fb.Name]; ok {
		return p, nil
	}

	path := filepath.Join(m.dir, fb.Name+".jsx")
	if existing, err := os.ReadFile(path); err != nil || !bytes.Equal(existing, fb.Source) {
		if err := os.MkdirAll(m.dir, 0o755); err != nil {
			return "", fmt.Errorf("create fallback dir: %w", err)
		}
		if err := os.WriteFile(path, fb.Source, 0o644); err != nil {
			return "", fmt.Errorf("write fallback %s: %w", fb.Name, err)
		}
	}
	m.written[fb.Name] = path
	return path, nil
}

// Reset starts a new generation.
func (m *Materializer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = map[string]string{}
}

// ResolveMarkdownModule returns the markdown component module: dir/index.*
// when the project defines one, otherwise the materialized default.
func ResolveMarkdownModule(dir string, mat *Materializer) (string, error) {
	if dir != "" {
		for _, ext := range Extensions {
			p := filepath.Join(dir, "index"+ext)
			if _, err := os.Stat(p); err == nil {
				return filepath.Abs(p)
			}
		}
	}
	return mat.Materialize(DefaultMarkdownComponents())
}
