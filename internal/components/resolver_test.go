package components

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve_ScansExtensionsAndSkipsNonComponents(t *testing.T) {
	src := t.TempDir()
	counter := writeFile(t, filepath.Join(src, "Counter.jsx"), "")
	card := writeFile(t, filepath.Join(src, "ui", "Card.tsx"), "")
	writeFile(t, filepath.Join(src, "utils.js"), "")
	writeFile(t, filepath.Join(src, "Types.d.ts"), "")
	writeFile(t, filepath.Join(src, "Card.test.tsx"), "")
	writeFile(t, filepath.Join(src, "Styles.css"), "")
	writeFile(t, filepath.Join(src, "node_modules", "Pkg.js"), "")
	writeFile(t, filepath.Join(src, ".cache", "Hidden.jsx"), "")

	m := Resolve([]string{src}, nil, nil)

	assert.Equal(t, map[string]string{"Counter": counter, "Card": card}, m.Paths)
	assert.Empty(t, m.Conflicts)
}

func TestResolve_ConflictRegardlessOfOrder(t *testing.T) {
	root := t.TempDir()
	srcButton := writeFile(t, filepath.Join(root, "src", "Button.jsx"), "")
	pagesButton := writeFile(t, filepath.Join(root, "pages", "Button.jsx"), "")

	for _, order := range [][]string{
		{filepath.Join(root, "src"), filepath.Join(root, "pages")},
		{filepath.Join(root, "pages"), filepath.Join(root, "src")},
	} {
		m := Resolve(order, nil, nil)
		assert.True(t, m.IsConflicted("Button"))
		assert.True(t, m.Has("Button"))
		assert.ElementsMatch(t, []string{srcButton, pagesButton}, m.Conflicts["Button"])

		_, ok := m.Lookup("Button")
		assert.False(t, ok, "conflicted names must not resolve")
	}

	m := Resolve([]string{filepath.Join(root, "src"), filepath.Join(root, "pages")}, nil, nil)
	assert.Equal(t, srcButton, m.Paths["Button"], "earlier directory keeps the slot")
}

func TestResolve_ConflictWithinOneDirectory(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a", "Note.jsx"), "")
	writeFile(t, filepath.Join(src, "b", "Note.tsx"), "")

	m := Resolve([]string{src}, nil, nil)
	assert.True(t, m.IsConflicted("Note"))
	assert.Len(t, m.Conflicts["Note"], 2)
}

func TestResolve_Deterministic(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"src/A.jsx", "src/x/B.jsx", "src/y/B.jsx", "pages/C.tsx", "pages/A.jsx"} {
		writeFile(t, filepath.Join(root, p), "")
	}
	dirs := []string{filepath.Join(root, "src"), filepath.Join(root, "pages")}

	first := Resolve(dirs, nil, nil)
	second := Resolve(dirs, nil, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A", "B", "C"}, first.Names())
}

func TestResolve_MissingDirectoriesIgnored(t *testing.T) {
	m := Resolve([]string{filepath.Join(t.TempDir(), "nope"), ""}, nil, nil)
	assert.Empty(t, m.Paths)
}

func TestResolve_Fallbacks(t *testing.T) {
	src := t.TempDir()
	userLayout := writeFile(t, filepath.Join(src, "Layout.jsx"), "")
	cache := t.TempDir()
	mat := NewMaterializer(cache)

	m := Resolve([]string{src}, DefaultFallbacks(), mat)

	assert.Equal(t, userLayout, m.Paths[RoleLayout], "user component wins over fallback")
	codeBlock, ok := m.Lookup(RoleCodeBlock)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(cache, "fallback", "CodeBlock.jsx"), codeBlock)
	assert.FileExists(t, codeBlock)
	assert.False(t, m.Has(RoleHead), "roles without default stay absent")
	assert.Empty(t, m.Conflicts)
}

func TestIsComponentName(t *testing.T) {
	for name, want := range map[string]bool{
		"Counter":  true,
		"MyCard2":  true,
		"Über":     true,
		"counter":  false,
		"":         false,
		"My-Card":  false,
		"_Private": false,
	} {
		assert.Equal(t, want, IsComponentName(name), name)
	}
}
