package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdxbuilder/internal/entry"
)

func TestGenerateEntryFiles_RelativePaths(t *testing.T) {
	root := t.TempDir()
	content := filepath.Join(root, "pages")
	writeFile(t, filepath.Join(content, "about", "index.mdx"), "# About")
	e, err := entry.New(filepath.Join(content, "about", "index.mdx"), content)
	require.NoError(t, err)

	tmpl, err := loadTemplate(root, ClientTemplate)
	require.NoError(t, err)

	gen := filepath.Join(root, ".cache", "entries", "client")
	files, err := GenerateEntryFiles(tmpl, []*entry.PathEntry{e}, gen, filepath.Join(root, "src", "markdown", "index.jsx"))
	require.NoError(t, err)

	path := files["about/index"]
	assert.Equal(t, filepath.Join(gen, "about", "index.tsx"), path)
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(src), `import Content from "../../../../pages/about/index.mdx";`)
	assert.Contains(t, string(src), `import components from "../../../../src/markdown/index.jsx";`)
	assert.NotContains(t, string(src), root)
}

func TestLoadTemplate_ProjectOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, TemplatesDir, ServerTemplate), `// custom {{ quote .Content }}`)

	tmpl, err := loadTemplate(root, ServerTemplate)
	require.NoError(t, err)

	content := filepath.Join(root, "pages")
	writeFile(t, filepath.Join(content, "index.md"), "x")
	e, err := entry.New(filepath.Join(content, "index.md"), content)
	require.NoError(t, err)

	files, err := GenerateEntryFiles(tmpl, []*entry.PathEntry{e}, filepath.Join(root, "gen"), filepath.Join(root, "md.jsx"))
	require.NoError(t, err)
	src, err := os.ReadFile(files["index"])
	require.NoError(t, err)
	assert.Equal(t, `// custom "../pages/index.md"`, string(src))
}

func TestEmbeddedTemplates(t *testing.T) {
	for _, name := range TemplateNames() {
		src, err := EmbeddedTemplate(name)
		require.NoError(t, err)
		assert.Contains(t, string(src), "import Content from")
	}
}
