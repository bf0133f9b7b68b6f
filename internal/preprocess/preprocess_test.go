package preprocess

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdxbuilder/internal/components"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/mdx"
)

const projectRoot = "/project"

func contentFile(rel string) string {
	return filepath.Join(projectRoot, "pages", filepath.FromSlash(rel))
}

func componentMap(paths map[string]string, conflicts map[string][]string) *components.Map {
	m := components.NewMap()
	for name, p := range paths {
		m.Paths[name] = filepath.Join(projectRoot, filepath.FromSlash(p))
	}
	for name, ps := range conflicts {
		for _, p := range ps {
			m.Conflicts[name] = append(m.Conflicts[name], filepath.Join(projectRoot, filepath.FromSlash(p)))
		}
	}
	return m
}

func parse(t *testing.T, src string) *mdx.Node {
	t.Helper()
	root, err := mdx.Parse([]byte(src))
	require.NoError(t, err)
	return root
}

func TestProcess_InjectsSingleImportBeforeContent(t *testing.T) {
	m := componentMap(map[string]string{"Counter": "src/Counter.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "# Title\n\n<Counter />\n")
	originalCount := len(root.Children)

	res := p.Process(contentFile("index.mdx"), root)

	assert.Equal(t, []string{"Counter"}, res.Injected)
	require.Len(t, root.Children, originalCount+1)
	first := root.Children[0]
	assert.Equal(t, mdx.KindESM, first.Kind)
	assert.True(t, first.Injected)
	assert.Equal(t, `import Counter from "../src/Counter.jsx";`, first.Value)
	assert.Equal(t, mdx.KindHeading, root.Children[1].Kind)
	assert.Zero(t, p.Collector().Len())
}

func TestProcess_ExplicitImportNotDuplicated(t *testing.T) {
	m := componentMap(map[string]string{"Counter": "src/Counter.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "import Counter from '../lib/Counter.jsx'\n\n<Counter />\n")

	res := p.Process(contentFile("index.mdx"), root)
	assert.Empty(t, res.Injected)
}

func TestProcess_UnknownComponentLeftAlone(t *testing.T) {
	p := New(components.NewMap(), nil, DefaultOptions())
	root := parse(t, "<Unknown />\n")

	res := p.Process(contentFile("index.mdx"), root)
	assert.Empty(t, res.Injected)
	assert.Equal(t, []string{"Unknown"}, res.Usage.Missing())
	assert.Zero(t, p.Collector().Len())
}

func TestProcess_AmbiguousNameNeverInjected(t *testing.T) {
	m := componentMap(
		map[string]string{"Button": "src/Button.jsx", "Counter": "src/Counter.jsx"},
		map[string][]string{"Button": {"src/Button.jsx", "pages/Button.jsx"}},
	)
	collector := NewCollector()
	p := New(m, collector, DefaultOptions())
	root := parse(t, "<Button />\n\n<Counter />\n")
	file := contentFile("index.mdx")

	res := p.Process(file, root)

	assert.Equal(t, []string{"Button"}, res.Ambiguous)
	assert.Equal(t, []string{"Counter"}, res.Injected, "other components are still injected")
	for _, c := range root.Children {
		if c.Kind == mdx.KindESM {
			assert.NotContains(t, c.Imports, "Button")
		}
	}

	errs := collector.Errors()
	require.Len(t, errs, 1)
	var ae *AmbiguityError
	require.True(t, errors.As(errs[0], &ae))
	assert.Equal(t, file, ae.File)
	assert.Equal(t, []string{"Button"}, ae.Names)
	assert.Contains(t, errs[0].Error(), "Button")
	assert.Contains(t, errs[0].Error(), file)
}

func TestScanUsage_IdempotentOnOriginalTree(t *testing.T) {
	m := componentMap(map[string]string{"Counter": "src/Counter.jsx", "Layout": "src/Layout.jsx"}, nil)
	original := parse(t, "<Counter />\n\n<Chart />\n")

	first := ScanUsage(original.Clone(), "")
	New(m, nil, DefaultOptions()).Process(contentFile("index.mdx"), original.Clone())
	second := ScanUsage(original.Clone(), "")

	assert.Equal(t, first.Missing(), second.Missing())
	assert.Equal(t, []string{"Counter", "Chart"}, first.Missing())
}

func TestProcess_LayoutWrapping(t *testing.T) {
	m := componentMap(map[string]string{"Counter": "src/Counter.jsx", "Layout": "src/Layout.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "import X from './x.js'\n\n# Title\n\n<Counter />\n")

	res := p.Process(contentFile("blog/post.mdx"), root)

	assert.True(t, res.Wrapped)
	assert.Equal(t, []string{"Counter", "Layout"}, res.Injected, "layout is imported after content components")
	require.Len(t, root.Children, 4)
	assert.Equal(t, `import Counter from "../../src/Counter.jsx";`, root.Children[0].Value)
	assert.Equal(t, `import Layout from "../../src/Layout.jsx";`, root.Children[1].Value)
	assert.Equal(t, "import X from './x.js'", root.Children[2].Value)

	wrapper := root.Children[3]
	assert.Equal(t, "Layout", wrapper.Name)
	require.Len(t, wrapper.Children, 2)
	assert.Equal(t, mdx.KindHeading, wrapper.Children[0].Kind)
}

func TestProcess_LayoutAlreadyInvoked(t *testing.T) {
	m := componentMap(map[string]string{"Layout": "src/Layout.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "<Layout>\n\nHello\n\n</Layout>\n")

	res := p.Process(contentFile("index.mdx"), root)
	assert.False(t, res.Wrapped)
	assert.Equal(t, []string{"Layout"}, res.Injected)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Layout", root.Children[1].Name)
}

func TestProcess_FootnotesSplicedIntoLayout(t *testing.T) {
	m := componentMap(map[string]string{"Layout": "src/Layout.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "Text[^1]\n\n[^1]: Note\n")

	p.Process(contentFile("index.mdx"), root)

	require.Len(t, root.Children, 2)
	wrapper := root.Children[1]
	require.Equal(t, "Layout", wrapper.Name)
	last := wrapper.Children[len(wrapper.Children)-1]
	assert.Equal(t, mdx.KindFootnoteSection, last.Kind)
}

func TestProcess_IsolatesSelfClosingComponents(t *testing.T) {
	m := componentMap(map[string]string{"Counter": "src/Counter.jsx", "Badge": "src/Badge.jsx", "Layout": "src/Layout.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "<Counter />\n\nText <Badge /> here\n\n<div className=\"not-prose\">\n<Counter />\n</div>\n")

	p.Process(contentFile("index.mdx"), root)

	wrapper := root.Children[len(root.Children)-1]
	require.Equal(t, "Layout", wrapper.Name)
	require.Len(t, wrapper.Children, 3)

	block := wrapper.Children[0]
	assert.Equal(t, mdx.KindContainer, block.Kind)
	assert.Equal(t, IsolationClass, block.Class)
	assert.False(t, block.Inline)
	assert.Equal(t, "Counter", block.Children[0].Name)

	para := wrapper.Children[1]
	require.Equal(t, mdx.KindParagraph, para.Kind)
	inline := para.Children[1]
	assert.Equal(t, mdx.KindContainer, inline.Kind)
	assert.True(t, inline.Inline)

	marked := wrapper.Children[2]
	assert.Equal(t, mdx.KindElement, marked.Kind)
	assert.Equal(t, mdx.KindComponent, marked.Children[0].Kind, "already isolated by an ancestor")
}

func TestProcess_SecondPassIsStable(t *testing.T) {
	m := componentMap(map[string]string{"Counter": "src/Counter.jsx", "Layout": "src/Layout.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "<Counter />\n")
	file := contentFile("index.mdx")

	p.Process(file, root)
	once := root.Clone()
	res := p.Process(file, root)

	assert.False(t, res.Wrapped)
	assert.Empty(t, res.Injected)
	assert.Equal(t, once, root)
}

func TestProcess_StrictMode(t *testing.T) {
	m := componentMap(map[string]string{"Counter": "src/Counter.jsx", "Layout": "src/Layout.jsx"},
		map[string][]string{"Counter": {"src/Counter.jsx", "pages/Counter.jsx"}})
	opts := DefaultOptions()
	opts.Strict = true
	p := New(m, nil, opts)
	root := parse(t, "<Counter />\n")
	before := root.Clone()

	res := p.Process(contentFile("index.mdx"), root)

	assert.False(t, res.Wrapped)
	assert.Empty(t, res.Injected)
	assert.Empty(t, res.Ambiguous)
	assert.Equal(t, before, root)
	assert.Zero(t, p.Collector().Len())
}

func TestProcess_CodeBlocksUseCodeComponent(t *testing.T) {
	m := componentMap(map[string]string{"CodeBlock": ".mdxbuilder/fallback/CodeBlock.jsx"}, nil)
	p := New(m, nil, DefaultOptions())
	root := parse(t, "```go\nx\n```\n")

	res := p.Process(contentFile("index.mdx"), root)
	assert.Equal(t, []string{"CodeBlock"}, res.Injected)
	assert.Equal(t, `import CodeBlock from "../.mdxbuilder/fallback/CodeBlock.jsx";`, root.Children[0].Value)
}

func TestImportPath(t *testing.T) {
	tests := []struct {
		file, target, want string
	}{
		{"/p/pages/index.mdx", "/p/src/Counter.jsx", "../src/Counter.jsx"},
		{"/p/pages/index.mdx", "/p/pages/Local.jsx", "./Local.jsx"},
		{"/p/pages/a/b/c.mdx", "/p/pages/a/Card.tsx", "../Card.tsx"},
		{"/p/pages/index.mdx", "/p/pages/ui/Card.tsx", "./ui/Card.tsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImportPath(filepath.FromSlash(tt.file), filepath.FromSlash(tt.target)))
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Err())

	err := &AmbiguityError{File: "a.mdx", Names: []string{"Button"}}
	c.Add(err)
	c.Add(&AmbiguityError{File: "a.mdx", Names: []string{"Button"}})
	c.Add(nil)
	assert.Equal(t, 1, c.Len())

	got := c.Err()
	require.Error(t, got)
	assert.True(t, foundationerrors.HasCategory(got, foundationerrors.CategoryContent))
	var ae *AmbiguityError
	assert.True(t, errors.As(got, &ae))
	ce, ok := foundationerrors.AsClassified(got)
	require.True(t, ok)
	assert.NotEmpty(t, ce.Hint())

	c.Reset()
	assert.Zero(t, c.Len())
	assert.NoError(t, c.Err())
}
