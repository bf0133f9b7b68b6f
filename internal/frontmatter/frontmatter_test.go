package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, format, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, FormatNone, format)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\nkey: value\n---\n# Title\n")

	fm, body, format, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)
	require.Equal(t, []byte("key: value\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_TOMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("+++\ntitle = \"Hi\"\n+++\nBody\n")

	fm, body, format, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, FormatTOML, format)
	require.Equal(t, []byte("title = \"Hi\"\n"), fm)
	require.Equal(t, []byte("Body\n"), body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	input := []byte("---\nkey: value\n# Title\n")

	_, _, format, err := Split(input)
	require.Error(t, err)
	require.Equal(t, FormatNone, format)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\r\nkey: value\r\n---\r\n# Title\r\n")

	fm, body, _, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, []byte("key: value\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyFrontmatterBlock(t *testing.T) {
	input := []byte("---\n---\n# Title\n")

	fm, body, format, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_FrontmatterOnly(t *testing.T) {
	input := []byte("---\ntitle: x\n---")

	fm, body, format, err := Split(input)
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)
	require.Equal(t, []byte("title: x\n"), fm)
	require.Empty(t, body)
}

func TestExtract_YAMLDatesAndLists(t *testing.T) {
	input := []byte("---\ntitle: Post\ndate: 2024-03-01\ntags: [a, b]\nmeta:\n  draft: true\n---\nbody")

	fields, body, err := Extract(input)
	require.NoError(t, err)
	require.Equal(t, []byte("body"), body)
	require.Equal(t, "Post", fields["title"])
	require.Equal(t, "2024-03-01", fields["date"])
	require.Equal(t, []any{"a", "b"}, fields["tags"])
	require.Equal(t, map[string]any{"draft": true}, fields["meta"])
}

func TestExtract_TOML(t *testing.T) {
	fields, _, err := Extract([]byte("+++\ntitle = \"T\"\nkeywords = [\"x\", \"y\"]\n+++\n"))
	require.NoError(t, err)
	require.Equal(t, "T", fields["title"])
	require.Equal(t, []string{"x", "y"}, Strings(fields, "keywords"))
}

func TestExtract_InvalidYAML(t *testing.T) {
	_, _, err := Extract([]byte("---\ntitle: [unclosed\n---\n"))
	require.Error(t, err)
}

func TestStrings_CommaSeparated(t *testing.T) {
	fields := map[string]any{"keywords": "go, mdx ,, static"}
	require.Equal(t, []string{"go", "mdx", "static"}, Strings(fields, "keywords"))
}

func TestString(t *testing.T) {
	fields := map[string]any{"title": "x", "n": 3, "empty": "", "list": []any{"a"}}

	s, ok := String(fields, "title")
	require.True(t, ok)
	require.Equal(t, "x", s)

	s, ok = String(fields, "n")
	require.True(t, ok)
	require.Equal(t, "3", s)

	_, ok = String(fields, "empty")
	require.False(t, ok)
	_, ok = String(fields, "list")
	require.False(t, ok)
	_, ok = String(fields, "missing")
	require.False(t, ok)
}
