package mdx

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// DefaultHighlightStyle is the chroma style used for code blocks.
const DefaultHighlightStyle = "github"

// Highlight renders code as HTML with chroma classes. HighlightCSS returns
// the matching rules. It returns false when no lexer matches lang.
func Highlight(code, lang, style string) (string, bool) {
	if lang == "" {
		return "", false
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}
	var b strings.Builder
	if err := newFormatter().Format(&b, highlightStyle(style), it); err != nil {
		return "", false
	}
	return b.String(), true
}

// HighlightCSS returns the stylesheet for the classes Highlight emits.
func HighlightCSS(style string) ([]byte, error) {
	var b bytes.Buffer
	if err := newFormatter().WriteCSS(&b, highlightStyle(style)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func newFormatter() *html.Formatter {
	return html.New(html.WithClasses(true), html.TabWidth(4))
}

func highlightStyle(name string) *chroma.Style {
	if s := styles.Get(name); s != nil {
		return s
	}
	return styles.Fallback
}
