package mdx

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Parser converts Markdown with embedded JSX into a content tree.
type Parser struct {
	md goldmark.Markdown
}

// NewParser returns a parser with GitHub Flavored Markdown and footnotes
// enabled.
func NewParser() *Parser {
	return &Parser{md: goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote))}
}

var defaultParser = NewParser()

// Parse converts src with the default parser.
func Parse(src []byte) (*Node, error) {
	return defaultParser.Parse(src)
}

// Parse converts src into a tree rooted at a KindRoot node. Top-level
// paragraphs holding import or export statements become ESM nodes. JSX tags
// are folded into Component (capitalized) and Element (lowercase) nodes; an
// unclosed or mismatched tag is a syntax error.
func (p *Parser) Parse(src []byte) (*Node, error) {
	doc := p.md.Parser().Parse(text.NewReader(src))
	c := &converter{p: p, src: src}
	children, err := c.blocks(doc, true)
	if err != nil {
		return nil, err
	}
	return NewRoot(children...), nil
}

type converter struct {
	p   *Parser
	src []byte
}

// blocks converts the block children of parent.
func (c *converter) blocks(parent gast.Node, topLevel bool) ([]*Node, error) {
	f := newFolder(false)
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *gast.HTMLBlock:
			raw := string(n.Lines().Value(c.src))
			if n.HasClosure() {
				raw += string(n.ClosureLine.Value(c.src))
			}
			if err := c.markup(f, raw); err != nil {
				return nil, err
			}
		case *gast.Paragraph:
			raw := string(n.Lines().Value(c.src))
			trimmed := strings.TrimSpace(raw)
			switch {
			case topLevel && IsESM(trimmed):
				f.add(&Node{Kind: KindESM, Value: trimmed, Imports: ParseBindings(trimmed)})
			case startsWithComponentTag(trimmed):
				if err := c.markup(f, raw); err != nil {
					return nil, err
				}
			default:
				inl, err := c.inlines(n)
				if err != nil {
					return nil, err
				}
				f.add(&Node{Kind: KindParagraph, Children: inl})
			}
		case *gast.TextBlock:
			inl, err := c.inlines(n)
			if err != nil {
				return nil, err
			}
			for _, node := range inl {
				f.add(node)
			}
		default:
			node, err := c.block(child)
			if err != nil {
				return nil, err
			}
			if node != nil {
				f.add(node)
			}
		}
	}
	if err := f.finish(); err != nil {
		return nil, err
	}
	return f.root.Children, nil
}

func (c *converter) block(n gast.Node) (*Node, error) {
	switch n := n.(type) {
	case *gast.Heading:
		inl, err := c.inlines(n)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindHeading, Level: n.Level, Children: inl}, nil
	case *gast.ThematicBreak:
		return &Node{Kind: KindThematicBreak}, nil
	case *gast.CodeBlock:
		return &Node{Kind: KindCode, Value: string(n.Lines().Value(c.src))}, nil
	case *gast.FencedCodeBlock:
		lang := ""
		if n.Info != nil {
			lang = strings.Fields(string(n.Info.Segment.Value(c.src)) + " ")[0]
		}
		return &Node{Kind: KindCode, Lang: lang, Value: string(n.Lines().Value(c.src))}, nil
	case *gast.Blockquote:
		children, err := c.blocks(n, false)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindBlockquote, Children: children}, nil
	case *gast.List:
		list := &Node{Kind: KindList, Ordered: n.IsOrdered(), Start: n.Start, Tight: n.IsTight}
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			children, err := c.blocks(item, false)
			if err != nil {
				return nil, err
			}
			list.Children = append(list.Children, &Node{Kind: KindListItem, Children: children})
		}
		return list, nil
	case *east.Table:
		return c.table(n)
	case *east.FootnoteList:
		section := &Node{Kind: KindFootnoteSection}
		for fn := n.FirstChild(); fn != nil; fn = fn.NextSibling() {
			footnote, ok := fn.(*east.Footnote)
			if !ok {
				continue
			}
			children, err := c.blocks(footnote, false)
			if err != nil {
				return nil, err
			}
			section.Children = append(section.Children, &Node{Kind: KindFootnoteItem, Index: footnote.Index, Children: children})
		}
		return section, nil
	default:
		// Unknown blocks keep their children.
		children, err := c.blocks(n, false)
		if err != nil || len(children) == 0 {
			return nil, err
		}
		return &Node{Kind: KindParagraph, Children: children}, nil
	}
}

func (c *converter) table(t *east.Table) (*Node, error) {
	table := &Node{Kind: KindTable}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		r := &Node{Kind: KindTableRow, Header: row.Kind() == east.KindTableHeader}
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			tc, ok := cell.(*east.TableCell)
			if !ok {
				continue
			}
			inl, err := c.inlines(tc)
			if err != nil {
				return nil, err
			}
			r.Children = append(r.Children, &Node{Kind: KindTableCell, Header: r.Header, Align: alignment(tc.Alignment), Children: inl})
		}
		table.Children = append(table.Children, r)
	}
	return table, nil
}

func alignment(a east.Alignment) string {
	switch a {
	case east.AlignLeft:
		return "left"
	case east.AlignRight:
		return "right"
	case east.AlignCenter:
		return "center"
	default:
		return ""
	}
}

// inlines converts the inline children of parent.
func (c *converter) inlines(parent gast.Node) ([]*Node, error) {
	f := newFolder(true)
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		if raw, ok := child.(*gast.RawHTML); ok {
			if err := c.markup(f, string(raw.Segments.Value(c.src))); err != nil {
				return nil, err
			}
			continue
		}
		nodes, err := c.inline(child)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			f.add(n)
		}
	}
	if err := f.finish(); err != nil {
		return nil, err
	}
	return f.root.Children, nil
}

func (c *converter) inline(n gast.Node) ([]*Node, error) {
	wrap := func(kind Kind) ([]*Node, error) {
		children, err := c.inlines(n)
		if err != nil {
			return nil, err
		}
		return []*Node{{Kind: kind, Children: children}}, nil
	}

	switch n := n.(type) {
	case *gast.Text:
		value := n.Value(c.src)
		if !n.IsRaw() {
			value = unescape(value)
		}
		s := string(value)
		if n.SoftLineBreak() {
			s += "\n"
		}
		out := []*Node{NewText(s)}
		if n.HardLineBreak() {
			out = append(out, &Node{Kind: KindBreak})
		}
		return out, nil
	case *gast.String:
		return []*Node{NewText(string(n.Value))}, nil
	case *gast.CodeSpan:
		var b strings.Builder
		for t := n.FirstChild(); t != nil; t = t.NextSibling() {
			switch tt := t.(type) {
			case *gast.Text:
				b.Write(tt.Value(c.src))
			case *gast.String:
				b.Write(tt.Value)
			}
		}
		return []*Node{{Kind: KindInlineCode, Value: b.String()}}, nil
	case *gast.Emphasis:
		if n.Level >= 2 {
			return wrap(KindStrong)
		}
		return wrap(KindEmphasis)
	case *east.Strikethrough:
		return wrap(KindDelete)
	case *gast.Link:
		children, err := c.inlines(n)
		if err != nil {
			return nil, err
		}
		return []*Node{{Kind: KindLink, URL: string(n.Destination), Title: string(n.Title), Children: children}}, nil
	case *gast.AutoLink:
		url := string(n.URL(c.src))
		if n.AutoLinkType == gast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
			url = "mailto:" + url
		}
		return []*Node{{Kind: KindLink, URL: url, Children: []*Node{NewText(string(n.Label(c.src)))}}}, nil
	case *gast.Image:
		children, err := c.inlines(n)
		if err != nil {
			return nil, err
		}
		return []*Node{{Kind: KindImage, URL: string(n.Destination), Title: string(n.Title), Children: children}}, nil
	case *east.TaskCheckBox:
		attrs := []Attr{{Name: "type", Value: "checkbox"}, {Name: "disabled", Bool: true}}
		if n.IsChecked {
			attrs = append(attrs, Attr{Name: "checked", Bool: true})
		}
		return []*Node{{Kind: KindElement, Name: "input", Attrs: attrs, SelfClosing: true}, NewText(" ")}, nil
	case *east.FootnoteLink:
		return []*Node{{Kind: KindFootnoteRef, Index: n.Index, RefIndex: n.RefIndex}}, nil
	case *east.FootnoteBacklink:
		return []*Node{{Kind: KindFootnoteBackref, Index: n.Index, RefIndex: n.RefIndex}}, nil
	default:
		return c.inlines(n)
	}
}

// markup feeds raw JSX/HTML into f. Text between tags is parsed as
// Markdown; a lone paragraph is unwrapped so `<Note>Hi</Note>` holds text.
func (c *converter) markup(f *folder, raw string) error {
	tokens, err := tokenizeJSX(raw)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		switch tok.kind {
		case tokText:
			if strings.TrimSpace(tok.text) == "" {
				continue
			}
			nodes, err := c.fragment(tok.text, f.inline)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				f.add(n)
			}
		default:
			if err := f.token(tok); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *converter) fragment(s string, inline bool) ([]*Node, error) {
	if inline {
		return []*Node{NewText(s)}, nil
	}
	doc := c.p.md.Parser().Parse(text.NewReader([]byte(s)))
	sub := &converter{p: c.p, src: []byte(s)}
	nodes, err := sub.blocks(doc, false)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 1 && nodes[0].Kind == KindParagraph {
		return nodes[0].Children, nil
	}
	return nodes, nil
}

func startsWithComponentTag(s string) bool {
	return len(s) > 1 && s[0] == '<' && s[1] >= 'A' && s[1] <= 'Z'
}

func unescape(b []byte) []byte {
	b = util.UnescapePunctuations(b)
	b = util.ResolveNumericReferences(b)
	return util.ResolveEntityNames(b)
}

// folder builds a subtree from a stream of nodes and JSX tags, nesting
// nodes between an opening tag and its closing tag.
type folder struct {
	root   *Node
	stack  []*Node
	inline bool
}

func newFolder(inline bool) *folder {
	root := &Node{Kind: KindRoot}
	return &folder{root: root, stack: []*Node{root}, inline: inline}
}

func (f *folder) top() *Node { return f.stack[len(f.stack)-1] }

func (f *folder) add(n *Node) {
	top := f.top()
	if n.Kind == KindText && len(top.Children) > 0 {
		if last := top.Children[len(top.Children)-1]; last.Kind == KindText {
			last.Value += n.Value
			return
		}
	}
	top.Children = append(top.Children, n)
}

func (f *folder) token(tok jsxToken) error {
	switch tok.kind {
	case tokComment:
		f.add(&Node{Kind: KindHTML, Value: tok.text})
	case tokSelfClosing:
		f.add(tagNode(tok, true))
	case tokOpen:
		n := tagNode(tok, false)
		f.add(n)
		f.stack = append(f.stack, n)
	case tokClose:
		if len(f.stack) == 1 {
			return fmt.Errorf("unexpected closing tag </%s>, expected no closing tag", tok.name)
		}
		open := f.top()
		if open.Name != tok.name {
			return fmt.Errorf("unexpected closing tag </%s>, expected the closing tag </%s>", tok.name, open.Name)
		}
		f.stack = f.stack[:len(f.stack)-1]
	}
	return nil
}

func (f *folder) finish() error {
	if len(f.stack) > 1 {
		return fmt.Errorf("expected a closing tag for <%s>", f.top().Name)
	}
	return nil
}

func tagNode(tok jsxToken, selfClosing bool) *Node {
	kind := KindElement
	if tok.name != "" && tok.name[0] >= 'A' && tok.name[0] <= 'Z' {
		kind = KindComponent
	}
	return &Node{Kind: kind, Name: tok.name, Attrs: tok.attrs, SelfClosing: selfClosing}
}
