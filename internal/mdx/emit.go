package mdx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// EmitOptions configures Emit.
type EmitOptions struct {
	// Frontmatter is exported from the module as `frontmatter`.
	Frontmatter map[string]any

	// CodeComponent renders fenced code blocks when the module binds it.
	// The component receives language, code and highlighted html props.
	CodeComponent string

	// HighlightStyle is the chroma style for CodeComponent html.
	HighlightStyle string
}

// intrinsic lists the tags markdown constructs render to, in the order they
// appear in the components object.
var intrinsic = []string{
	"a", "blockquote", "br", "code", "del", "div", "em",
	"h1", "h2", "h3", "h4", "h5", "h6", "hr", "img", "input", "li", "ol",
	"p", "pre", "section", "strong", "sup", "table", "tbody", "td", "th",
	"thead", "tr", "ul",
}

// Emit renders root as a JSX ES module. ESM nodes are hoisted to module
// scope in document order. The default export renders the content with
// markdown elements overridable through props.components and an optional
// props.components.wrapper.
func Emit(root *Node, opts EmitOptions) (string, error) {
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = DefaultHighlightStyle
	}
	e := &emitter{
		opts:  opts,
		bound: map[string]bool{},
		used:  map[string]bool{},
		free:  map[string]bool{},
	}

	var esm []string
	for _, c := range root.Children {
		if c.Kind == KindESM {
			esm = append(esm, c.Value)
			for _, name := range c.Imports {
				e.bound[name] = true
			}
		}
	}

	var body strings.Builder
	for _, c := range root.Children {
		if c.Kind == KindESM {
			continue
		}
		if err := e.node(&body, c); err != nil {
			return "", err
		}
		body.WriteByte('\n')
	}

	fm := opts.Frontmatter
	if fm == nil {
		fm = map[string]any{}
	}
	fmJSON, err := marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}

	var out strings.Builder
	for _, s := range esm {
		out.WriteString(s)
		out.WriteByte('\n')
	}
	if len(esm) > 0 {
		out.WriteByte('\n')
	}
	fmt.Fprintf(&out, "export const frontmatter = %s;\n\n", fmJSON)

	out.WriteString("function _createMdxContent(props) {\n")
	out.WriteString("  const _components = {\n")
	for _, tag := range intrinsic {
		if e.used[tag] {
			fmt.Fprintf(&out, "    %s: %q,\n", tag, tag)
		}
	}
	out.WriteString("    ...props.components\n  };\n")
	free := e.freeNames()
	if len(free) > 0 {
		fmt.Fprintf(&out, "  const {%s} = _components;\n", strings.Join(free, ", "))
		for _, name := range free {
			fmt.Fprintf(&out, "  if (!%s) _missingMdxReference(%q, true);\n", name, name)
		}
	}
	out.WriteString("  return <>\n")
	out.WriteString(body.String())
	out.WriteString("</>;\n}\n\n")
	out.WriteString(`export default function MDXContent(props = {}) {
  const {wrapper: MDXLayout} = props.components || {};
  return MDXLayout ? <MDXLayout {...props}><_createMdxContent {...props} /></MDXLayout> : _createMdxContent(props);
}
`)
	if len(free) > 0 {
		out.WriteString("\nfunction _missingMdxReference(id, component) {\n")
		out.WriteString("  throw new Error(\"Expected \" + (component ? \"component\" : \"object\") + \" `\" + id + \"` to be defined: you likely forgot to import, pass, or provide it.\");\n}\n")
	}
	return out.String(), nil
}

type emitter struct {
	opts  EmitOptions
	bound map[string]bool
	used  map[string]bool
	free  map[string]bool
}

func (e *emitter) freeNames() []string {
	names := make([]string, 0, len(e.free))
	for n := range e.free {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// tag returns the JSX name for an intrinsic markdown element.
func (e *emitter) tag(name string) string {
	e.used[name] = true
	return "_components." + name
}

func (e *emitter) component(name string) string {
	base, _, _ := strings.Cut(name, ".")
	if !e.bound[base] {
		e.free[base] = true
	}
	return name
}

func (e *emitter) node(b *strings.Builder, n *Node) error {
	switch n.Kind {
	case KindRoot:
		return e.children(b, n)
	case KindESM, KindHTML:
		return nil
	case KindText:
		b.WriteString("{" + quote(n.Value) + "}")
		return nil
	case KindParagraph:
		return e.element(b, e.tag("p"), nil, n)
	case KindHeading:
		level := min(max(n.Level, 1), 6)
		return e.element(b, e.tag("h"+strconv.Itoa(level)), nil, n)
	case KindEmphasis:
		return e.element(b, e.tag("em"), nil, n)
	case KindStrong:
		return e.element(b, e.tag("strong"), nil, n)
	case KindDelete:
		return e.element(b, e.tag("del"), nil, n)
	case KindInlineCode:
		return e.element(b, e.tag("code"), nil, &Node{Children: []*Node{NewText(n.Value)}})
	case KindCode:
		return e.code(b, n)
	case KindLink:
		attrs := []Attr{{Name: "href", Value: n.URL}}
		if n.Title != "" {
			attrs = append(attrs, Attr{Name: "title", Value: n.Title})
		}
		return e.element(b, e.tag("a"), attrs, n)
	case KindImage:
		attrs := []Attr{{Name: "src", Value: n.URL}, {Name: "alt", Value: TextContent(n)}}
		if n.Title != "" {
			attrs = append(attrs, Attr{Name: "title", Value: n.Title})
		}
		return e.element(b, e.tag("img"), attrs, &Node{})
	case KindList:
		if n.Ordered {
			var attrs []Attr
			if n.Start != 0 && n.Start != 1 {
				attrs = append(attrs, Attr{Name: "start", Value: strconv.Itoa(n.Start), Expr: true})
			}
			return e.element(b, e.tag("ol"), attrs, n)
		}
		return e.element(b, e.tag("ul"), nil, n)
	case KindListItem:
		return e.element(b, e.tag("li"), nil, n)
	case KindBlockquote:
		return e.element(b, e.tag("blockquote"), nil, n)
	case KindThematicBreak:
		return e.element(b, e.tag("hr"), nil, &Node{})
	case KindBreak:
		return e.element(b, e.tag("br"), nil, &Node{})
	case KindTable:
		return e.table(b, n)
	case KindTableRow:
		return e.element(b, e.tag("tr"), nil, n)
	case KindTableCell:
		var attrs []Attr
		if n.Align != "" {
			attrs = append(attrs, Attr{Name: "style", Value: "{textAlign: " + quote(n.Align) + "}", Expr: true})
		}
		if n.Header {
			return e.element(b, e.tag("th"), attrs, n)
		}
		return e.element(b, e.tag("td"), attrs, n)
	case KindComponent:
		return e.element(b, e.component(n.Name), n.Attrs, n)
	case KindElement:
		return e.element(b, n.Name, domAttrs(n.Attrs), n)
	case KindContainer:
		tag := "div"
		if n.Inline {
			tag = "span"
		}
		return e.element(b, tag, []Attr{{Name: "className", Value: n.Class}}, n)
	case KindFootnoteSection:
		return e.footnotes(b, n)
	case KindFootnoteItem:
		return e.element(b, e.tag("li"), []Attr{{Name: "id", Value: fmt.Sprintf("user-content-fn-%d", n.Index)}}, n)
	case KindFootnoteRef:
		id := fmt.Sprintf("user-content-fnref-%d", n.Index)
		if n.RefIndex > 0 {
			id += fmt.Sprintf("-%d", n.RefIndex+1)
		}
		b.WriteString("<" + e.tag("sup") + ">")
		err := e.element(b, e.tag("a"), []Attr{
			{Name: "href", Value: fmt.Sprintf("#user-content-fn-%d", n.Index)},
			{Name: "id", Value: id},
			{Name: "data-footnote-ref", Bool: true},
			{Name: "aria-describedby", Value: "footnote-label"},
		}, &Node{Children: []*Node{NewText(strconv.Itoa(n.Index))}})
		b.WriteString("</" + e.tag("sup") + ">")
		return err
	case KindFootnoteBackref:
		href := fmt.Sprintf("#user-content-fnref-%d", n.Index)
		label := fmt.Sprintf("Back to reference %d", n.Index)
		if n.RefIndex > 0 {
			href += fmt.Sprintf("-%d", n.RefIndex+1)
			label += fmt.Sprintf("-%d", n.RefIndex+1)
		}
		b.WriteString("{\" \"}")
		return e.element(b, e.tag("a"), []Attr{
			{Name: "href", Value: href},
			{Name: "data-footnote-backref", Bool: true},
			{Name: "aria-label", Value: label},
			{Name: "className", Value: "data-footnote-backref"},
		}, &Node{Children: []*Node{NewText("↩")}})
	default:
		return fmt.Errorf("cannot emit %s node", n.Kind)
	}
}

func (e *emitter) children(b *strings.Builder, n *Node) error {
	for _, c := range n.Children {
		if err := e.node(b, c); err != nil {
			return err
		}
		if !c.IsInline() {
			b.WriteByte('\n')
		}
	}
	return nil
}

func (e *emitter) element(b *strings.Builder, name string, attrs []Attr, n *Node) error {
	b.WriteString("<" + name)
	writeAttrs(b, attrs)
	if len(n.Children) == 0 {
		b.WriteString(" />")
		return nil
	}
	b.WriteString(">")
	if err := e.children(b, n); err != nil {
		return err
	}
	b.WriteString("</" + name + ">")
	return nil
}

func (e *emitter) code(b *strings.Builder, n *Node) error {
	if name := e.opts.CodeComponent; name != "" && e.bound[name] {
		attrs := []Attr{{Name: "code", Value: n.Value}}
		if n.Lang != "" {
			attrs = append(attrs, Attr{Name: "language", Value: n.Lang})
		}
		if html, ok := Highlight(n.Value, n.Lang, e.opts.HighlightStyle); ok {
			attrs = append(attrs, Attr{Name: "html", Value: html})
		}
		return e.element(b, name, attrs, &Node{})
	}

	var attrs []Attr
	if n.Lang != "" {
		attrs = append(attrs, Attr{Name: "className", Value: "language-" + n.Lang})
	}
	b.WriteString("<" + e.tag("pre") + ">")
	if err := e.element(b, e.tag("code"), attrs, &Node{Children: []*Node{NewText(n.Value)}}); err != nil {
		return err
	}
	b.WriteString("</" + e.tag("pre") + ">")
	return nil
}

func (e *emitter) table(b *strings.Builder, n *Node) error {
	var head, body []*Node
	for _, row := range n.Children {
		if row.Header {
			head = append(head, row)
		} else {
			body = append(body, row)
		}
	}
	b.WriteString("<" + e.tag("table") + ">\n")
	if len(head) > 0 {
		if err := e.element(b, e.tag("thead"), nil, &Node{Children: head}); err != nil {
			return err
		}
		b.WriteByte('\n')
	}
	if len(body) > 0 {
		if err := e.element(b, e.tag("tbody"), nil, &Node{Children: body}); err != nil {
			return err
		}
		b.WriteByte('\n')
	}
	b.WriteString("</" + e.tag("table") + ">")
	return nil
}

func (e *emitter) footnotes(b *strings.Builder, n *Node) error {
	attrs := []Attr{{Name: "data-footnotes", Bool: true}, {Name: "className", Value: "footnotes"}}
	b.WriteString("<" + e.tag("section"))
	writeAttrs(b, attrs)
	b.WriteString(">")
	err := e.element(b, e.tag("h2"), []Attr{{Name: "className", Value: "sr-only"}, {Name: "id", Value: "footnote-label"}},
		&Node{Children: []*Node{NewText("Footnotes")}})
	if err != nil {
		return err
	}
	b.WriteByte('\n')
	if err := e.element(b, e.tag("ol"), nil, n); err != nil {
		return err
	}
	b.WriteString("</" + e.tag("section") + ">")
	return nil
}

func writeAttrs(b *strings.Builder, attrs []Attr) {
	for _, a := range attrs {
		switch {
		case a.Name == "" && a.Expr:
			b.WriteString(" {" + a.Value + "}")
		case a.Bool:
			b.WriteString(" " + a.Name)
		case a.Expr:
			b.WriteString(" " + a.Name + "={" + a.Value + "}")
		default:
			b.WriteString(" " + a.Name + "={" + quote(a.Value) + "}")
		}
	}
}

// domAttrs maps HTML attribute spellings on intrinsic elements to their
// React equivalents.
func domAttrs(attrs []Attr) []Attr {
	out := slices.Clone(attrs)
	for i, a := range out {
		switch a.Name {
		case "class":
			out[i].Name = "className"
		case "for":
			out[i].Name = "htmlFor"
		case "style":
			if !a.Expr && !a.Bool {
				out[i].Value = styleObject(a.Value)
				out[i].Expr = true
			}
		}
	}
	return out
}

// styleObject converts a CSS declaration list into an object literal.
func styleObject(css string) string {
	var parts []string
	for _, decl := range strings.Split(css, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		prop, value = strings.TrimSpace(prop), strings.TrimSpace(value)
		if !ok || prop == "" {
			continue
		}
		parts = append(parts, quote(cssPropertyName(prop))+": "+quote(value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func cssPropertyName(prop string) string {
	if strings.HasPrefix(prop, "--") {
		return prop
	}
	prop = strings.ToLower(prop)
	if strings.HasPrefix(prop, "-ms-") {
		prop = prop[1:]
	}
	var b strings.Builder
	upper := false
	for _, r := range prop {
		if r == '-' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, _ := marshal(s)
	return string(b)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
