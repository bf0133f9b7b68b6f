// Package mdx models MDX content as a typed tree, builds it from Markdown
// with embedded JSX, and emits it as a JSX ES module.
package mdx

import "slices"

// Kind tags the variant of a Node.
type Kind int

const (
	KindRoot Kind = iota
	KindESM
	KindParagraph
	KindHeading
	KindText
	KindEmphasis
	KindStrong
	KindDelete
	KindInlineCode
	KindCode
	KindLink
	KindImage
	KindList
	KindListItem
	KindBlockquote
	KindThematicBreak
	KindBreak
	KindHTML
	KindTable
	KindTableRow
	KindTableCell
	KindComponent
	KindElement
	KindFootnoteSection
	KindFootnoteItem
	KindFootnoteRef
	KindFootnoteBackref
	KindContainer
)

var kindNames = [...]string{
	KindRoot:            "root",
	KindESM:             "esm",
	KindParagraph:       "paragraph",
	KindHeading:         "heading",
	KindText:            "text",
	KindEmphasis:        "emphasis",
	KindStrong:          "strong",
	KindDelete:          "delete",
	KindInlineCode:      "inlineCode",
	KindCode:            "code",
	KindLink:            "link",
	KindImage:           "image",
	KindList:            "list",
	KindListItem:        "listItem",
	KindBlockquote:      "blockquote",
	KindThematicBreak:   "thematicBreak",
	KindBreak:           "break",
	KindHTML:            "html",
	KindTable:           "table",
	KindTableRow:        "tableRow",
	KindTableCell:       "tableCell",
	KindComponent:       "component",
	KindElement:         "element",
	KindFootnoteSection: "footnoteSection",
	KindFootnoteItem:    "footnoteItem",
	KindFootnoteRef:     "footnoteRef",
	KindFootnoteBackref: "footnoteBackref",
	KindContainer:       "container",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Attr is a JSX attribute. Expr values are emitted verbatim inside braces;
// a Bool attribute has no value.
type Attr struct {
	Name  string
	Value string
	Expr  bool
	Bool  bool
}

// Node is one node of a content tree. Which payload fields are meaningful
// depends on Kind.
type Node struct {
	Kind     Kind
	Children []*Node

	// Value holds text for Text, InlineCode, Code and HTML, and module
	// source for ESM.
	Value string

	// Heading.
	Level int

	// List.
	Ordered bool
	Start   int
	Tight   bool

	// Link and Image.
	URL   string
	Title string

	// Code.
	Lang string

	// Component and Element.
	Name        string
	Attrs       []Attr
	SelfClosing bool

	// ESM: local bindings declared in Value by imports and exported
	// declarations.
	Imports  []string
	Injected bool

	// Container.
	Class  string
	Inline bool

	// TableRow and TableCell.
	Header bool
	Align  string

	// FootnoteRef, FootnoteItem and FootnoteBackref.
	Index    int
	RefIndex int
}

// NewRoot returns an empty root.
func NewRoot(children ...*Node) *Node {
	return &Node{Kind: KindRoot, Children: children}
}

// NewText returns a text node.
func NewText(s string) *Node {
	return &Node{Kind: KindText, Value: s}
}

// NewComponent returns a component invocation. It is self-closing when it
// has no children.
func NewComponent(name string, attrs []Attr, children ...*Node) *Node {
	return &Node{Kind: KindComponent, Name: name, Attrs: attrs, Children: children, SelfClosing: len(children) == 0}
}

// NewImport returns an ESM node importing the default export of path as name.
func NewImport(name, path string) *Node {
	return &Node{
		Kind:     KindESM,
		Value:    "import " + name + " from " + quote(path) + ";",
		Imports:  []string{name},
		Injected: true,
	}
}

// NewContainer returns a wrapper carrying class.
func NewContainer(class string, inline bool, children ...*Node) *Node {
	return &Node{Kind: KindContainer, Class: class, Inline: inline, Children: children}
}

// HasClass reports whether the node carries class via Container.Class or a
// class/className attribute.
func (n *Node) HasClass(class string) bool {
	if n.Kind == KindContainer && hasToken(n.Class, class) {
		return true
	}
	for _, a := range n.Attrs {
		if (a.Name == "className" || a.Name == "class") && !a.Expr && hasToken(a.Value, class) {
			return true
		}
	}
	return false
}

// IsInline reports whether the node belongs in phrasing content.
func (n *Node) IsInline() bool {
	switch n.Kind {
	case KindText, KindEmphasis, KindStrong, KindDelete, KindInlineCode, KindLink,
		KindImage, KindBreak, KindFootnoteRef, KindFootnoteBackref:
		return true
	default:
		return false
	}
}

// AcceptsInline reports whether the node's children are phrasing content.
func (n *Node) AcceptsInline() bool {
	switch n.Kind {
	case KindParagraph, KindHeading, KindEmphasis, KindStrong, KindDelete, KindLink, KindTableCell:
		return true
	case KindContainer:
		return n.Inline
	default:
		return false
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Attrs = slices.Clone(n.Attrs)
	c.Imports = slices.Clone(n.Imports)
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// WalkStatus controls traversal.
type WalkStatus int

const (
	WalkContinue WalkStatus = iota
	WalkSkipChildren
	WalkStop
)

// Walker is called in pre-order with the node and its parent (nil for the
// node Walk started at).
type Walker func(n, parent *Node) WalkStatus

// Walk visits n and its descendants in document order.
func Walk(n *Node, fn Walker) {
	walk(n, nil, fn)
}

func walk(n, parent *Node, fn Walker) WalkStatus {
	switch fn(n, parent) {
	case WalkStop:
		return WalkStop
	case WalkSkipChildren:
		return WalkContinue
	}
	for _, c := range n.Children {
		if walk(c, n, fn) == WalkStop {
			return WalkStop
		}
	}
	return WalkContinue
}

// TextContent concatenates the text of n's descendants.
func TextContent(n *Node) string {
	var b []byte
	Walk(n, func(c, _ *Node) WalkStatus {
		if c.Kind == KindText || c.Kind == KindInlineCode {
			b = append(b, c.Value...)
		}
		return WalkContinue
	})
	return string(b)
}

func hasToken(list, token string) bool {
	start := -1
	for i := 0; i <= len(list); i++ {
		if i == len(list) || list[i] == ' ' || list[i] == '\t' || list[i] == '\n' {
			if start >= 0 && list[start:i] == token {
				return true
			}
			start = -1
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return false
}
