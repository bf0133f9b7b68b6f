// Package preprocess rewrites content trees before compilation: layout
// wrapping, automatic component imports, ambiguity detection and structural
// fix-ups.
package preprocess

import (
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdxbuilder/internal/components"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
	"git.home.luguber.info/inful/mdxbuilder/internal/mdx"
)

// IsolationClass marks containers whose content is exempt from ambient
// typographic styling.
const IsolationClass = "not-prose"

// Options configures a Preprocessor.
type Options struct {
	// Layout is the component that wraps every page. Empty disables wrapping.
	Layout string
	// CodeComponent renders fenced code blocks. Empty disables it.
	CodeComponent string
	// Strict disables layout wrapping, import injection and isolation
	// wrapping; content compiles exactly as authored.
	Strict bool
}

// DefaultOptions returns the options used by the build.
func DefaultOptions() Options {
	return Options{Layout: components.RoleLayout, CodeComponent: components.RoleCodeBlock}
}

// Preprocessor rewrites content trees against one component map.
type Preprocessor struct {
	components *components.Map
	collector  *Collector
	opts       Options
}

// New returns a Preprocessor. Errors are recorded in collector.
func New(m *components.Map, collector *Collector, opts Options) *Preprocessor {
	if m == nil {
		m = components.NewMap()
	}
	if collector == nil {
		collector = NewCollector()
	}
	return &Preprocessor{components: m, collector: collector, opts: opts}
}

// Collector returns the collector errors are recorded in.
func (p *Preprocessor) Collector() *Collector { return p.collector }

// Options returns the configured options.
func (p *Preprocessor) Options() Options { return p.opts }

// Result describes what Process changed.
type Result struct {
	Usage     Usage
	Wrapped   bool
	Injected  []string
	Ambiguous []string
}

// Process rewrites root in place for the content file at file.
func (p *Preprocessor) Process(file string, root *mdx.Node) Result {
	usage := ScanUsage(root, p.opts.CodeComponent)
	res := Result{Usage: usage}

	if !p.opts.Strict {
		if layout := p.opts.Layout; layout != "" && p.components.Has(layout) && !usage.IsInvoked(layout) {
			wrapLayout(root, layout)
			usage.Invoked = append(usage.Invoked, layout)
			res.Wrapped = true
		}

		var candidates []string
		for _, name := range usage.Missing() {
			if !p.components.Has(name) {
				continue
			}
			if p.components.IsConflicted(name) {
				res.Ambiguous = append(res.Ambiguous, name)
				continue
			}
			candidates = append(candidates, name)
		}

		if len(res.Ambiguous) > 0 {
			locations := make(map[string][]string, len(res.Ambiguous))
			for _, name := range res.Ambiguous {
				locations[name] = append([]string(nil), p.components.Conflicts[name]...)
			}
			p.collector.Add(&AmbiguityError{File: file, Names: res.Ambiguous, Locations: locations})
		}

		imports := make([]*mdx.Node, 0, len(candidates))
		for _, name := range candidates {
			path, _ := p.components.Lookup(name)
			imports = append(imports, mdx.NewImport(name, ImportPath(file, path)))
			res.Injected = append(res.Injected, name)
		}
		root.Children = append(imports, root.Children...)
	}

	spliceFootnotes(root, p.opts.Layout)
	if !p.opts.Strict {
		isolate(root, p.opts.Layout, false)
	}

	res.Usage = usage
	if len(res.Injected) > 0 || res.Wrapped {
		slog.Debug("Preprocessed content",
			logfields.Path(file),
			slog.Bool("wrapped", res.Wrapped),
			slog.Any("injected", res.Injected))
	}
	return res
}

// ImportPath returns the module specifier for target as imported from the
// content file at file.
func ImportPath(file, target string) string {
	rel, err := filepath.Rel(filepath.Dir(file), target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

// wrapLayout moves every top-level node except module statements and
// footnote sections into an invocation of layout.
func wrapLayout(root *mdx.Node, layout string) {
	var head, content, tail []*mdx.Node
	for _, c := range root.Children {
		switch c.Kind {
		case mdx.KindESM:
			head = append(head, c)
		case mdx.KindFootnoteSection:
			tail = append(tail, c)
		default:
			content = append(content, c)
		}
	}
	wrapper := mdx.NewComponent(layout, nil, content...)
	root.Children = append(append(head, wrapper), tail...)
}

// spliceFootnotes makes top-level footnote sections the last children of
// the top-level layout invocation.
func spliceFootnotes(root *mdx.Node, layout string) {
	if layout == "" {
		return
	}
	var wrapper *mdx.Node
	for _, c := range root.Children {
		if c.Kind == mdx.KindComponent && c.Name == layout {
			wrapper = c
			break
		}
	}
	if wrapper == nil {
		return
	}
	kept := root.Children[:0]
	var sections []*mdx.Node
	for _, c := range root.Children {
		if c.Kind == mdx.KindFootnoteSection {
			sections = append(sections, c)
			continue
		}
		kept = append(kept, c)
	}
	if len(sections) == 0 {
		return
	}
	root.Children = kept
	wrapper.Children = append(wrapper.Children, sections...)
	wrapper.SelfClosing = false
}

// isolate wraps self-closing component invocations in an isolation
// container unless an ancestor already carries the isolation class.
func isolate(n *mdx.Node, layout string, isolated bool) {
	if n.HasClass(IsolationClass) {
		isolated = true
	}
	for i, c := range n.Children {
		if !isolated && c.Kind == mdx.KindComponent && len(c.Children) == 0 && c.Name != layout {
			n.Children[i] = mdx.NewContainer(IsolationClass, n.AcceptsInline() || hasInlineSibling(n), c)
			continue
		}
		isolate(c, layout, isolated)
	}
}

func hasInlineSibling(n *mdx.Node) bool {
	if n.Kind == mdx.KindRoot {
		return false
	}
	for _, c := range n.Children {
		if c.IsInline() {
			return true
		}
	}
	return false
}
