package preprocess

import (
	"strings"

	"git.home.luguber.info/inful/mdxbuilder/internal/mdx"
)

// Usage is the component usage of one content tree.
type Usage struct {
	// Invoked lists component names in first-invocation document order.
	Invoked []string
	// Imported lists names bound by the file's own module statements.
	Imported []string
}

// Missing returns Invoked minus Imported, keeping Invoked's order.
func (u Usage) Missing() []string {
	imported := make(map[string]bool, len(u.Imported))
	for _, n := range u.Imported {
		imported[n] = true
	}
	var out []string
	for _, n := range u.Invoked {
		if !imported[n] {
			out = append(out, n)
		}
	}
	return out
}

// IsInvoked reports whether name is invoked.
func (u Usage) IsInvoked(name string) bool {
	for _, n := range u.Invoked {
		if n == name {
			return true
		}
	}
	return false
}

// ScanUsage walks root without modifying it. Code blocks count as
// invocations of codeComponent when it is non-empty. A member expression
// such as UI.Card counts as an invocation of UI.
func ScanUsage(root *mdx.Node, codeComponent string) Usage {
	var u Usage
	seenInvoked := map[string]bool{}
	seenImported := map[string]bool{}

	invoke := func(name string) {
		if name == "" || seenInvoked[name] {
			return
		}
		seenInvoked[name] = true
		u.Invoked = append(u.Invoked, name)
	}

	mdx.Walk(root, func(n, _ *mdx.Node) mdx.WalkStatus {
		switch n.Kind {
		case mdx.KindESM:
			for _, name := range n.Imports {
				if !seenImported[name] {
					seenImported[name] = true
					u.Imported = append(u.Imported, name)
				}
			}
		case mdx.KindComponent:
			base, _, _ := strings.Cut(n.Name, ".")
			invoke(base)
		case mdx.KindCode:
			invoke(codeComponent)
		}
		return mdx.WalkContinue
	})
	return u
}
