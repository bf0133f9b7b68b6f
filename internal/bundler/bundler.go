// Package bundler compiles generated entry modules into browser and server
// bundles.
package bundler

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
)

// Target selects the bundle profile.
type Target string

const (
	TargetBrowser Target = "browser"
	TargetServer  Target = "server"
)

// OutputKind classifies a produced file.
type OutputKind string

const (
	OutputEntryPoint OutputKind = "entry-point"
	OutputChunk      OutputKind = "chunk"
	OutputAsset      OutputKind = "asset"
)

// Output describes one produced file.
type Output struct {
	Kind OutputKind
	Path string
	// EntryPoint is the source entry point for entry outputs.
	EntryPoint string
	// CSSBundle is the stylesheet holding the CSS imported by an entry
	// output, if any.
	CSSBundle string
}

// ContentCompiler turns a Markdown/MDX source into a JSX module.
type ContentCompiler interface {
	Compile(path string, src []byte) (string, error)
}

// Request describes one bundling pass.
type Request struct {
	EntryPoints []string
	Outdir      string
	// Outbase is the directory entry paths are mirrored from into Outdir.
	Outbase string
	// ResolveRoot is the module resolution root and working directory.
	ResolveRoot string
	// NodePaths are extra directories searched for bare imports.
	NodePaths []string
	Target    Target
	Minify    bool
	// Content compiles .md and .mdx imports. Nil leaves them to the default
	// loaders.
	Content ContentCompiler
}

// Result is the outcome of a bundling pass.
type Result struct {
	Success bool
	Logs    []string
	Outputs []Output
}

// Entries returns the entry-point outputs.
func (r *Result) Entries() []Output {
	var out []Output
	for _, o := range r.Outputs {
		if o.Kind == OutputEntryPoint {
			out = append(out, o)
		}
	}
	return out
}

// Bundler produces bundles. A failed compilation is reported through
// Result.Success and Result.Logs; the error return is for failures to run
// the bundler at all.
type Bundler interface {
	Build(ctx context.Context, req Request) (*Result, error)
}

// hashSuffix matches the "-[hash]" part of the configured output names:
// eight characters of esbuild's base32 alphabet, or eight lowercase hex
// digits.
var hashSuffix = regexp.MustCompile(`-(?:[A-Z2-7]{8}|[0-9a-f]{8})$`)

// StripHash removes a trailing content hash and the extension from the base
// name of path: "out/about/index-AB23CD45.js" becomes "out/about/index".
// Names without a hash keep every segment: "out/my-articles.js" becomes
// "out/my-articles".
func StripHash(path string) string {
	ext := filepath.Ext(path)
	trimmed := strings.TrimSuffix(path, ext)
	return hashSuffix.ReplaceAllString(trimmed, "")
}
