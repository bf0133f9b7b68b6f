package preprocess

import (
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/mdxbuilder/internal/mdx"
)

// FrontmatterFunc receives the metadata extracted from a content file.
type FrontmatterFunc func(path string, fields map[string]any)

// Compiler turns one content file into a JSX module. It is the per-file
// hook the bundler invokes for .md and .mdx sources.
type Compiler struct {
	pre           *Preprocessor
	parser        *mdx.Parser
	onFrontmatter FrontmatterFunc
}

// NewCompiler returns a compiler running pre on every file.
func NewCompiler(pre *Preprocessor, onFrontmatter FrontmatterFunc) *Compiler {
	return &Compiler{pre: pre, parser: mdx.NewParser(), onFrontmatter: onFrontmatter}
}

// Compile splits frontmatter, parses, preprocesses and emits src. Syntax
// errors are returned; ambiguity errors go to the preprocessor's collector
// and compilation continues.
func (c *Compiler) Compile(path string, src []byte) (string, error) {
	fields, body, err := frontmatter.Extract(src)
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryContent, "invalid frontmatter").
			WithContext("file", path).
			Build()
	}
	if c.onFrontmatter != nil {
		c.onFrontmatter(path, fields)
	}

	root, err := c.parser.Parse(body)
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryContent, "could not parse content").
			WithContext("file", path).
			Build()
	}

	c.pre.Process(path, root)

	js, err := mdx.Emit(root, mdx.EmitOptions{
		Frontmatter:   fields,
		CodeComponent: c.pre.opts.CodeComponent,
	})
	if err != nil {
		return "", foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "could not emit content module").
			WithContext("file", path).
			Build()
	}
	return js, nil
}
