package mdx

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokOpen
	tokClose
	tokSelfClosing
	tokComment
)

type jsxToken struct {
	kind  tokenKind
	name  string
	attrs []Attr
	text  string
}

// tokenizeJSX splits raw markup into text runs and JSX tags. Tag and
// attribute names keep their case, and attribute values may be braced
// expressions.
func tokenizeJSX(s string) ([]jsxToken, error) {
	var out []jsxToken
	textStart := 0
	flushText := func(end int) {
		if end > textStart {
			out = append(out, jsxToken{kind: tokText, text: s[textStart:end]})
		}
	}

	i := 0
	for i < len(s) {
		if s[i] != '<' {
			i++
			continue
		}
		if strings.HasPrefix(s[i:], "<!--") {
			end := strings.Index(s[i+4:], "-->")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment")
			}
			flushText(i)
			out = append(out, jsxToken{kind: tokComment, text: s[i : i+4+end+3]})
			i += 4 + end + 3
			textStart = i
			continue
		}
		if !looksLikeTag(s[i+1:]) {
			i++
			continue
		}
		tok, n, err := parseTag(s[i:])
		if err != nil {
			return nil, err
		}
		flushText(i)
		out = append(out, tok)
		i += n
		textStart = i
	}
	flushText(len(s))
	return out, nil
}

func looksLikeTag(rest string) bool {
	if rest == "" {
		return false
	}
	c := rest[0]
	if c == '/' {
		return len(rest) > 1 && (isNameStart(rest[1]) || rest[1] == '>')
	}
	return c == '>' || isNameStart(c)
}

func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '-' || c == '_' || c == '.' || c == ':' || c == '$'
}

// parseTag parses one tag at the start of s and returns it with the number
// of bytes consumed.
func parseTag(s string) (jsxToken, int, error) {
	i := 1
	tok := jsxToken{kind: tokOpen}
	if s[i] == '/' {
		tok.kind = tokClose
		i++
	}
	start := i
	for i < len(s) && isNameChar(s[i]) {
		i++
	}
	tok.name = s[start:i]

	for {
		i = skipSpace(s, i)
		if i >= len(s) {
			return tok, 0, fmt.Errorf("unexpected end of input in tag <%s>", tok.name)
		}
		switch {
		case s[i] == '>':
			return tok, i + 1, nil
		case strings.HasPrefix(s[i:], "/>"):
			if tok.kind == tokClose {
				return tok, 0, fmt.Errorf("unexpected self-closing marker in closing tag </%s>", tok.name)
			}
			tok.kind = tokSelfClosing
			return tok, i + 2, nil
		case s[i] == '{':
			end, err := matchBrace(s, i)
			if err != nil {
				return tok, 0, err
			}
			tok.attrs = append(tok.attrs, Attr{Value: strings.TrimSpace(s[i+1 : end]), Expr: true})
			i = end + 1
		default:
			if tok.kind == tokClose {
				return tok, 0, fmt.Errorf("expected \">\" in closing tag </%s>", tok.name)
			}
			attr, n, err := parseAttr(s[i:])
			if err != nil {
				return tok, 0, fmt.Errorf("in tag <%s>: %w", tok.name, err)
			}
			tok.attrs = append(tok.attrs, attr)
			i += n
		}
	}
}

func parseAttr(s string) (Attr, int, error) {
	i := 0
	for i < len(s) && !unicode.IsSpace(rune(s[i])) && s[i] != '=' && s[i] != '>' && s[i] != '/' && s[i] != '{' {
		i++
	}
	if i == 0 {
		return Attr{}, 0, fmt.Errorf("expected attribute name but found %q", s[:1])
	}
	attr := Attr{Name: s[:i]}
	j := skipSpace(s, i)
	if j >= len(s) || s[j] != '=' {
		attr.Bool = true
		return attr, i, nil
	}
	j = skipSpace(s, j+1)
	if j >= len(s) {
		return attr, 0, fmt.Errorf("missing value for attribute %s", attr.Name)
	}
	switch q := s[j]; q {
	case '"', '\'':
		end := strings.IndexByte(s[j+1:], q)
		if end < 0 {
			return attr, 0, fmt.Errorf("unterminated value for attribute %s", attr.Name)
		}
		attr.Value = s[j+1 : j+1+end]
		return attr, j + 1 + end + 1, nil
	case '{':
		end, err := matchBrace(s, j)
		if err != nil {
			return attr, 0, err
		}
		attr.Value = strings.TrimSpace(s[j+1 : end])
		attr.Expr = true
		return attr, end + 1, nil
	default:
		k := j
		for k < len(s) && !unicode.IsSpace(rune(s[k])) && s[k] != '>' && !strings.HasPrefix(s[k:], "/>") {
			k++
		}
		attr.Value = s[j:k]
		return attr, k, nil
	}
}

// matchBrace returns the index of the brace closing the one at s[open],
// skipping string literals.
func matchBrace(s string, open int) (int, error) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch c := s[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '"', '\'', '`':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return 0, fmt.Errorf("unterminated string in expression")
			}
			i += end + 1
		}
	}
	return 0, fmt.Errorf("could not find the closing brace of an expression")
}

func skipSpace(s string, i int) int {
	for i < len(s) && unicode.IsSpace(rune(s[i])) {
		i++
	}
	return i
}

var (
	importStmt = regexp.MustCompile(`(?s)\bimport\s+(type\s+)?(.*?)\s*\bfrom\s*['"]`)
	exportDecl = regexp.MustCompile(`(?m)^\s*export\s+(?:default\s+)?(?:async\s+)?(?:const|let|var|function\*?|class)\s+([A-Za-z_$][\w$]*)`)
	esmStart   = regexp.MustCompile(`^(import|export)\b[\s{*'"]`)
)

// IsESM reports whether a top-level paragraph holds module statements.
func IsESM(src string) bool {
	return esmStart.MatchString(strings.TrimLeft(src, " \t"))
}

// ParseImports returns the local bindings declared by import statements in
// src, in declaration order. Type-only imports declare no runtime binding.
func ParseImports(src string) []string {
	var names []string
	for _, m := range importStmt.FindAllStringSubmatch(src, -1) {
		if m[1] != "" {
			continue
		}
		names = append(names, importClauseBindings(m[2])...)
	}
	return names
}

// ParseBindings returns ParseImports(src) followed by the names of exported
// declarations.
func ParseBindings(src string) []string {
	names := ParseImports(src)
	for _, m := range exportDecl.FindAllStringSubmatch(src, -1) {
		names = append(names, m[1])
	}
	return names
}

func importClauseBindings(clause string) []string {
	var names []string
	clause = strings.TrimSpace(clause)
	named := ""
	if open := strings.IndexByte(clause, '{'); open >= 0 {
		if closeIdx := strings.LastIndexByte(clause, '}'); closeIdx > open {
			named = clause[open+1 : closeIdx]
			clause = clause[:open] + clause[closeIdx+1:]
		}
	}
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "*"):
			if idx := strings.LastIndex(part, " as "); idx >= 0 {
				names = append(names, strings.TrimSpace(part[idx+4:]))
			}
		default:
			names = append(names, part)
		}
	}
	for _, spec := range strings.Split(named, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" || strings.HasPrefix(spec, "type ") {
			continue
		}
		if idx := strings.LastIndex(spec, " as "); idx >= 0 {
			spec = strings.TrimSpace(spec[idx+4:])
		}
		names = append(names, spec)
	}
	return names
}
