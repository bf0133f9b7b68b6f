// Package css compiles the site stylesheet.
package css

import (
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed default.css
var defaultStylesheet []byte

// DefaultStylesheet returns the stylesheet used when the project has none.
func DefaultStylesheet() []byte { return append([]byte(nil), defaultStylesheet...) }

// Request describes one stylesheet compilation.
type Request struct {
	// Input is the project stylesheet. Empty selects DefaultStylesheet.
	Input string
	// WorkDir holds intermediate files.
	WorkDir string
	// OutputDir receives the hashed stylesheet.
	OutputDir string
	// Sources are extra directories scanned for utility classes.
	Sources []string
	// Extra is appended to the stylesheet before compilation.
	Extra  []byte
	Minify bool
}

// Processor compiles a stylesheet and returns the path of the hashed output.
type Processor interface {
	Compile(ctx context.Context, req Request) (string, error)
}

// HashLength is the number of hex characters in a hashed stylesheet name.
const HashLength = 8

// HashRename moves path into dir as styles-<hash>.css, where hash is derived
// from the file content.
func HashRename(path, dir string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read stylesheet: %w", err)
	}
	sum := sha256.Sum256(data)
	name := fmt.Sprintf("styles-%s.css", hex.EncodeToString(sum[:])[:HashLength])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create stylesheet dir: %w", err)
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(path, dst); err != nil {
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return "", fmt.Errorf("write hashed stylesheet: %w", err)
		}
		_ = os.Remove(path)
	}
	return dst, nil
}

// InjectSources adds an @source directive per directory after the leading
// @import rules of css. Paths are written relative to base, the directory
// of the stylesheet that will be compiled.
func InjectSources(css []byte, dirs []string, base string) []byte {
	if len(dirs) == 0 {
		return css
	}
	var directives strings.Builder
	for _, dir := range dirs {
		rel := dir
		if r, err := filepath.Rel(base, dir); err == nil {
			rel = r
		}
		fmt.Fprintf(&directives, "@source %q;\n", filepath.ToSlash(rel))
	}

	lines := strings.SplitAfter(string(css), "\n")
	at := 0
scan:
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "@import"), strings.HasPrefix(trimmed, "@charset"):
			at = i + 1
		case trimmed == "", strings.HasPrefix(trimmed, "/*"):
		default:
			break scan
		}
	}

	var out strings.Builder
	for _, line := range lines[:at] {
		out.WriteString(line)
	}
	if at > 0 && !strings.HasSuffix(lines[at-1], "\n") {
		out.WriteString("\n")
	}
	out.WriteString(directives.String())
	for _, line := range lines[at:] {
		out.WriteString(line)
	}
	return []byte(out.String())
}

// prepareInput writes the source-injected stylesheet into the work dir.
// @source paths are relative to the written file.
func prepareInput(req Request) (string, error) {
	src := defaultStylesheet
	if req.Input != "" {
		data, err := os.ReadFile(req.Input)
		if err != nil {
			return "", fmt.Errorf("read stylesheet input: %w", err)
		}
		src = data
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("create css work dir: %w", err)
	}
	path := filepath.Join(req.WorkDir, "input.css")
	out := InjectSources(src, req.Sources, req.WorkDir)
	if len(req.Extra) > 0 {
		out = append(append(bytes.TrimRight(out, "\n"), "\n\n"...), req.Extra...)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("write stylesheet input: %w", err)
	}
	return path, nil
}
