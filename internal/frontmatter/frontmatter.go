// Package frontmatter splits and decodes the metadata block at the top of a
// content file. YAML (`---`) and TOML (`+++`) blocks are supported.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies the frontmatter syntax.
type Format int

const (
	FormatNone Format = iota
	FormatYAML
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return "none"
	}
}

// ErrMissingClosingDelimiter indicates the document started with a
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("frontmatter start delimiter found but closing delimiter is missing")

// Split separates frontmatter from the body. If the document does not start
// with a delimiter, the format is FormatNone and body is the full input.
func Split(content []byte) (frontmatter []byte, body []byte, format Format, err error) {
	nl := detectNewline(content)

	for _, candidate := range []struct {
		delim  string
		format Format
	}{{"---", FormatYAML}, {"+++", FormatTOML}} {
		open := []byte(candidate.delim + nl)
		if !bytes.HasPrefix(content, open) {
			continue
		}

		start := len(open)
		if bytes.HasPrefix(content[start:], open) {
			return []byte{}, content[start+len(open):], candidate.format, nil
		}

		closeSeq := []byte(nl + candidate.delim + nl)
		idx := bytes.Index(content[start:], closeSeq)
		if idx < 0 {
			// A closing delimiter on the final line without a newline.
			tail := []byte(nl + candidate.delim)
			if bytes.HasSuffix(content, tail) {
				end := len(content) - len(tail)
				return content[start : end+len(nl)], []byte{}, candidate.format, nil
			}
			return nil, nil, FormatNone, ErrMissingClosingDelimiter
		}
		end := start + idx + len(nl)
		return content[start:end], content[start+idx+len(closeSeq):], candidate.format, nil
	}
	return nil, content, FormatNone, nil
}

// Parse decodes raw frontmatter into a map with JSON-compatible values.
func Parse(raw []byte, format Format) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields, nil
	}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("parse yaml frontmatter: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(raw), &fields); err != nil {
			return nil, fmt.Errorf("parse toml frontmatter: %w", err)
		}
	case FormatNone:
		return fields, nil
	}
	if fields == nil {
		return map[string]any{}, nil
	}
	normalized, _ := normalize(fields).(map[string]any)
	return normalized, nil
}

// Extract splits and parses in one step.
func Extract(content []byte) (fields map[string]any, body []byte, err error) {
	raw, body, format, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	fields, err = Parse(raw, format)
	if err != nil {
		return nil, nil, err
	}
	return fields, body, nil
}

// normalize converts decoder-specific values into types encoding/json handles.
func normalize(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalize(item)
		}
		return out
	case time.Time:
		if vv.Hour() == 0 && vv.Minute() == 0 && vv.Second() == 0 && vv.Nanosecond() == 0 {
			return vv.Format(time.DateOnly)
		}
		return vv.Format(time.RFC3339)
	default:
		return v
	}
}

// String returns the value of key as a string, formatting scalars.
func String(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", false
	}
	switch vv := v.(type) {
	case string:
		return vv, vv != ""
	case bool, int, int64, float64:
		return fmt.Sprint(vv), true
	default:
		return "", false
	}
}

// Strings returns the value of key as a list of strings. A single string is
// split on commas.
func Strings(fields map[string]any, key string) []string {
	switch vv := fields[key].(type) {
	case string:
		var out []string
		for _, part := range bytes.Split([]byte(vv), []byte(",")) {
			if s := string(bytes.TrimSpace(part)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	default:
		return nil
	}
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
