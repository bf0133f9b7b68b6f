package build

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"git.home.luguber.info/inful/mdxbuilder/internal/entry"
	"git.home.luguber.info/inful/mdxbuilder/internal/preprocess"
)

// Entry template names. A project overrides one by placing a file with the
// same name in its templates directory.
const (
	ClientTemplate = "client_entry.tsx.tmpl"
	ServerTemplate = "server_entry.tsx.tmpl"
	// TemplatesDir is the project directory holding template overrides.
	TemplatesDir = "templates"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateNames lists the entry templates.
func TemplateNames() []string { return []string{ClientTemplate, ServerTemplate} }

// EmbeddedTemplate returns the built-in source of the named template.
func EmbeddedTemplate(name string) ([]byte, error) {
	return templateFS.ReadFile("templates/" + name)
}

// EntryData is the template input. Both paths are relative to the
// generated file's directory.
type EntryData struct {
	Content  string
	Markdown string
}

var templateFuncs = template.FuncMap{
	"quote": func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	},
}

// loadTemplate parses the project override of name when present, otherwise
// the embedded template.
func loadTemplate(projectRoot, name string) (*template.Template, error) {
	src, err := os.ReadFile(filepath.Join(projectRoot, TemplatesDir, name))
	if os.IsNotExist(err) {
		src, err = EmbeddedTemplate(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	t, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return t, nil
}

// GenerateEntryFiles renders tmpl once per entry into dir and returns the
// generated paths keyed by entry name. Generated files mirror entry names:
// "about/index" becomes dir/about/index.tsx.
func GenerateEntryFiles(tmpl *template.Template, entries []*entry.PathEntry, dir, markdownModule string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		path := filepath.Join(dir, filepath.FromSlash(e.Name)+".tsx")
		data := EntryData{
			Content:  preprocess.ImportPath(path, e.SourcePath),
			Markdown: preprocess.ImportPath(path, markdownModule),
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s for %s: %w", tmpl.Name(), e.Name, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, err
		}
		out[e.Name] = path
	}
	return out, nil
}
