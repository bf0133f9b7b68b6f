package build

import (
	"bytes"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SSGMarker is the global set on pages whose markup was pre-rendered; the
// client entry hydrates instead of rendering when it is true.
const SSGMarker = "__MDXBUILDER_SSG__"

// Favicon is a discovered icon file in the public directory.
type Favicon struct {
	Rel  string
	Type string
	Href string
}

// faviconFiles lists the icon files looked up, in tag order.
var faviconFiles = []struct {
	name, rel, typ string
}{
	{"favicon.ico", "icon", "image/x-icon"},
	{"favicon.svg", "icon", "image/svg+xml"},
	{"favicon.png", "icon", "image/png"},
	{"apple-touch-icon.png", "apple-touch-icon", ""},
}

// DiscoverFavicons returns the icons present in publicDir.
func DiscoverFavicons(publicDir, base string) []Favicon {
	var out []Favicon
	for _, f := range faviconFiles {
		if _, err := os.Stat(filepath.Join(publicDir, f.name)); err == nil {
			out = append(out, Favicon{Rel: f.rel, Type: f.typ, Href: base + f.name})
		}
	}
	return out
}

// Page is the input of the document template.
type Page struct {
	Title      string
	Stylesheet string
	// EntryStylesheets hold CSS imported by the entry's components.
	EntryStylesheets []string
	Script           string
	// Markup is the pre-rendered content; empty without SSG.
	Markup template.HTML
	SSG    bool
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{- if .Title }}
<title>{{ .Title }}</title>
{{- end }}
{{- if .Stylesheet }}
<link rel="stylesheet" href="{{ .Stylesheet }}">
{{- end }}
{{- range .EntryStylesheets }}
<link rel="stylesheet" href="{{ . }}">
{{- end }}
</head>
<body>
<div id="mdx">{{ .Markup }}</div>
{{- if .SSG }}
<script>window.` + SSGMarker + ` = true;</script>
{{- end }}
<script type="module" src="{{ .Script }}"></script>
</body>
</html>
`))

// RenderPage renders the HTML document for one entry with favicon links
// added to the head.
func RenderPage(p Page, favicons []Favicon) ([]byte, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, p); err != nil {
		return nil, err
	}
	if len(favicons) == 0 {
		return buf.Bytes(), nil
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		return nil, err
	}
	head := findElement(doc, atom.Head)
	for _, f := range favicons {
		attrs := []html.Attribute{{Key: "rel", Val: f.Rel}, {Key: "href", Val: f.Href}}
		if f.Type != "" {
			attrs = append(attrs, html.Attribute{Key: "type", Val: f.Type})
		}
		appendHeadElement(head, atom.Link, attrs)
	}
	return renderDocument(doc)
}

// URLFor returns the site URL of file below root, prefixed with base.
func URLFor(base, root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	return path.Join(base, filepath.ToSlash(rel)), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func appendHeadElement(head *html.Node, a atom.Atom, attrs []html.Attribute) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
	head.AppendChild(n)
	return n
}

func renderDocument(doc *html.Node) ([]byte, error) {
	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(out.String(), "\n") {
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}
