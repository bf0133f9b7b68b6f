package devserver

import (
	"bytes"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// staticExtensions are final-segment extensions served as files rather
// than as directory routes.
var staticExtensions = map[string]bool{
	".html": true, ".htm": true, ".js": true, ".mjs": true, ".css": true, ".map": true,
	".json": true, ".txt": true, ".xml": true, ".webmanifest": true, ".pdf": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".ico": true,
	".webp": true, ".avif": true, ".mp4": true, ".webm": true, ".mp3": true, ".wasm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
}

// IsStaticPath reports whether the final segment of urlPath carries a
// known static-file extension.
func IsStaticPath(urlPath string) bool {
	return staticExtensions[strings.ToLower(path.Ext(path.Base(urlPath)))]
}

// ResolvePath maps a request path below root to a file. Extensionless
// paths resolve to the index.html of the matching directory.
func ResolvePath(root, base, urlPath string) (string, bool) {
	p := path.Clean("/" + urlPath)
	if base != "" && base != "/" {
		trimmed := strings.TrimSuffix(base, "/")
		switch {
		case p == trimmed:
			p = "/"
		case strings.HasPrefix(p, trimmed+"/"):
			p = strings.TrimPrefix(p, trimmed)
		default:
			return "", false
		}
	}
	if !IsStaticPath(p) {
		p = path.Join(p, "index.html")
	}
	return filepath.Join(root, filepath.FromSlash(p)), true
}

type staticHandler struct {
	root   string
	base   string
	inject bool
}

func (h staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	file, ok := ResolvePath(h.root, h.base, r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	st, err := os.Stat(file)
	if err != nil || st.IsDir() {
		http.NotFound(w, r)
		return
	}

	if strings.EqualFold(filepath.Ext(file), ".html") || strings.EqualFold(filepath.Ext(file), ".htm") {
		h.serveHTML(w, r, file, st.ModTime())
		return
	}

	f, err := os.Open(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, filepath.Base(file), st.ModTime(), f)
}

func (h staticHandler) serveHTML(w http.ResponseWriter, r *http.Request, file string, mod time.Time) {
	data, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}
	if h.inject {
		data = InjectReloadScript(data)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, filepath.Base(file), mod, bytes.NewReader(data))
}

// InjectReloadScript inserts the reload client before the closing body
// tag, or appends it when the document has none.
func InjectReloadScript(doc []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(doc), []byte("</body>"))
	if idx < 0 {
		return append(append([]byte{}, doc...), ReloadScript...)
	}
	out := make([]byte, 0, len(doc)+len(ReloadScript))
	out = append(out, doc[:idx]...)
	out = append(out, ReloadScript...)
	return append(out, doc[idx:]...)
}
