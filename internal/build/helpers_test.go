package build

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdxbuilder/internal/bundler"
	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	"git.home.luguber.info/inful/mdxbuilder/internal/css"
	"git.home.luguber.info/inful/mdxbuilder/internal/ssg"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newProject writes files below a temp root and loads its configuration
// with external tools disabled.
func newProject(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
	cfg, err := config.Load(root)
	require.NoError(t, err)
	cfg.Deps.Manager = "none"
	cfg.CSS.Command = css.CommandNone
	return cfg
}

var contentImport = regexp.MustCompile(`import Content from "([^"]+)";`)

// fakeBundler compiles the content module imported by each generated entry
// and writes a hashed output per entry plus one shared chunk.
type fakeBundler struct {
	mu       sync.Mutex
	requests []bundler.Request
	compiled map[string]string
}

func (f *fakeBundler) Build(_ context.Context, req bundler.Request) (*bundler.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.compiled == nil {
		f.compiled = map[string]string{}
	}

	ext := ".js"
	if req.Target == bundler.TargetServer {
		ext = ".mjs"
	}
	res := &bundler.Result{Success: true}
	for _, ep := range req.EntryPoints {
		src, err := os.ReadFile(ep)
		if err != nil {
			return nil, err
		}
		m := contentImport.FindSubmatch(src)
		if m == nil {
			res.Success = false
			res.Logs = append(res.Logs, "no content import in "+ep)
			continue
		}
		content := filepath.Join(filepath.Dir(ep), filepath.FromSlash(string(m[1])))
		data, err := os.ReadFile(content)
		if err != nil {
			res.Success = false
			res.Logs = append(res.Logs, err.Error())
			continue
		}
		js, err := req.Content.Compile(content, data)
		if err != nil {
			res.Success = false
			res.Logs = append(res.Logs, err.Error())
			continue
		}
		f.compiled[content] = js

		rel, err := filepath.Rel(req.Outbase, ep)
		if err != nil {
			return nil, err
		}
		out := filepath.Join(req.Outdir, strings.TrimSuffix(rel, filepath.Ext(rel))+"-ABCD2345"+ext)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(out, []byte(js), 0o644); err != nil {
			return nil, err
		}
		res.Outputs = append(res.Outputs, bundler.Output{Kind: bundler.OutputEntryPoint, Path: out})
	}
	res.Outputs = append(res.Outputs, bundler.Output{Kind: bundler.OutputChunk, Path: filepath.Join(req.Outdir, "chunks", "chunk-QQQQ2222"+ext)})
	return res, nil
}

func (f *fakeBundler) compiledFor(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.compiled[path]
}

func (f *fakeBundler) targets() []bundler.Target {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bundler.Target, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Target)
	}
	return out
}

// fakeRenderer returns markup naming the module it was asked to render.
func fakeRenderer() ssg.Renderer {
	return ssg.RenderFunc(func(_ context.Context, path string) (string, error) {
		return "<p>rendered " + filepath.Base(bundler.StripHash(path)) + "</p>", nil
	})
}

type fakeInstaller struct {
	calls [][]string
	dir   string
	err   error
}

func (f *fakeInstaller) Install(_ context.Context, dir, _ string, packages []string) error {
	f.calls = append(f.calls, packages)
	f.dir = dir
	return f.err
}
