package build

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdxbuilder/internal/bundler"
	"git.home.luguber.info/inful/mdxbuilder/internal/entry"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/ssg"
)

func sampleSite() map[string]string {
	return map[string]string{
		"pages/index.mdx":       "---\ntitle: Home\n---\n\n# Welcome\n\n<Counter />\n",
		"pages/about/index.mdx": "# About\n",
		"pages/images/logo.png": "png",
		"src/Counter.jsx":       "export default function Counter() { return null; }\n",
		"public/robots.txt":     "User-agent: *\n",
	}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	cfg := newProject(t, sampleSite())
	fb := &fakeBundler{}
	o := NewOrchestrator(cfg, WithBundler(fb))

	report, err := o.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, []string{"about/index", "index"}, report.Entries)

	out := cfg.OutputDir()
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "about", "index.html"))
	assert.FileExists(t, filepath.Join(out, "index-ABCD2345.js"))
	assert.FileExists(t, filepath.Join(out, "images", "logo.png"))
	assert.FileExists(t, filepath.Join(out, "robots.txt"))
	assert.NoFileExists(t, filepath.Join(out, "index.mdx"))

	js := fb.compiledFor(filepath.Join(cfg.Root, "pages", "index.mdx"))
	assert.Contains(t, js, `import Counter from "../src/Counter.jsx";`)

	page, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	html := string(page)
	assert.Contains(t, html, `<div id="mdx"></div>`)
	assert.Contains(t, html, `<script type="module" src="/index-ABCD2345.js"></script>`)
	assert.Contains(t, html, `<link rel="stylesheet" href="/styles-`)
	assert.Contains(t, html, "<title>Home</title>")
	assert.NotContains(t, html, SSGMarker)

	assert.Equal(t, []bundler.Target{bundler.TargetBrowser}, fb.targets())
	assert.FileExists(t, filepath.Join(cfg.CacheDir(), ReportFile))

	sheets, err := filepath.Glob(filepath.Join(out, "styles-*.css"))
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	styles, err := os.ReadFile(sheets[0])
	require.NoError(t, err)
	assert.Contains(t, string(styles), ".chroma")
}

func TestOrchestrator_LinksEntryCSS(t *testing.T) {
	cfg := newProject(t, sampleSite())
	fb := &fakeBundler{}
	b := bundlerFunc(func(ctx context.Context, req bundler.Request) (*bundler.Result, error) {
		res, err := fb.Build(ctx, req)
		if err != nil || req.Target != bundler.TargetBrowser {
			return res, err
		}
		for i, o := range res.Outputs {
			if o.Kind != bundler.OutputEntryPoint || bundler.StripHash(o.Path) != filepath.Join(req.Outdir, "index") {
				continue
			}
			sheet := strings.TrimSuffix(o.Path, ".js") + ".css"
			if err := os.WriteFile(sheet, []byte(".counter{}"), 0o644); err != nil {
				return nil, err
			}
			res.Outputs[i].CSSBundle = sheet
			res.Outputs = append(res.Outputs, bundler.Output{Kind: bundler.OutputAsset, Path: sheet})
		}
		return res, nil
	})

	_, err := NewOrchestrator(cfg, WithBundler(b)).Build(context.Background())
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(cfg.OutputDir(), "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `<link rel="stylesheet" href="/index-ABCD2345.css">`)
	assert.FileExists(t, filepath.Join(cfg.OutputDir(), "index-ABCD2345.css"))

	about, err := os.ReadFile(filepath.Join(cfg.OutputDir(), "about", "index.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(about), "index-ABCD2345.css")
}

func TestOrchestrator_SSG(t *testing.T) {
	cfg := newProject(t, sampleSite())
	cfg.Build.SSG = true
	fb := &fakeBundler{}
	o := NewOrchestrator(cfg, WithBundler(fb), WithRenderer(fakeRenderer()))

	_, err := o.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []bundler.Target{bundler.TargetServer, bundler.TargetBrowser}, fb.targets())
	page, err := os.ReadFile(filepath.Join(cfg.OutputDir(), "about", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<div id="mdx"><p>rendered index</p></div>`)
	assert.Contains(t, string(page), "window."+SSGMarker+" = true;")
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir(), "index-ABCD2345.mjs"))
}

func TestOrchestrator_SSGRenderFailureExplained(t *testing.T) {
	cfg := newProject(t, sampleSite())
	cfg.Build.SSG = true
	r := ssg.RenderFunc(func(_ context.Context, path string) (string, error) {
		return "", foundationerrors.ToolchainError("server render failed").
			WithCause(errors.New("exit status 1")).
			WithContext("module", path).
			WithContext("output", "ReferenceError: window is not defined").
			Build()
	})

	_, err := NewOrchestrator(cfg, WithBundler(&fakeBundler{}), WithRenderer(r)).Build(context.Background())
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageServerRender, se.Stage)

	ce, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, foundationerrors.CategoryToolchain, ce.Category())
	assert.Contains(t, ce.Message(), "browser-only global")
	assert.NotEmpty(t, ce.Hint())
	output, _ := ce.Context().GetString("output")
	assert.Contains(t, output, "window is not defined")
}

func TestOrchestrator_AmbiguousComponentFailsBuild(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"pages/index.mdx":  "<Button />\n",
		"pages/Button.jsx": "export default function Button() {}\n",
		"src/Button.jsx":   "export default function Button() {}\n",
	})
	fb := &fakeBundler{}
	o := NewOrchestrator(cfg, WithBundler(fb))

	report, err := o.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryContent))
	assert.Contains(t, err.Error(), "Button")
	assert.Contains(t, err.Error(), filepath.Join(cfg.Root, "pages", "index.mdx"))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageClientBundle, se.Stage)

	js := fb.compiledFor(filepath.Join(cfg.Root, "pages", "index.mdx"))
	assert.NotContains(t, js, "import Button")
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir(), "index.html"))
}

func TestOrchestrator_NoEntries(t *testing.T) {
	cfg := newProject(t, map[string]string{"pages/readme.txt": "x"})
	_, err := NewOrchestrator(cfg, WithBundler(&fakeBundler{})).Build(context.Background())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryContent))

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDiscoverEntries, se.Stage)
}

func TestOrchestrator_RouteConflict(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"pages/about.mdx":       "# About\n",
		"pages/about/index.mdx": "# About too\n",
	})
	_, err := NewOrchestrator(cfg, WithBundler(&fakeBundler{})).Build(context.Background())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryContent))
	assert.ErrorIs(t, err, entry.ErrRouteConflict)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDiscoverEntries, se.Stage)
}

func TestOrchestrator_MissingContentDir(t *testing.T) {
	cfg := newProject(t, map[string]string{"src/A.jsx": ""})
	_, err := NewOrchestrator(cfg, WithBundler(&fakeBundler{})).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content directory not found")
}

func TestOrchestrator_RebuildPicksUpNewContent(t *testing.T) {
	cfg := newProject(t, sampleSite())
	o := NewOrchestrator(cfg, WithBundler(&fakeBundler{}))
	_, err := o.Build(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(cfg.ContentDir(), "blog.md"), "# Blog\n")
	report, err := o.Build(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Entries, "blog")
	assert.FileExists(t, filepath.Join(cfg.OutputDir(), "blog", "index.html"))
}

func TestOrchestrator_BundlerFailureExplained(t *testing.T) {
	cfg := newProject(t, sampleSite())
	b := bundlerFunc(func(context.Context, bundler.Request) (*bundler.Result, error) {
		return &bundler.Result{Logs: []string{`✘ [ERROR] Could not resolve "react/jsx-runtime"`}}, nil
	})
	_, err := NewOrchestrator(cfg, WithBundler(b)).Build(context.Background())
	require.Error(t, err)

	ce, ok := foundationerrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, foundationerrors.CategoryToolchain, ce.Category())
	assert.Contains(t, ce.Message(), "React could not be found")
	assert.NotEmpty(t, ce.Hint())
}

func TestOrchestrator_StrictModeSkipsInjection(t *testing.T) {
	cfg := newProject(t, sampleSite())
	cfg.Build.Strict = true
	fb := &fakeBundler{}
	_, err := NewOrchestrator(cfg, WithBundler(fb)).Build(context.Background())
	require.NoError(t, err)

	js := fb.compiledFor(filepath.Join(cfg.Root, "pages", "index.mdx"))
	assert.NotContains(t, js, "import Counter")
	assert.NotContains(t, js, "import Layout")
}

func TestOrchestrator_RestartAfterInstall(t *testing.T) {
	t.Setenv(RestartEnv, "")
	cfg := newProject(t, sampleSite())
	cfg.Deps.Manager = "npm"
	cfg.Deps.RestartAfterInstall = true
	inst := &fakeInstaller{}

	_, err := NewOrchestrator(cfg, WithBundler(&fakeBundler{}), WithInstaller(inst)).Build(context.Background())
	require.Error(t, err)
	assert.True(t, IsRestart(err))
	require.Len(t, inst.calls, 1)
	assert.Equal(t, []string{"react", "react-dom"}, inst.calls[0])
}

func TestOrchestrator_Canceled(t *testing.T) {
	cfg := newProject(t, sampleSite())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewOrchestrator(cfg, WithBundler(&fakeBundler{})).Build(ctx)
	require.Error(t, err)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
}

func TestOrchestrator_PipelineOrder(t *testing.T) {
	cfg := newProject(t, nil)
	cfg.Build.SSG = true
	names := NewOrchestrator(cfg).Pipeline().Names()
	assert.Equal(t, []StageName{
		StageDependencies, StageReset, StageDiscoverEntries, StageGenerateEntries,
		StageCSS, StageServerBundle, StageClientBundle, StageServerRender,
		StageReconcile, StageGenerateHTML, StageInjectFrontmatter, StageLayerAssets,
	}, names)

	steps := NewOrchestrator(cfg).Pipeline().Build()
	require.Len(t, steps[4], 2)

	cfg.Build.SSG = false
	assert.NotContains(t, NewOrchestrator(cfg).Pipeline().Names(), StageServerRender)
}

func TestReportPersist(t *testing.T) {
	cfg := newProject(t, sampleSite())
	report, err := NewOrchestrator(cfg, WithBundler(&fakeBundler{})).Build(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cfg.CacheDir(), ReportFile))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.BuildID, decoded["build_id"])
	assert.Equal(t, "success", decoded["outcome"])
	assert.Contains(t, decoded["stage_results"], string(StageClientBundle))
}

type bundlerFunc func(context.Context, bundler.Request) (*bundler.Result, error)

func (f bundlerFunc) Build(ctx context.Context, req bundler.Request) (*bundler.Result, error) {
	return f(ctx, req)
}
