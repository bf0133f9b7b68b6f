package build

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/mdxbuilder/internal/bundler"
	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	"git.home.luguber.info/inful/mdxbuilder/internal/css"
	"git.home.luguber.info/inful/mdxbuilder/internal/entry"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
	"git.home.luguber.info/inful/mdxbuilder/internal/mdx"
	"git.home.luguber.info/inful/mdxbuilder/internal/metrics"
	"git.home.luguber.info/inful/mdxbuilder/internal/preprocess"
	"git.home.luguber.info/inful/mdxbuilder/internal/retry"
	"git.home.luguber.info/inful/mdxbuilder/internal/ssg"
)

// Dirs are the working directories of a build below the cache directory.
type Dirs struct {
	Cache         string
	ClientEntries string
	ServerEntries string
	// Site receives the client bundle, the stylesheet and the HTML pages.
	Site   string
	Server string
	CSS    string
}

// DirsFor returns the working directories for cfg.
func DirsFor(cfg *config.Config) Dirs {
	cache := cfg.CacheDir()
	return Dirs{
		Cache:         cache,
		ClientEntries: filepath.Join(cache, "entries", "client"),
		ServerEntries: filepath.Join(cache, "entries", "server"),
		Site:          filepath.Join(cache, "site"),
		Server:        filepath.Join(cache, "server"),
		CSS:           filepath.Join(cache, "css"),
	}
}

// State carries the artifacts of one build between stages.
type State struct {
	Report  *Report
	Entries []*entry.PathEntry
	// Installed lists packages installed by the dependencies stage.
	Installed []string

	ClientEntries map[string]string
	ServerEntries map[string]string
	Stylesheet    string
	ClientOutputs []bundler.Output
	ServerOutputs []bundler.Output
	// Scripts maps entry names to reconciled client scripts.
	Scripts map[string]string
	// Rendered maps entry names to SSG markup.
	Rendered map[string]string
	// Pages maps entry names to generated HTML files.
	Pages map[string]string
}

// Orchestrator runs builds for one project. Builds must not overlap; the
// dev loop serializes them.
type Orchestrator struct {
	cfg       *config.Config
	dirs      Dirs
	ws        *Workspace
	bundler   bundler.Bundler
	css       css.Processor
	renderer  ssg.Renderer
	installer Installer
	recorder  metrics.Recorder
	retry     retry.Policy
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithBundler replaces the esbuild bundler.
func WithBundler(b bundler.Bundler) Option { return func(o *Orchestrator) { o.bundler = b } }

// WithCSSProcessor replaces the configured CSS processor.
func WithCSSProcessor(p css.Processor) Option { return func(o *Orchestrator) { o.css = p } }

// WithRenderer replaces the node SSG renderer.
func WithRenderer(r ssg.Renderer) Option { return func(o *Orchestrator) { o.renderer = r } }

// WithInstaller replaces the package manager installer.
func WithInstaller(i Installer) Option { return func(o *Orchestrator) { o.installer = i } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithRetryPolicy sets the policy for transient filesystem errors.
func WithRetryPolicy(p retry.Policy) Option { return func(o *Orchestrator) { o.retry = p } }

// NewOrchestrator returns an orchestrator for cfg with production
// collaborators unless overridden.
func NewOrchestrator(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		dirs:      DirsFor(cfg),
		ws:        NewWorkspace(cfg),
		bundler:   bundler.NewESBuild(),
		css:       css.New(cfg.CSS.Command, cfg.Root, cfg.CacheDir()),
		renderer:  &ssg.NodeRenderer{Dir: cfg.Root},
		installer: CommandInstaller{},
		recorder:  metrics.NoopRecorder{},
		retry:     retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the project configuration.
func (o *Orchestrator) Config() *config.Config { return o.cfg }

// Workspace returns the build-scoped caches.
func (o *Orchestrator) Workspace() *Workspace { return o.ws }

// Dirs returns the working directories.
func (o *Orchestrator) Dirs() Dirs { return o.dirs }

// Pipeline returns the stages of a build for the current configuration.
func (o *Orchestrator) Pipeline() *Pipeline {
	ssgOn := o.cfg.Build.SSG
	p := NewPipeline().
		Add(StageDependencies, o.stageDependencies).
		Add(StageReset, o.stageReset).
		Add(StageDiscoverEntries, o.stageDiscoverEntries).
		Add(StageGenerateEntries, o.stageGenerateEntries)
	group := []StageDef{{Name: StageCSS, Fn: o.stageCSS}}
	if ssgOn {
		group = append(group, StageDef{Name: StageServerBundle, Fn: o.stageServerBundle})
	}
	// The client bundle waits for CSS and the server bundle; running all
	// three together slows the client bundle through contention.
	return p.Concurrent(group...).
		Add(StageClientBundle, o.stageClientBundle).
		AddIf(ssgOn, StageServerRender, o.stageServerRender).
		Add(StageReconcile, o.stageReconcile).
		Add(StageGenerateHTML, o.stageGenerateHTML).
		Add(StageInjectFrontmatter, o.stageInjectFrontmatter).
		Add(StageLayerAssets, o.stageLayerAssets)
}

// Build runs one full build. The report is returned even on failure.
func (o *Orchestrator) Build(ctx context.Context) (*Report, error) {
	st := &State{Report: NewReport()}
	st.Report.SSG = o.cfg.Build.SSG
	st.Report.Strict = o.cfg.Build.Strict
	slog.Info("Build started", logfields.BuildID(st.Report.BuildID), slog.Bool("ssg", o.cfg.Build.SSG))

	err := o.run(ctx, st, o.Pipeline().Build())
	if IsRestart(err) {
		return st.Report, err
	}

	st.Report.finish()
	o.recorder.ObserveBuildDuration(st.Report.Duration())
	o.recorder.IncBuildOutcome(string(st.Report.Outcome))
	if perr := st.Report.Persist(o.dirs.Cache); perr != nil {
		slog.Warn("Failed to persist build report", logfields.Error(perr))
	}

	if err != nil {
		slog.Debug("Build failed", slog.String("summary", st.Report.Summary()))
		return st.Report, err
	}
	slog.Info("Build finished",
		logfields.BuildID(st.Report.BuildID),
		logfields.Count(len(st.Entries)),
		logfields.DurationMS(float64(st.Report.Duration().Milliseconds())),
		logfields.Path(o.cfg.OutputDir()))
	return st.Report, nil
}

// run executes steps in order; stages within a step run concurrently.
func (o *Orchestrator) run(ctx context.Context, st *State, steps []Step) error {
	for _, step := range steps {
		if len(step) == 1 {
			if err := o.runStage(ctx, st, step[0]); err != nil {
				return err
			}
			continue
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, def := range step {
			g.Go(func() error { return o.runStage(gctx, st, def) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// runStage times one stage and classifies its outcome.
func (o *Orchestrator) runStage(ctx context.Context, st *State, def StageDef) error {
	if err := ctx.Err(); err != nil {
		se := newCanceledStageError(def.Name, err)
		st.Report.recordStage(def.Name, 0, StageResultCanceled, se, o.recorder)
		return se
	}
	slog.Debug("Stage started", logfields.Stage(string(def.Name)))
	t0 := time.Now()
	err := def.Fn(ctx, st)
	d := time.Since(t0)

	switch {
	case err == nil || IsRestart(err):
		st.Report.recordStage(def.Name, d, StageResultSuccess, nil, o.recorder)
		slog.Debug("Stage finished", logfields.Stage(string(def.Name)), logfields.DurationMS(float64(d.Milliseconds())))
		return err
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		se := newCanceledStageError(def.Name, err)
		st.Report.recordStage(def.Name, d, StageResultCanceled, se, o.recorder)
		return se
	}

	var se *StageError
	if !errors.As(err, &se) {
		se = newFatalStageError(def.Name, err)
	}
	if se.Kind == StageErrorWarning {
		st.Report.recordStage(def.Name, d, StageResultWarning, se, o.recorder)
		slog.Warn("Stage completed with warnings", logfields.Stage(string(def.Name)), logfields.Error(se.Err))
		return nil
	}
	st.Report.recordStage(def.Name, d, StageResultFatal, se, o.recorder)
	return se
}

func (o *Orchestrator) stageDependencies(ctx context.Context, st *State) error {
	missing := MissingPackages(o.cfg)
	installed, err := EnsureDependencies(ctx, o.cfg, o.installer)
	if err != nil {
		return err
	}
	if !installed {
		return nil
	}
	st.Installed = missing
	if o.cfg.Deps.RestartAfterInstall && !Restarted() {
		return &RestartError{Installed: missing}
	}
	return nil
}

func (o *Orchestrator) stageReset(ctx context.Context, _ *State) error {
	o.ws.Invalidate()
	return ResetDirs(ctx, o.cfg.OutputDir(), o.dirs.Cache, o.retry)
}

func (o *Orchestrator) stageDiscoverEntries(_ context.Context, st *State) error {
	entries, err := o.ws.Entries()
	switch {
	case errors.Is(err, entry.ErrContentDirNotFound):
		return foundationerrors.ContentError("content directory not found").
			WithCause(err).
			WithContext("dir", o.cfg.ContentDir()).
			WithHint("create the directory or set [content] dir in " + config.FileName).
			Build()
	case errors.Is(err, entry.ErrNoEntries), err == nil && len(entries) == 0:
		return foundationerrors.ContentError("no content to build").
			WithCause(entry.ErrNoEntries).
			WithContext("dir", o.cfg.ContentDir()).
			WithHint("add a .md or .mdx file, for example index.mdx").
			Build()
	case errors.As(err, new(*foundationerrors.ClassifiedError)):
		return err
	case err != nil:
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "could not scan content").Build()
	}
	st.Entries = entries
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	st.Report.Entries = names
	o.recorder.SetEntries(len(entries))
	slog.Debug("Discovered entries", logfields.Count(len(entries)))
	return nil
}

func (o *Orchestrator) stageGenerateEntries(_ context.Context, st *State) error {
	markdown, err := o.ws.MarkdownModule()
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "could not prepare markdown components").Build()
	}
	generate := func(name, dir string) (map[string]string, error) {
		tmpl, err := loadTemplate(o.cfg.Root, name)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "invalid entry template").
				WithContext("template", name).
				Build()
		}
		files, err := GenerateEntryFiles(tmpl, st.Entries, dir, markdown)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "could not generate entry files").
				WithContext("template", name).
				Build()
		}
		return files, nil
	}
	if st.ClientEntries, err = generate(ClientTemplate, o.dirs.ClientEntries); err != nil {
		return err
	}
	if o.cfg.Build.SSG {
		if st.ServerEntries, err = generate(ServerTemplate, o.dirs.ServerEntries); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) stageCSS(ctx context.Context, st *State) error {
	sources := append(o.cfg.ComponentDirs(), o.cfg.ContentDir())
	for _, s := range o.cfg.CSS.Sources {
		sources = append(sources, o.cfg.Abs(s))
	}
	req := css.Request{
		WorkDir:   o.dirs.CSS,
		OutputDir: o.dirs.Site,
		Sources:   sources,
		Minify:    o.cfg.Build.Minify,
	}
	if o.cfg.CSS.Input != "" {
		req.Input = o.cfg.Abs(o.cfg.CSS.Input)
	}
	highlight, err := mdx.HighlightCSS(mdx.DefaultHighlightStyle)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "could not render highlight styles").Build()
	}
	req.Extra = highlight
	path, err := o.css.Compile(ctx, req)
	if err != nil {
		if foundationerrors.HasCategory(err, foundationerrors.CategoryToolchain) {
			return toolchainFailure("css compiler", nil, err)
		}
		return err
	}
	st.Stylesheet = path
	return nil
}

func (o *Orchestrator) stageServerBundle(ctx context.Context, st *State) error {
	outputs, err := o.bundle(ctx, bundler.TargetServer, st.ServerEntries, o.dirs.ServerEntries, o.dirs.Server)
	st.ServerOutputs = outputs
	return err
}

func (o *Orchestrator) stageClientBundle(ctx context.Context, st *State) error {
	outputs, err := o.bundle(ctx, bundler.TargetBrowser, st.ClientEntries, o.dirs.ClientEntries, o.dirs.Site)
	st.ClientOutputs = outputs
	return err
}

// collectingCompiler records compile failures in the collector, since the
// bundler reports plugin errors only as log text.
type collectingCompiler struct {
	compiler  *preprocess.Compiler
	collector *preprocess.Collector
}

func (c collectingCompiler) Compile(path string, src []byte) (string, error) {
	js, err := c.compiler.Compile(path, src)
	if err != nil {
		c.collector.Add(err)
	}
	return js, err
}

// bundle runs one bundling pass with a fresh preprocessor hook and polls
// the collector afterwards.
func (o *Orchestrator) bundle(ctx context.Context, target bundler.Target, generated map[string]string, outbase, outdir string) ([]bundler.Output, error) {
	points := make([]string, 0, len(generated))
	for _, p := range generated {
		points = append(points, p)
	}
	sort.Strings(points)

	opts := preprocess.DefaultOptions()
	opts.Strict = o.cfg.Build.Strict
	collector := o.ws.Collector()
	pre := preprocess.New(o.ws.Components(), collector, opts)
	compiler := collectingCompiler{compiler: preprocess.NewCompiler(pre, o.ws.SetFrontmatter), collector: collector}

	res, err := o.bundler.Build(ctx, bundler.Request{
		EntryPoints: points,
		Outdir:      outdir,
		Outbase:     outbase,
		ResolveRoot: o.cfg.Root,
		NodePaths:   NodePaths(o.cfg),
		Target:      target,
		Minify:      o.cfg.Build.Minify && target == bundler.TargetBrowser,
		Content:     compiler,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryToolchain, fmt.Sprintf("%s bundler could not run", target)).Build()
	}
	if cerr := collector.Err(); cerr != nil {
		o.recorder.IncContentErrors(collector.Len())
		return nil, cerr
	}
	if !res.Success {
		return nil, toolchainFailure(string(target)+" bundle", res.Logs, nil)
	}
	for _, line := range res.Logs {
		slog.Warn("Bundler warning", slog.String("target", string(target)), slog.String("message", line))
	}
	return res.Outputs, nil
}

func (o *Orchestrator) stageServerRender(ctx context.Context, st *State) error {
	modules, err := Reconcile(st.ServerEntries, o.dirs.ServerEntries, o.dirs.Server, st.ServerOutputs)
	if err != nil {
		return err
	}
	rendered, err := ssg.RenderAll(ctx, o.renderer, modules, 0)
	if err != nil {
		return toolchainFailure("server render", nil, err)
	}
	st.Rendered = rendered
	return nil
}

func (o *Orchestrator) stageReconcile(_ context.Context, st *State) error {
	scripts, err := Reconcile(st.ClientEntries, o.dirs.ClientEntries, o.dirs.Site, st.ClientOutputs)
	if err != nil {
		return err
	}
	st.Scripts = scripts
	return nil
}

func (o *Orchestrator) stageGenerateHTML(_ context.Context, st *State) error {
	base := o.cfg.Output.Base
	favicons := DiscoverFavicons(o.cfg.PublicDir(), base)
	stylesheet := ""
	if st.Stylesheet != "" {
		u, err := URLFor(base, o.dirs.Site, st.Stylesheet)
		if err != nil {
			return foundationerrors.InternalError("stylesheet outside site directory").WithCause(err).Build()
		}
		stylesheet = u
	}

	cssBundles := make(map[string]string)
	for _, out := range st.ClientOutputs {
		if out.Kind == bundler.OutputEntryPoint && out.CSSBundle != "" {
			cssBundles[filepath.Clean(out.Path)] = out.CSSBundle
		}
	}

	st.Pages = make(map[string]string, len(st.Entries))
	for _, e := range st.Entries {
		script, err := URLFor(base, o.dirs.Site, st.Scripts[e.Name])
		if err != nil {
			return foundationerrors.InternalError("script outside site directory").WithCause(err).WithContext("entry", e.Name).Build()
		}
		var entryStyles []string
		if bundle, ok := cssBundles[filepath.Clean(st.Scripts[e.Name])]; ok {
			u, err := URLFor(base, o.dirs.Site, bundle)
			if err != nil {
				return foundationerrors.InternalError("entry stylesheet outside site directory").WithCause(err).WithContext("entry", e.Name).Build()
			}
			entryStyles = append(entryStyles, u)
		}
		markup, rendered := st.Rendered[e.Name]
		page := Page{
			Title:            o.cfg.Site.Title,
			Stylesheet:       stylesheet,
			EntryStylesheets: entryStyles,
			Script:           script,
			// #nosec G203 - markup is produced by our own server render
			Markup: template.HTML(markup),
			SSG:    rendered,
		}
		doc, err := RenderPage(page, favicons)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "could not render page").WithContext("entry", e.Name).Build()
		}
		path := e.ArtifactPath(".html", o.dirs.Site)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "could not create page directory").Build()
		}
		if err := os.WriteFile(path, doc, 0o644); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "could not write page").WithContext("path", path).Build()
		}
		st.Pages[e.Name] = path
	}
	return nil
}

func (o *Orchestrator) stageInjectFrontmatter(_ context.Context, st *State) error {
	for _, e := range st.Entries {
		fields := e.Frontmatter()
		if len(fields) == 0 {
			continue
		}
		path := st.Pages[e.Name]
		doc, err := os.ReadFile(path)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "could not read page").WithContext("path", path).Build()
		}
		out, err := InjectFrontmatter(doc, fields)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryBuild, "could not inject metadata").WithContext("entry", e.Name).Build()
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "could not write page").WithContext("path", path).Build()
		}
	}
	return nil
}

func (o *Orchestrator) stageLayerAssets(_ context.Context, _ *State) error {
	n, err := LayerStaticAssets(o.cfg.OutputDir(), []Layer{
		{Name: "content", Dir: o.cfg.ContentDir(), Skip: skipContentSources},
		{Name: "public", Dir: o.cfg.PublicDir()},
		{Name: "site", Dir: o.dirs.Site},
	})
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "could not copy static assets").Build()
	}
	slog.Debug("Layered static assets", logfields.Count(n))
	return nil
}
