package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// ContentFilter matches the sources handled by the content plugin.
const ContentFilter = `\.mdx?$`

// ESBuild bundles with the esbuild Go API in-process.
type ESBuild struct{}

// NewESBuild returns an esbuild-backed Bundler.
func NewESBuild() *ESBuild { return &ESBuild{} }

// assetLoaders copies referenced static files next to the bundle.
var assetLoaders = map[string]api.Loader{
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".webp":  api.LoaderFile,
	".avif":  api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".json":  api.LoaderJSON,
}

// Options returns the esbuild options for req.
func (b *ESBuild) Options(req Request) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:   req.EntryPoints,
		Outdir:        req.Outdir,
		Outbase:       req.Outbase,
		AbsWorkingDir: req.ResolveRoot,
		NodePaths:     req.NodePaths,
		Bundle:        true,
		Write:         true,
		Metafile:      true,
		Format:        api.FormatESModule,
		EntryNames:    "[dir]/[name]-[hash]",
		ChunkNames:    "chunks/[name]-[hash]",
		AssetNames:    "assets/[name]-[hash]",
		JSX:           api.JSXAutomatic,
		LogLevel:      api.LogLevelSilent,
		Loader:        assetLoaders,
		Define:        map[string]string{"process.env.NODE_ENV": `"production"`},
	}
	if req.Minify {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}
	switch req.Target {
	case TargetServer:
		opts.Platform = api.PlatformNode
		opts.Target = api.ES2022
		opts.OutExtension = map[string]string{".js": ".mjs"}
	default:
		opts.Platform = api.PlatformBrowser
		opts.Target = api.ES2020
		opts.Splitting = true
	}
	if req.Content != nil {
		opts.Plugins = []api.Plugin{ContentPlugin(req.Content)}
	}
	return opts
}

// Build runs one bundling pass.
func (b *ESBuild) Build(ctx context.Context, req Request) (*Result, error) {
	if len(req.EntryPoints) == 0 {
		return &Result{Success: true}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.Outdir, 0o755); err != nil {
		return nil, fmt.Errorf("create bundle output dir: %w", err)
	}

	start := time.Now()
	built := api.Build(b.Options(req))

	res := &Result{Success: len(built.Errors) == 0}
	res.Logs = append(res.Logs, api.FormatMessages(built.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})...)
	res.Logs = append(res.Logs, api.FormatMessages(built.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage})...)

	if built.Metafile != "" {
		meta, err := ParseMetafile(built.Metafile)
		if err != nil {
			return nil, fmt.Errorf("parse esbuild metafile: %w", err)
		}
		res.Outputs = meta.Classify(req.ResolveRoot)
	}

	slog.Debug("Bundled",
		slog.String("target", string(req.Target)),
		logfields.Count(len(req.EntryPoints)),
		slog.Int("outputs", len(res.Outputs)),
		slog.Bool("success", res.Success),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return res, nil
}

// ContentPlugin loads .md and .mdx files through compiler and hands the
// resulting module to esbuild's JSX loader.
func ContentPlugin(compiler ContentCompiler) api.Plugin {
	return api.Plugin{
		Name: "mdxbuilder-content",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: ContentFilter}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				js, err := compiler.Compile(args.Path, src)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				return api.OnLoadResult{
					Contents:   &js,
					ResolveDir: filepath.Dir(args.Path),
					Loader:     api.LoaderJSX,
				}, nil
			})
		},
	}
}
