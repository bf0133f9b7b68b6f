package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mdxbuilder/internal/build"
	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	"git.home.luguber.info/inful/mdxbuilder/internal/devloop"
	"git.home.luguber.info/inful/mdxbuilder/internal/devserver"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
	"git.home.luguber.info/inful/mdxbuilder/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// DevCmd implements the 'dev' command.
type DevCmd struct {
	BuildFlags `embed:""`
	Port       int    `short:"p" name:"port" help:"Port to serve on (overrides dev.port)"`
	Host       string `name:"host" default:"localhost" help:"Interface to bind"`
}

func (d *DevCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, d.BuildFlags)
	if err != nil {
		return err
	}
	if d.Port > 0 {
		cfg.Dev.Port = d.Port
	}
	ctx, cancel := signalContext()
	defer cancel()

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	orch := build.NewOrchestrator(cfg, build.WithRecorder(recorder))
	rebuild := func(ctx context.Context) error {
		_, err := orch.Build(ctx)
		return err
	}

	// A failed first build still serves; the next change retries.
	if err := rebuild(ctx); err != nil {
		if build.IsRestart(err) {
			return err
		}
		slog.Error("Initial build failed", logfields.Error(err))
	}

	srv := devserver.New(devserver.Options{
		Root:         cfg.OutputDir(),
		Base:         cfg.Output.Base,
		Host:         d.Host,
		Port:         cfg.Dev.Port,
		PortAttempts: cfg.Dev.PortAttempts,
		Reload:       true,
		Metrics:      metrics.HTTPHandler(reg),
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			slog.Warn("Dev server shutdown error", logfields.Error(err))
		}
	}()

	watcher, err := devloop.NewWatcher(WatchRoots(cfg), cfg.OutputDir(), cfg.CacheDir())
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	loop := devloop.NewLoop(rebuild, devloop.Options{
		Debounce: time.Duration(cfg.Dev.DebounceMS) * time.Millisecond,
		Settle:   time.Duration(cfg.Dev.SettleMS) * time.Millisecond,
		Notifier: srv.Hub(),
		Recorder: recorder,
	})
	go func() { _ = watcher.Run(ctx, loop.Changed) }()

	slog.Info("Watching for changes", logfields.Count(len(watcher.WatchList())))
	return loop.Run(ctx)
}

// WatchRoots lists the source trees whose changes trigger a rebuild.
func WatchRoots(cfg *config.Config) []string {
	roots := []string{cfg.ContentDir(), cfg.PublicDir(), cfg.MarkdownComponentsDir(), filepath.Join(cfg.Root, build.TemplatesDir)}
	roots = append(roots, cfg.ComponentDirs()...)
	if cfg.CSS.Input != "" {
		roots = append(roots, filepath.Dir(cfg.Abs(cfg.CSS.Input)))
	}
	for _, s := range cfg.CSS.Sources {
		roots = append(roots, cfg.Abs(s))
	}
	return roots
}
