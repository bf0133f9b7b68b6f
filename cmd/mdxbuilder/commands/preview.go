package commands

import (
	"context"
	"os"

	"git.home.luguber.info/inful/mdxbuilder/internal/devserver"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// PreviewCmd serves an existing output directory without a watcher or reload.
type PreviewCmd struct {
	Out  string `short:"o" name:"out" help:"Output directory to serve (overrides output.dir)"`
	Base string `name:"base" help:"URL base path the site was built for"`
	Port int    `short:"p" name:"port" help:"Port to serve on (overrides dev.port)"`
	Host string `name:"host" default:"localhost" help:"Interface to bind"`
}

func (p *PreviewCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root, BuildFlags{Out: p.Out, Base: p.Base})
	if err != nil {
		return err
	}
	if p.Port > 0 {
		cfg.Dev.Port = p.Port
	}
	dir := cfg.OutputDir()
	if st, statErr := os.Stat(dir); statErr != nil || !st.IsDir() {
		return foundationerrors.ValidationError("output directory does not exist").
			WithContext("path", dir).
			WithHint("run 'mdxbuilder build' first").
			Build()
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := devserver.New(devserver.Options{
		Root:         dir,
		Base:         cfg.Output.Base,
		Host:         p.Host,
		Port:         cfg.Dev.Port,
		PortAttempts: cfg.Dev.PortAttempts,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	return srv.Shutdown(sctx)
}
