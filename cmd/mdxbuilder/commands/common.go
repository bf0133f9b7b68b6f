package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "MDXBUILDER_LOG_LEVEL"

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" name:"config" help:"Project directory or path to mdxbuilder.toml" default:"."`
	Verbose bool             `short:"v" help:"Enable verbose logging and full error output"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build the site into the output directory"`
	Dev      DevCmd      `cmd:"" help:"Build, serve and rebuild on change with live reload"`
	Preview  PreviewCmd  `cmd:"" help:"Serve an existing build without watching"`
	Create   CreateCmd   `cmd:"" help:"Create a new project"`
	Template TemplateCmd `cmd:"" help:"Manage entry template overrides"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return nil
}

// parseLogLevel honours --verbose first, then MDXBUILDER_LOG_LEVEL.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(LogLevelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ProjectRoot resolves --config to the project directory.
func (c *CLI) ProjectRoot() string {
	p := c.Config
	if p == "" {
		p = "."
	}
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return filepath.Dir(p)
	}
	return p
}

// BuildFlags are the overrides shared by build and dev.
type BuildFlags struct {
	SSG    bool   `name:"ssg" xor:"ssg" help:"Pre-render pages on the server"`
	NoSSG  bool   `name:"no-ssg" xor:"ssg" help:"Disable server pre-rendering"`
	Out    string `short:"o" name:"out" help:"Output directory (overrides output.dir)"`
	Base   string `name:"base" help:"URL base path the site is served under"`
	Strict bool   `name:"strict" help:"Disable layout wrapping and automatic component imports"`
}

// apply layers the flags over cfg and revalidates.
func (f BuildFlags) apply(cfg *config.Config) error {
	switch {
	case f.SSG:
		cfg.Build.SSG = true
	case f.NoSSG:
		cfg.Build.SSG = false
	}
	if f.Out != "" {
		abs, err := filepath.Abs(f.Out)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "invalid --out").Build()
		}
		cfg.Output.Dir = abs
	}
	if f.Base != "" {
		cfg.Output.Base = config.NormalizeBase(f.Base)
	}
	if f.Strict {
		cfg.Build.Strict = true
	}
	return config.Validate(cfg)
}

// loadConfig reads the project configuration and applies flag overrides.
func loadConfig(root *CLI, flags BuildFlags) (*config.Config, error) {
	cfg, err := config.Load(root.ProjectRoot())
	if err != nil {
		return nil, err
	}
	if err := flags.apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
