package config

import "strings"

// Default values for a conventional project layout.
const (
	DefaultContentDir      = "pages"
	DefaultPublicDir       = "public"
	DefaultComponentsDir   = "src"
	DefaultMarkdownDir     = "src/markdown"
	DefaultOutputDir       = "dist"
	DefaultCacheDir        = ".mdxbuilder"
	DefaultBasePath        = "/"
	DefaultCSSCommand      = "tailwindcss"
	DefaultPackageManager  = "npm"
	DefaultDevPort         = 3000
	DefaultDevPortAttempts = 10
	DefaultDebounceMS      = 150
	DefaultSettleMS        = 100
)

// DefaultPackages are installed into the cache workspace when absent.
var DefaultPackages = []string{"react", "react-dom"}

// Default returns a configuration populated with defaults. Decoding a file
// on top of it only overrides the keys the file defines.
func Default() *Config {
	cfg := &Config{}
	cfg.Build.Minify = true
	_ = ApplyDefaults(cfg)
	return cfg
}

// defaultApplier fills zero values for one configuration section.
type defaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Section() string
}

type contentDefaults struct{}

func (contentDefaults) Section() string { return "content" }

func (contentDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Content.Dir == "" {
		cfg.Content.Dir = DefaultContentDir
	}
	if cfg.Content.Public == "" {
		cfg.Content.Public = DefaultPublicDir
	}
	if len(cfg.Components.Dirs) == 0 {
		cfg.Components.Dirs = []string{DefaultComponentsDir}
	}
	if cfg.Components.Markdown == "" {
		cfg.Components.Markdown = DefaultMarkdownDir
	}
	return nil
}

type outputDefaults struct{}

func (outputDefaults) Section() string { return "output" }

func (outputDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.Cache == "" {
		cfg.Output.Cache = DefaultCacheDir
	}
	cfg.Output.Base = NormalizeBase(cfg.Output.Base)
	return nil
}

type toolchainDefaults struct{}

func (toolchainDefaults) Section() string { return "toolchain" }

func (toolchainDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.CSS.Command == "" {
		cfg.CSS.Command = DefaultCSSCommand
	}
	if cfg.Deps.Manager == "" {
		cfg.Deps.Manager = DefaultPackageManager
	}
	if cfg.Deps.Packages == nil {
		cfg.Deps.Packages = append([]string(nil), DefaultPackages...)
	}
	return nil
}

type devDefaults struct{}

func (devDefaults) Section() string { return "dev" }

func (devDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Dev.Port == 0 {
		cfg.Dev.Port = DefaultDevPort
	}
	if cfg.Dev.PortAttempts == 0 {
		cfg.Dev.PortAttempts = DefaultDevPortAttempts
	}
	if cfg.Dev.DebounceMS == 0 {
		cfg.Dev.DebounceMS = DefaultDebounceMS
	}
	if cfg.Dev.SettleMS == 0 {
		cfg.Dev.SettleMS = DefaultSettleMS
	}
	return nil
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) error {
	appliers := []defaultApplier{
		contentDefaults{},
		outputDefaults{},
		toolchainDefaults{},
		devDefaults{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeBase returns base with exactly one leading and one trailing slash.
func NormalizeBase(base string) string {
	base = strings.Trim(strings.TrimSpace(base), "/")
	if base == "" {
		return "/"
	}
	return "/" + base + "/"
}
