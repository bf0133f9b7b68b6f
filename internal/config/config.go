package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// FileName is the project configuration file looked up in the project root.
const FileName = "mdxbuilder.toml"

// Config represents a project configuration.
type Config struct {
	Content    ContentConfig    `toml:"content"`
	Components ComponentsConfig `toml:"components"`
	Output     OutputConfig     `toml:"output"`
	Build      BuildConfig      `toml:"build"`
	CSS        CSSConfig        `toml:"css"`
	Deps       DepsConfig       `toml:"deps"`
	Dev        DevConfig        `toml:"dev"`
	Site       SiteConfig       `toml:"site"`

	// Root is the absolute project root; every relative path resolves against it.
	Root string `toml:"-"`
}

// ContentConfig locates the Markdown/MDX content tree.
type ContentConfig struct {
	Dir    string `toml:"dir"`
	Public string `toml:"public"`
}

// ComponentsConfig lists the directories scanned for auto-importable components.
type ComponentsConfig struct {
	Dirs     []string `toml:"dirs"`
	Markdown string   `toml:"markdown"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Dir   string `toml:"dir"`
	Cache string `toml:"cache"`
	Base  string `toml:"base"`
}

// BuildConfig toggles build modes.
type BuildConfig struct {
	SSG    bool `toml:"ssg"`
	Strict bool `toml:"strict"`
	Minify bool `toml:"minify"`
}

// CSSConfig configures the utility-class CSS processor.
type CSSConfig struct {
	Input   string   `toml:"input"`
	Command string   `toml:"command"`
	Sources []string `toml:"sources"`
}

// DepsConfig configures third-party package installation.
type DepsConfig struct {
	Manager             string   `toml:"manager"`
	Packages            []string `toml:"packages"`
	RestartAfterInstall bool     `toml:"restart_after_install"`
}

// DevConfig configures the development server and rebuild loop.
type DevConfig struct {
	Port         int `toml:"port"`
	PortAttempts int `toml:"port_attempts"`
	DebounceMS   int `toml:"debounce_ms"`
	SettleMS     int `toml:"settle_ms"`
}

// SiteConfig carries site-wide metadata used as fallbacks in generated HTML.
type SiteConfig struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	URL         string `toml:"url"`
}

// Load reads the configuration for the project rooted at dir. A missing
// configuration file is not an error: defaults describe a conventional layout.
func Load(dir string) (*Config, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "resolve project root").
			WithContext("path", dir).Build()
	}

	if err := loadEnvFile(root); err != nil {
		return nil, err
	}

	cfg := Default()
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse configuration").
				WithContext("file", path).
				Fatal().
				Build()
		}
	case os.IsNotExist(err):
		slog.Debug("No configuration file, using defaults", "path", path)
	default:
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read configuration").
			WithContext("file", path).
			Fatal().
			Build()
	}

	cfg.Root = root
	if err := ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write serializes cfg as TOML into dir/mdxbuilder.toml.
func Write(dir string, cfg *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write configuration").
			WithContext("file", path).
			Build()
	}
	return nil
}

// Abs resolves p against the project root.
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// ContentDir returns the absolute content root.
func (c *Config) ContentDir() string { return c.Abs(c.Content.Dir) }

// PublicDir returns the absolute public/static asset directory.
func (c *Config) PublicDir() string { return c.Abs(c.Content.Public) }

// OutputDir returns the absolute output directory.
func (c *Config) OutputDir() string { return c.Abs(c.Output.Dir) }

// CacheDir returns the absolute build cache directory.
func (c *Config) CacheDir() string { return c.Abs(c.Output.Cache) }

// ComponentDirs returns the absolute general component directories in priority order.
func (c *Config) ComponentDirs() []string {
	out := make([]string, 0, len(c.Components.Dirs))
	for _, d := range c.Components.Dirs {
		out = append(out, c.Abs(d))
	}
	return out
}

// MarkdownComponentsDir returns the absolute markdown component override directory.
func (c *Config) MarkdownComponentsDir() string { return c.Abs(c.Components.Markdown) }
