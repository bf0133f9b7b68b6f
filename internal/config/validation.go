package config

import (
	"fmt"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

// Validate checks a configuration after defaults have been applied.
func Validate(cfg *Config) error {
	v := &configurationValidator{cfg: cfg}
	return v.validate()
}

type configurationValidator struct {
	cfg *Config
}

func (v *configurationValidator) validate() error {
	checks := []func() error{
		v.validateDirectories,
		v.validateDev,
		v.validateDeps,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (v *configurationValidator) validateDirectories() error {
	out := v.cfg.OutputDir()
	if out == v.cfg.Root {
		return invalid("output.dir", v.cfg.Output.Dir, "output directory must not be the project root")
	}
	for _, src := range append([]string{v.cfg.ContentDir(), v.cfg.PublicDir()}, v.cfg.ComponentDirs()...) {
		if src == out || isWithin(out, src) {
			return invalid("output.dir", v.cfg.Output.Dir, fmt.Sprintf("output directory must not contain source directory %s", src))
		}
	}
	if v.cfg.CacheDir() == v.cfg.Root {
		return invalid("output.cache", v.cfg.Output.Cache, "cache directory must not be the project root")
	}
	if v.cfg.CacheDir() == out {
		return invalid("output.cache", v.cfg.Output.Cache, "cache directory must differ from the output directory")
	}
	return nil
}

func (v *configurationValidator) validateDev() error {
	if v.cfg.Dev.Port < 0 || v.cfg.Dev.Port > 65535 {
		return invalid("dev.port", fmt.Sprint(v.cfg.Dev.Port), "port must be between 0 and 65535")
	}
	if v.cfg.Dev.PortAttempts < 1 {
		return invalid("dev.port_attempts", fmt.Sprint(v.cfg.Dev.PortAttempts), "at least one bind attempt is required")
	}
	if v.cfg.Dev.DebounceMS < 0 || v.cfg.Dev.SettleMS < 0 {
		return invalid("dev", fmt.Sprintf("debounce_ms=%d settle_ms=%d", v.cfg.Dev.DebounceMS, v.cfg.Dev.SettleMS), "durations must not be negative")
	}
	return nil
}

func (v *configurationValidator) validateDeps() error {
	switch v.cfg.Deps.Manager {
	case "npm", "pnpm", "yarn", "bun", "none":
		return nil
	default:
		return invalid("deps.manager", v.cfg.Deps.Manager, "unsupported package manager (use npm, pnpm, yarn, bun or none)")
	}
}

func invalid(field, value, msg string) error {
	return foundationerrors.ValidationError(msg).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

// isWithin reports whether path lies inside dir.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
