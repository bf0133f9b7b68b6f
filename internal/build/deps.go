package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// RestartEnv marks a process started by Restart.
const RestartEnv = "MDXBUILDER_RESTARTED"

// workspacePackageJSON seeds the cache directory as an installable package.
const workspacePackageJSON = `{
  "name": "mdxbuilder-workspace",
  "private": true,
  "type": "module"
}
`

// Installer installs packages into dir with a package manager.
type Installer interface {
	Install(ctx context.Context, dir, manager string, packages []string) error
}

// CommandInstaller runs the package manager executable.
type CommandInstaller struct{}

// installArgs returns the add command of each supported manager.
func installArgs(manager string, packages []string) ([]string, error) {
	var args []string
	switch manager {
	case "npm":
		args = []string{"install", "--no-audit", "--no-fund", "--save"}
	case "pnpm", "yarn", "bun":
		args = []string{"add"}
	default:
		return nil, fmt.Errorf("unsupported package manager %q", manager)
	}
	return append(args, packages...), nil
}

func (CommandInstaller) Install(ctx context.Context, dir, manager string, packages []string) error {
	args, err := installArgs(manager, packages)
	if err != nil {
		return err
	}
	// #nosec G204 - manager is validated configuration
	cmd := exec.CommandContext(ctx, manager, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	slog.Info("Installing dependencies", slog.String("manager", manager), slog.Any("packages", packages), logfields.Path(dir))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w\n%s", manager, strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return nil
}

// packageName strips a version or tag from an install spec:
// "react@18" is "react", "@scope/pkg@1" is "@scope/pkg".
func packageName(spec string) string {
	at := strings.LastIndex(spec, "@")
	if at > 0 {
		return spec[:at]
	}
	return spec
}

// PackageRoots returns the directories whose node_modules satisfy imports,
// in lookup order: the project root, then the cache workspace.
func PackageRoots(cfg *config.Config) []string {
	return []string{cfg.Root, cfg.CacheDir()}
}

// NodePaths returns the node_modules directories handed to the bundler.
func NodePaths(cfg *config.Config) []string {
	roots := PackageRoots(cfg)
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		out = append(out, filepath.Join(r, "node_modules"))
	}
	return out
}

// MissingPackages returns the configured packages not installed in any
// package root.
func MissingPackages(cfg *config.Config) []string {
	var missing []string
	for _, spec := range cfg.Deps.Packages {
		name := packageName(spec)
		found := false
		for _, root := range PackageRoots(cfg) {
			if _, err := os.Stat(filepath.Join(root, "node_modules", filepath.FromSlash(name), "package.json")); err == nil {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, spec)
		}
	}
	return missing
}

// EnsureDependencies installs missing packages into the cache workspace and
// reports whether an install ran.
func EnsureDependencies(ctx context.Context, cfg *config.Config, inst Installer) (bool, error) {
	if cfg.Deps.Manager == "none" {
		return false, nil
	}
	missing := MissingPackages(cfg)
	if len(missing) == 0 {
		return false, nil
	}

	dir := cfg.CacheDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create dependency workspace").
			WithContext("path", dir).Build()
	}
	pkgJSON := filepath.Join(dir, "package.json")
	if _, err := os.Stat(pkgJSON); os.IsNotExist(err) {
		if err := os.WriteFile(pkgJSON, []byte(workspacePackageJSON), 0o644); err != nil {
			return false, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write workspace package.json").
				WithContext("path", pkgJSON).Build()
		}
	}

	if err := inst.Install(ctx, dir, cfg.Deps.Manager, missing); err != nil {
		return false, foundationerrors.ToolchainError("dependency install failed").
			WithCause(err).
			WithContext("manager", cfg.Deps.Manager).
			WithContext("packages", missing).
			WithHint(fmt.Sprintf("check that %s is installed and the registry is reachable, or install the packages yourself", cfg.Deps.Manager)).
			Build()
	}
	return true, nil
}

// RestartError asks the caller to re-execute the process after a dependency
// install.
type RestartError struct {
	Installed []string
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("restart required after installing %s", strings.Join(e.Installed, ", "))
}

// IsRestart reports whether err requests a restart.
func IsRestart(err error) bool {
	var re *RestartError
	return errors.As(err, &re)
}

// Restarted reports whether this process was started by Restart.
func Restarted() bool { return os.Getenv(RestartEnv) != "" }

// Restart re-executes the current binary with the same arguments, waits for
// it and returns its exit code.
func Restart(ctx context.Context) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 1, foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "locate executable").Build()
	}
	// #nosec G204 - re-executing ourselves
	cmd := exec.CommandContext(ctx, exe, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), RestartEnv+"=1")
	slog.Info("Restarting after dependency install")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "restart failed").Build()
	}
	return 0, nil
}
