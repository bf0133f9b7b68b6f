package css

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// CommandNone disables the CSS compiler; the stylesheet is copied as is.
const CommandNone = "none"

// Tailwind runs the Tailwind CLI as a subprocess.
type Tailwind struct {
	// Command is the executable, optionally followed by leading arguments
	// ("npx @tailwindcss/cli").
	Command string
	// ProjectRoot is the working directory of the CLI.
	ProjectRoot string
	// PackageRoots are searched for node_modules/.bin before PATH. The
	// project root is always searched first.
	PackageRoots []string
}

// New returns the processor for command.
func New(command, projectRoot string, packageRoots ...string) Processor {
	if command == CommandNone {
		return Passthrough{}
	}
	return &Tailwind{Command: command, ProjectRoot: projectRoot, PackageRoots: packageRoots}
}

// argv resolves the executable and leading arguments.
func (t *Tailwind) argv() (string, []string, error) {
	fields := strings.Fields(t.Command)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty css command")
	}
	name, args := fields[0], fields[1:]
	if !strings.ContainsRune(name, filepath.Separator) {
		for _, root := range append([]string{t.ProjectRoot}, t.PackageRoots...) {
			if root == "" {
				continue
			}
			local := filepath.Join(root, "node_modules", ".bin", name)
			if info, err := os.Stat(local); err == nil && !info.IsDir() {
				return local, args, nil
			}
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", nil, err
	}
	return path, args, nil
}

// Compile injects sources, runs the CLI and hash-renames the result.
func (t *Tailwind) Compile(ctx context.Context, req Request) (string, error) {
	input, err := prepareInput(req)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "prepare stylesheet").Build()
	}
	bin, args, err := t.argv()
	if err != nil {
		return "", errors.ToolchainError("css compiler not found").
			WithCause(err).
			WithContext("command", t.Command).
			WithHint("install tailwindcss (npm install -D tailwindcss @tailwindcss/cli) or set [css] command = \"none\"").
			Build()
	}

	output := filepath.Join(req.WorkDir, "styles.css")
	args = append(args, "-i", input, "-o", output)
	if req.Minify {
		args = append(args, "--minify")
	}

	// #nosec G204 - command comes from project configuration
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = t.ProjectRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	slog.Debug("Running css compiler", slog.String("command", bin), slog.Any("args", args))
	if err := cmd.Run(); err != nil {
		out := strings.TrimSpace(stderr.String())
		if out == "" {
			out = strings.TrimSpace(stdout.String())
		}
		return "", errors.ToolchainError("css compiler failed").
			WithCause(err).
			WithContext("command", t.Command).
			WithContext("output", out).
			Build()
	}
	slog.Debug("CSS compiled", logfields.Path(output), logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	hashed, err := HashRename(output, req.OutputDir)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "hash stylesheet").Build()
	}
	return hashed, nil
}

// Passthrough copies the stylesheet without compiling it.
type Passthrough struct{}

func (Passthrough) Compile(_ context.Context, req Request) (string, error) {
	input, err := prepareInput(Request{Input: req.Input, WorkDir: req.WorkDir, Extra: req.Extra})
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "prepare stylesheet").Build()
	}
	output := filepath.Join(req.WorkDir, "styles.css")
	if err := os.Rename(input, output); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "stage stylesheet").Build()
	}
	hashed, err := HashRename(output, req.OutputDir)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "hash stylesheet").Build()
	}
	return hashed, nil
}
