package scaffold

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

//go:embed starter
var starterFS embed.FS

const starterRoot = "starter"

// renamed maps embedded names to their on-disk names. Dotfiles cannot be
// embedded without the all: prefix.
var renamed = map[string]string{
	"gitignore": ".gitignore",
}

// CreateOptions configures Create.
type CreateOptions struct {
	// From clones a starter repository instead of writing the embedded starter.
	From   string
	Branch string
	// Depth limits clone history; zero clones everything.
	Depth int
	Force bool
}

// Create writes a new project into dir and returns the files it created.
func Create(ctx context.Context, dir string, opts CreateOptions) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "resolve project directory").Build()
	}
	if !opts.Force {
		if err := ensureEmpty(abs); err != nil {
			return nil, err
		}
	}

	if opts.From != "" {
		if err := cloneStarter(ctx, abs, opts); err != nil {
			return nil, err
		}
		return ensureConfig(abs)
	}

	created, err := writeStarter(abs, opts.Force)
	if err != nil {
		return nil, err
	}
	cfgFiles, err := ensureConfig(abs)
	if err != nil {
		return nil, err
	}
	created = append(created, cfgFiles...)
	slog.Info("Project created", logfields.Path(abs), logfields.Count(len(created)))
	return created, nil
}

func ensureEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to read project directory").
			WithContext("path", dir).Build()
	case len(entries) > 0:
		return foundationerrors.ValidationError("project directory is not empty").
			WithContext("path", dir).
			WithHint("choose a new directory or pass --force").
			Build()
	}
	return nil
}

func writeStarter(dir string, force bool) ([]string, error) {
	var created []string
	err := fs.WalkDir(starterFS, starterRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(starterRoot, filepath.FromSlash(p))
		if name, ok := renamed[path.Base(p)]; ok {
			rel = filepath.Join(filepath.Dir(rel), name)
		}
		dst := filepath.Join(dir, rel)
		if !force {
			if _, statErr := os.Stat(dst); statErr == nil {
				return nil
			}
		}
		data, err := starterFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
		created = append(created, rel)
		return nil
	})
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write starter project").
			WithContext("path", dir).Build()
	}
	return created, nil
}

// ensureConfig writes a default configuration unless the project has one.
func ensureConfig(dir string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return nil, nil
	}
	cfg := config.Default()
	cfg.Site.Title = filepath.Base(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create project directory").
			WithContext("path", dir).Build()
	}
	if err := config.Write(dir, cfg); err != nil {
		return nil, err
	}
	return []string{config.FileName}, nil
}

func cloneStarter(ctx context.Context, dir string, opts CreateOptions) error {
	slog.Info("Cloning starter", slog.String("url", opts.From), logfields.Path(dir))
	cloneOpts := &git.CloneOptions{URL: opts.From, Depth: opts.Depth}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
		cloneOpts.SingleBranch = true
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, cloneOpts); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryRuntime, "failed to clone starter").
			WithContext("url", opts.From).
			WithHint("check the repository URL and that it is reachable").
			Build()
	}
	// The new project starts its own history.
	if err := os.RemoveAll(filepath.Join(dir, ".git")); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to detach starter history").
			WithContext("path", dir).Build()
	}
	return nil
}
