package scaffold

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/mdxbuilder/internal/build"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// Eject copies the embedded entry templates into the project's templates
// directory so they can be customized. Existing overrides are kept unless
// force is set.
func Eject(projectRoot string, force bool) ([]string, error) {
	dir := filepath.Join(projectRoot, build.TemplatesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create templates directory").
			WithContext("path", dir).Build()
	}

	var written []string
	for _, name := range build.TemplateNames() {
		dst := filepath.Join(dir, name)
		if _, err := os.Stat(dst); err == nil && !force {
			slog.Info("Template override exists, skipping", logfields.Path(dst))
			continue
		}
		src, err := build.EmbeddedTemplate(name)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(dst, src, 0o644); err != nil {
			return written, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write template").
				WithContext("path", dst).Build()
		}
		written = append(written, dst)
	}
	return written, nil
}

// Revert removes template overrides so builds use the embedded templates
// again. The templates directory is removed when it ends up empty.
func Revert(projectRoot string) ([]string, error) {
	dir := filepath.Join(projectRoot, build.TemplatesDir)
	var removed []string
	for _, name := range build.TemplateNames() {
		p := filepath.Join(dir, name)
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = append(removed, p)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return removed, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to remove template").
				WithContext("path", p).Build()
		}
	}
	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
	return removed, nil
}
