package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/retry"
)

// preservedCacheEntries survive a cache reset so installed packages are not
// reinstalled on every build.
var preservedCacheEntries = map[string]bool{
	"node_modules":        true,
	"package.json":        true,
	"package-lock.json":   true,
	"pnpm-lock.yaml":      true,
	"yarn.lock":           true,
	"bun.lockb":           true,
	"bun.lock":            true,
	"npm-shrinkwrap.json": true,
}

// isTransientFSError reports errors worth retrying during a reset.
func isTransientFSError(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ENOTEMPTY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, os.ErrPermission)
}

// clearDir removes dir's children except those named in keep and ensures
// dir exists.
func clearDir(dir string, keep map[string]bool) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dir, 0o755)
		}
		return err
	}
	for _, c := range children {
		if keep[c.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, c.Name())); err != nil {
			return err
		}
	}
	return nil
}

// ResetDirs clears the output directory and the cache directory, keeping
// installed packages in the cache. Transient failures are retried with
// policy.
func ResetDirs(ctx context.Context, outputDir, cacheDir string, policy retry.Policy) error {
	for _, target := range []struct {
		dir  string
		keep map[string]bool
	}{
		{outputDir, nil},
		{cacheDir, preservedCacheEntries},
	} {
		err := policy.Do(ctx, func() error { return clearDir(target.dir, target.keep) }, isTransientFSError)
		if err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, fmt.Sprintf("could not clear %s", target.dir)).
				WithContext("path", target.dir).
				WithHint("close programs holding files in the directory and retry").
				Build()
		}
	}
	return nil
}
