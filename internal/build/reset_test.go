package build

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdxbuilder/internal/retry"
)

func TestResetDirs(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "dist")
	cache := filepath.Join(root, ".cache")
	writeFile(t, filepath.Join(out, "old.html"), "x")
	writeFile(t, filepath.Join(cache, "site", "old.js"), "x")
	writeFile(t, filepath.Join(cache, "node_modules", "react", "package.json"), "{}")
	writeFile(t, filepath.Join(cache, "package.json"), "{}")

	policy := retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 1)
	require.NoError(t, ResetDirs(context.Background(), out, cache, policy))

	assert.DirExists(t, out)
	assert.NoFileExists(t, filepath.Join(out, "old.html"))
	assert.NoDirExists(t, filepath.Join(cache, "site"))
	assert.FileExists(t, filepath.Join(cache, "node_modules", "react", "package.json"))
	assert.FileExists(t, filepath.Join(cache, "package.json"))
}

func TestResetDirs_CreatesMissing(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "a", "dist")
	cache := filepath.Join(root, "b", "cache")
	require.NoError(t, ResetDirs(context.Background(), out, cache, retry.DefaultPolicy()))
	assert.DirExists(t, out)
	assert.DirExists(t, cache)
}
