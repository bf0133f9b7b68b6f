package scaffold

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdxbuilder/internal/build"
	"git.home.luguber.info/inful/mdxbuilder/internal/config"
	"git.home.luguber.info/inful/mdxbuilder/internal/entry"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

func TestCreate_EmbeddedStarter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-site")

	created, err := Create(context.Background(), dir, CreateOptions{})
	require.NoError(t, err)
	assert.Contains(t, created, filepath.Join("pages", "index.mdx"))
	assert.Contains(t, created, filepath.Join("src", "Counter.jsx"))
	assert.Contains(t, created, ".gitignore")
	assert.Contains(t, created, config.FileName)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "my-site", cfg.Site.Title)

	entries, err := entry.Discover(cfg.ContentDir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"index", "about/index"}, names)
}

func TestCreate_RefusesNonEmptyDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644))

	_, err := Create(context.Background(), dir, CreateOptions{})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))

	_, err = Create(context.Background(), dir, CreateOptions{Force: true})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "keep.txt"))
	assert.FileExists(t, filepath.Join(dir, "pages", "index.mdx"))
}

func TestCreate_FromGitRepository(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "pages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pages", "index.mdx"), []byte("# Starter\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("pages/index.mdx")
	require.NoError(t, err)
	_, err = wt.Commit("starter", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "cloned")
	created, err := Create(context.Background(), dst, CreateOptions{From: src})
	require.NoError(t, err)
	assert.Equal(t, []string{config.FileName}, created)
	assert.FileExists(t, filepath.Join(dst, "pages", "index.mdx"))
	assert.NoDirExists(t, filepath.Join(dst, ".git"))
}

func TestCreate_CloneFailure(t *testing.T) {
	_, err := Create(context.Background(), filepath.Join(t.TempDir(), "x"), CreateOptions{From: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryRuntime))
}

func TestEjectAndRevert(t *testing.T) {
	root := t.TempDir()

	written, err := Eject(root, false)
	require.NoError(t, err)
	require.Len(t, written, len(build.TemplateNames()))
	for _, name := range build.TemplateNames() {
		got, err := os.ReadFile(filepath.Join(root, build.TemplatesDir, name))
		require.NoError(t, err)
		want, err := build.EmbeddedTemplate(name)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}

	custom := filepath.Join(root, build.TemplatesDir, build.ClientTemplate)
	require.NoError(t, os.WriteFile(custom, []byte("custom"), 0o644))
	written, err = Eject(root, false)
	require.NoError(t, err)
	assert.Empty(t, written)
	got, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(got))

	removed, err := Revert(root)
	require.NoError(t, err)
	assert.Len(t, removed, len(build.TemplateNames()))
	assert.NoDirExists(t, filepath.Join(root, build.TemplatesDir))

	removed, err = Revert(root)
	require.NoError(t, err)
	assert.Empty(t, removed)
}
