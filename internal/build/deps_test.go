package build

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
)

func TestPackageName(t *testing.T) {
	assert.Equal(t, "react", packageName("react"))
	assert.Equal(t, "react", packageName("react@18.3.1"))
	assert.Equal(t, "@scope/pkg", packageName("@scope/pkg"))
	assert.Equal(t, "@scope/pkg", packageName("@scope/pkg@next"))
}

func TestInstallArgs(t *testing.T) {
	args, err := installArgs("npm", []string{"react"})
	require.NoError(t, err)
	assert.Equal(t, []string{"install", "--no-audit", "--no-fund", "--save", "react"}, args)

	args, err = installArgs("pnpm", []string{"react"})
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "react"}, args)

	_, err = installArgs("cargo", nil)
	require.Error(t, err)
}

func TestEnsureDependencies(t *testing.T) {
	cfg := newProject(t, map[string]string{
		"node_modules/react/package.json": "{}",
	})
	cfg.Deps.Manager = "npm"
	cfg.Deps.Packages = []string{"react", "react-dom@18"}
	inst := &fakeInstaller{}

	installed, err := EnsureDependencies(context.Background(), cfg, inst)
	require.NoError(t, err)
	assert.True(t, installed)
	assert.Equal(t, [][]string{{"react-dom@18"}}, inst.calls)
	assert.Equal(t, cfg.CacheDir(), inst.dir)
	assert.FileExists(t, filepath.Join(cfg.CacheDir(), "package.json"))
}

func TestEnsureDependencies_SatisfiedFromCache(t *testing.T) {
	cfg := newProject(t, map[string]string{
		".mdxbuilder/node_modules/react/package.json":     "{}",
		".mdxbuilder/node_modules/react-dom/package.json": "{}",
	})
	cfg.Deps.Manager = "npm"
	inst := &fakeInstaller{}
	installed, err := EnsureDependencies(context.Background(), cfg, inst)
	require.NoError(t, err)
	assert.False(t, installed)
	assert.Empty(t, inst.calls)
}

func TestEnsureDependencies_ManagerNone(t *testing.T) {
	cfg := newProject(t, nil)
	inst := &fakeInstaller{}
	installed, err := EnsureDependencies(context.Background(), cfg, inst)
	require.NoError(t, err)
	assert.False(t, installed)
	assert.Empty(t, inst.calls)
}

func TestEnsureDependencies_InstallFailure(t *testing.T) {
	cfg := newProject(t, nil)
	cfg.Deps.Manager = "npm"
	_, err := EnsureDependencies(context.Background(), cfg, &fakeInstaller{err: errors.New("registry down")})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryToolchain))
}

func TestRestartError(t *testing.T) {
	err := error(&RestartError{Installed: []string{"react"}})
	assert.True(t, IsRestart(err))
	assert.True(t, IsRestart(newFatalStageError(StageDependencies, err)))
	assert.False(t, IsRestart(errors.New("x")))
	assert.Contains(t, err.Error(), "react")
}
