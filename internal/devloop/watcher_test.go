package devloop

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pathSink struct {
	mu    sync.Mutex
	paths []string
}

func (s *pathSink) add(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, p)
}

func (s *pathSink) has(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, got := range s.paths {
		if got == p {
			return true
		}
	}
	return false
}

func (s *pathSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

func TestShouldIgnoreFile(t *testing.T) {
	cases := map[string]bool{
		"/p/pages/index.mdx":      false,
		"/p/pages/.index.mdx.swp": true,
		"/p/pages/index.mdx~":     true,
		"/p/pages/#index.mdx#":    true,
		"/p/pages/.DS_Store":      true,
		"/p/src/Counter.jsx":      false,
	}
	for path, want := range cases {
		assert.Equal(t, want, shouldIgnoreFile(path), path)
	}
}

func TestDedupeRoots(t *testing.T) {
	got := dedupeRoots([]string{"/p/pages/blog", "", "/p/src", "/p/pages", "/p/src/"})
	assert.ElementsMatch(t, []string{"/p/pages", "/p/src"}, got)
}

func TestNewWatcher_SkipsIgnoredAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"pages/blog", "dist", ".mdxbuilder", "node_modules/react"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}

	w, err := NewWatcher([]string{root}, filepath.Join(root, "dist"))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	list := w.WatchList()
	assert.Contains(t, list, filepath.Join(root, "pages", "blog"))
	assert.NotContains(t, list, filepath.Join(root, "dist"))
	assert.NotContains(t, list, filepath.Join(root, ".mdxbuilder"))
	assert.NotContains(t, list, filepath.Join(root, "node_modules"))
}

func TestNewWatcher_NoExistingRoots(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}

func TestWatcher_ReportsChangesInNewDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher([]string{root})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	sink := &pathSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx, sink.add) }()

	page := filepath.Join(root, "index.mdx")
	require.NoError(t, os.WriteFile(page, []byte("# Hi\n"), 0o644))
	require.Eventually(t, func() bool { return sink.has(page) }, 2*time.Second, 10*time.Millisecond)

	sub := filepath.Join(root, "blog")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return sink.has(sub) }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, d := range w.WatchList() {
			if d == sub {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	post := filepath.Join(sub, "post.mdx")
	require.NoError(t, os.WriteFile(post, []byte("# Post\n"), 0o644))
	require.Eventually(t, func() bool { return sink.has(post) }, 2*time.Second, 10*time.Millisecond)

	before := sink.len()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, sink.len())
}
