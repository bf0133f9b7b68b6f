package devloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdxbuilder/internal/metrics"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) Broadcast(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

type rebuildCounter struct {
	metrics.NoopRecorder
	n atomic.Int32
}

func (r *rebuildCounter) IncRebuild(string) { r.n.Add(1) }

func startLoop(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestLoop_BurstWithinDebounceTriggersOneRebuild(t *testing.T) {
	var builds atomic.Int32
	notifier := &recordingNotifier{}
	rec := &rebuildCounter{}
	l := NewLoop(func(context.Context) error {
		builds.Add(1)
		return nil
	}, Options{Debounce: 40 * time.Millisecond, Settle: 5 * time.Millisecond, Notifier: notifier, Recorder: rec})
	startLoop(t, l)

	l.Changed("/p/pages/index.mdx")
	time.Sleep(10 * time.Millisecond)
	l.Changed("/p/src/Counter.jsx")

	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, int32(1), rec.n.Load())
	assert.Equal(t, []string{ReloadMessage}, notifier.messages())
}

func TestLoop_ChangeDuringRebuildWaitsForCompletion(t *testing.T) {
	var (
		builds  atomic.Int32
		active  atomic.Int32
		overlap atomic.Bool
	)
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	l := NewLoop(func(context.Context) error {
		if active.Add(1) > 1 {
			overlap.Store(true)
		}
		defer active.Add(-1)
		n := builds.Add(1)
		started <- struct{}{}
		if n == 1 {
			<-release
		}
		return nil
	}, Options{Debounce: 20 * time.Millisecond, Settle: 10 * time.Millisecond})
	startLoop(t, l)

	l.Changed("/p/pages/a.mdx")
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first rebuild did not start")
	}

	l.Changed("/p/pages/b.mdx")
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load(), "no second rebuild while the first is running")

	close(release)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("collected change did not trigger a follow-up rebuild")
	}
	assert.Equal(t, int32(2), builds.Load())
	assert.False(t, overlap.Load())
}

func TestLoop_FailedRebuildDoesNotReload(t *testing.T) {
	var builds atomic.Int32
	notifier := &recordingNotifier{}
	l := NewLoop(func(context.Context) error {
		builds.Add(1)
		return errors.New("boom")
	}, Options{Debounce: 10 * time.Millisecond, Notifier: notifier})
	startLoop(t, l)

	l.Changed("/p/pages/index.mdx")
	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, notifier.messages())
}

func TestLoop_RunReturnsOnCancel(t *testing.T) {
	l := NewLoop(func(context.Context) error { return nil }, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoop_DrainIsSortedAndClears(t *testing.T) {
	l := NewLoop(func(context.Context) error { return nil }, Options{})
	l.Changed("/b")
	l.Changed("/a")
	l.Changed("/b")
	assert.Equal(t, []string{"/a", "/b"}, l.drain())
	assert.Empty(t, l.drain())
}
