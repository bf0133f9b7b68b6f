package devloop

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
	"git.home.luguber.info/inful/mdxbuilder/internal/metrics"
)

const (
	// ReloadMessage is broadcast to connected clients after a successful rebuild.
	ReloadMessage = "reload"

	DefaultDebounce = 150 * time.Millisecond
	DefaultSettle   = 100 * time.Millisecond
)

// BuildFunc runs one full build.
type BuildFunc func(ctx context.Context) error

// Notifier delivers messages to connected browsers.
type Notifier interface {
	Broadcast(msg string)
}

// Options configures a Loop.
type Options struct {
	Debounce time.Duration
	Settle   time.Duration
	Notifier Notifier
	Recorder metrics.Recorder
}

// Loop coalesces change notifications into serialized rebuilds.
type Loop struct {
	build    BuildFunc
	notifier Notifier
	recorder metrics.Recorder
	debounce time.Duration
	settle   time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
	signal  chan struct{}
}

// NewLoop returns a loop that calls build for every settled burst of changes.
func NewLoop(build BuildFunc, opts Options) *Loop {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Loop{
		build:    build,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		debounce: opts.Debounce,
		settle:   opts.Settle,
		pending:  make(map[string]struct{}),
		signal:   make(chan struct{}, 1),
	}
}

// Changed records a change to path. It never blocks; changes that arrive
// while a rebuild runs are kept for the next one.
func (l *Loop) Changed(path string) {
	l.mu.Lock()
	l.pending[path] = struct{}{}
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Run processes changes until ctx is done. Rebuilds run on the calling
// goroutine, one at a time.
func (l *Loop) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.signal:
			// A newer change replaces the queued rebuild.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(l.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			changed := l.drain()
			if len(changed) == 0 {
				continue
			}
			l.rebuild(ctx, changed)
			if !sleepCtx(ctx, l.settle) {
				return nil
			}
		}
	}
}

func (l *Loop) drain() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.pending))
	for p := range l.pending {
		out = append(out, p)
	}
	clear(l.pending)
	sort.Strings(out)
	return out
}

func (l *Loop) rebuild(ctx context.Context, changed []string) {
	start := time.Now()
	slog.Info("Change detected; rebuilding", logfields.Count(len(changed)), logfields.Path(changed[0]))
	l.recorder.IncRebuild("change")

	err := l.build(ctx)
	ms := float64(time.Since(start).Milliseconds())
	if err != nil {
		slog.Warn("Rebuild failed", logfields.DurationMS(ms), logfields.Error(err))
		return
	}
	slog.Info("Rebuild complete", logfields.DurationMS(ms))
	if l.notifier != nil {
		l.notifier.Broadcast(ReloadMessage)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
