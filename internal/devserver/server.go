package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/logfields"
)

// MetricsPath exposes the metrics handler when one is configured.
const MetricsPath = "/__mdxbuilder/metrics"

// Options configures a Server.
type Options struct {
	// Root is the directory served.
	Root string
	// Base is the URL prefix the site was built for.
	Base string
	Host string
	Port int
	// PortAttempts bounds how many consecutive ports are tried.
	PortAttempts int
	// Reload enables the websocket endpoint and script injection.
	Reload  bool
	Metrics http.Handler
}

// Server is a static file server over a build output directory.
type Server struct {
	opts Options
	hub  *ReloadHub

	mu   sync.Mutex
	srv  *http.Server
	addr net.Addr
}

// New returns a server for opts. The reload hub exists only when Reload is set.
func New(opts Options) *Server {
	if opts.PortAttempts <= 0 {
		opts.PortAttempts = 1
	}
	s := &Server{opts: opts}
	if opts.Reload {
		s.hub = NewReloadHub()
	}
	return s
}

// Hub returns the reload hub, or nil in preview mode.
func (s *Server) Hub() *ReloadHub { return s.hub }

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	if s.hub != nil {
		r.Handle(ReloadPath, s.hub).Methods(http.MethodGet)
	}
	if s.opts.Metrics != nil {
		r.Handle(MetricsPath, s.opts.Metrics).Methods(http.MethodGet)
	}
	r.PathPrefix("/").Handler(staticHandler{
		root:   s.opts.Root,
		base:   s.opts.Base,
		inject: s.hub != nil,
	}).Methods(http.MethodGet)
	return withAccessLog(r)
}

// Start binds the first free port starting at Port and serves in the
// background until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := listen(ctx, s.opts.Host, s.opts.Port, s.opts.PortAttempts)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Dev server error", logfields.Error(err))
		}
	}()
	slog.Info("Serving", logfields.Path(s.opts.Root), logfields.Port(s.Port()), slog.String("url", s.URL()))
	return nil
}

// Port returns the bound port, or zero before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tcp, ok := s.addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// URL returns the base URL of the running server.
func (s *Server) URL() string {
	host := s.opts.Host
	if host == "" {
		host = "localhost"
	}
	base := s.opts.Base
	if base == "" {
		base = "/"
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(host, fmt.Sprint(s.Port())), base)
}

// Shutdown closes reload clients and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func listen(ctx context.Context, host string, port, attempts int) (net.Listener, error) {
	var lc net.ListenConfig
	var lastErr error
	for i := range attempts {
		p := port + i
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, fmt.Sprint(p)))
		if err == nil {
			if i > 0 {
				slog.Warn("Port in use, using next free port", logfields.Port(p), slog.Int("requested", port))
			}
			return ln, nil
		}
		lastErr = err
		if !errors.Is(err, syscall.EADDRINUSE) {
			break
		}
	}
	return nil, foundationerrors.RuntimeError("failed to bind dev server").
		WithCause(lastErr).
		WithContext("port", port).
		WithContext("attempts", attempts).
		WithHint("pick another port with --port").
		Build()
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		slog.Debug("HTTP request",
			slog.String("method", r.Method),
			logfields.Path(r.URL.Path),
			slog.Int("status", m.Code),
			logfields.DurationMS(float64(m.Duration.Microseconds())/1000))
	})
}
