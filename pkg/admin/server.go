// Package admin serves a view of a thread group over fasthttp.
package admin

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/txworker/pkg/core"
	"github.com/fluxorio/txworker/pkg/core/concurrency"
	"github.com/fluxorio/txworker/pkg/core/failfast"
	"github.com/fluxorio/txworker/pkg/observability/prometheus"
)

// Config configures the admin server
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Metrics serves /metrics when set
	Metrics fasthttp.RequestHandler

	// Auth guards POST routes when Auth.Secret is set
	Auth AuthConfig

	// MaxWait caps the ?timeout= of /shutdown/wait. Default 1m.
	MaxWait time.Duration

	Logger core.Logger
}

// ThreadView is the JSON shape of one thread in /threads
type ThreadView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Daemon      bool   `json:"daemon"`
	Priority    int    `json:"priority"`
	Alive       bool   `json:"alive"`
	Interrupted bool   `json:"interrupted"`
}

// GroupView is the JSON body of /threads
type GroupView struct {
	Group   string       `json:"group"`
	Active  int          `json:"active"`
	Threads []ThreadView `json:"threads"`
}

// WaitView is the JSON body of /shutdown/wait
type WaitView struct {
	Group   string `json:"group"`
	OK      bool   `json:"ok"`
	Timeout string `json:"timeout"`
}

// Server exposes the registry's group. Its accept loop runs on a daemon
// thread of the registry so it never holds up WaitAllShutdown.
type Server struct {
	registry *concurrency.Registry
	server   *fasthttp.Server
	addr     string
	metrics  fasthttp.RequestHandler
	logger   core.Logger
	maxWait  time.Duration
	wait     fasthttp.RequestHandler
	ln       net.Listener
	thread   *concurrency.Thread
}

// NewServer creates an admin server for registry
func NewServer(registry *concurrency.Registry, cfg Config) *Server {
	failfast.NotNil(registry, "registry")
	logger := cfg.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = time.Minute
	}

	s := &Server{
		registry: registry,
		addr:     cfg.Addr,
		metrics:  cfg.Metrics,
		logger:   logger,
		maxWait:  maxWait,
	}
	s.wait = s.handleWait
	if cfg.Auth.Secret != "" {
		s.wait = requireToken(cfg.Auth, s.handleWait)
	}
	s.server = &fasthttp.Server{
		Handler:               s.handleRequest,
		Name:                  "txworker-admin",
		ReadTimeout:           readTimeout,
		WriteTimeout:          writeTimeout,
		NoDefaultServerHeader: true,
	}
	return s
}

// NewServerWithPrometheus serves prometheus.DefaultRegistry on /metrics
func NewServerWithPrometheus(registry *concurrency.Registry, cfg Config) *Server {
	cfg.Metrics = prometheus.FastHTTPHandler(nil)
	return NewServer(registry, cfg)
}

// Start listens on the configured address and serves on a daemon thread
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves ln on a daemon thread and returns once the thread is started
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ln = ln
	factory := s.registry.Create("admin", true)
	s.thread = factory.NewThread(ctx, concurrency.NewNamedTask("admin-server", func(context.Context) error {
		return s.server.Serve(ln)
	}))
	if err := s.thread.Start(); err != nil {
		_ = ln.Close()
		return err
	}
	s.logger.Infof("admin server listening on %s", ln.Addr())
	return nil
}

// Stop shuts the listener down and waits for the serving thread
func (s *Server) Stop(ctx context.Context) error {
	if s.thread == nil {
		return nil
	}
	if err := s.server.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("admin shutdown: %w", err)
	}
	// Serve may not have registered ln with the server yet
	_ = s.ln.Close()
	return s.thread.Join(ctx)
}

func (s *Server) handleRequest(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/health" && ctx.IsGet():
		s.writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "UP"})
	case path == "/threads" && ctx.IsGet():
		s.writeJSON(ctx, fasthttp.StatusOK, s.groupView())
	case path == "/shutdown/wait" && ctx.IsPost():
		s.wait(ctx)
	case path == "/metrics" && ctx.IsGet() && s.metrics != nil:
		s.metrics(ctx)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

// handleWait runs WaitAllShutdown with ?timeout= (default 1s, capped at
// maxWait). The body reports the timeout actually used.
func (s *Server) handleWait(ctx *fasthttp.RequestCtx) {
	timeout := time.Second
	if raw := ctx.QueryArgs().Peek("timeout"); len(raw) > 0 {
		d, err := time.ParseDuration(string(raw))
		if err != nil {
			ctx.Error(fmt.Sprintf("invalid timeout: %v", err), fasthttp.StatusBadRequest)
			return
		}
		timeout = min(d, s.maxWait)
	}

	ok := s.registry.WaitAllShutdown(timeout)
	status := fasthttp.StatusOK
	if !ok {
		status = fasthttp.StatusAccepted
	}
	s.writeJSON(ctx, status, WaitView{Group: s.registry.Group().Name(), OK: ok, Timeout: timeout.String()})
}

func (s *Server) groupView() GroupView {
	group := s.registry.Group()
	threads := group.Enumerate()
	view := GroupView{
		Group:   group.Name(),
		Active:  len(threads),
		Threads: make([]ThreadView, 0, len(threads)),
	}
	for _, t := range threads {
		view.Threads = append(view.Threads, ThreadView{
			ID:          t.ID().String(),
			Name:        t.Name(),
			Daemon:      t.IsDaemon(),
			Priority:    int(t.Priority()),
			Alive:       t.IsAlive(),
			Interrupted: t.IsInterrupted(),
		})
	}
	return view
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	data, err := core.JSONEncode(v)
	if err != nil {
		s.logger.Errorf("admin: encode response: %v", err)
		ctx.Error("internal error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(data)
}
