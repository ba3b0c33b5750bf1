package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/workerbridge/bridge"
	"github.com/kbukum/workerbridge/codec"
	"github.com/kbukum/workerbridge/errors"
	"github.com/kbukum/workerbridge/logger"
	"github.com/kbukum/workerbridge/observability"
	"github.com/kbukum/workerbridge/server/endpoint"
	"github.com/kbukum/workerbridge/server/middleware"
	"github.com/kbukum/workerbridge/transport/ws"
	"github.com/kbukum/workerbridge/validation"
)

// Server serves registered workers over websockets.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	registry   *Registry
	codecs     *codec.Registry
	log        *logger.Logger

	service string
	version string
	metrics *observability.BridgeMetrics
	tracing bool

	// sessions outlive their upgrade request and end on Stop.
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
	active   atomic.Int64

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithService names the service in health reports.
func WithService(name, version string) Option {
	return func(s *Server) { s.service, s.version = name, version }
}

// WithMetrics records traffic of every session on m.
func WithMetrics(m *observability.BridgeMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracing wraps every session in a span.
func WithTracing(enabled bool) Option {
	return func(s *Server) { s.tracing = enabled }
}

// WithCodecs replaces the codec registry.
func WithCodecs(r *codec.Registry) Option {
	return func(s *Server) { s.codecs = r }
}

// New creates a Server. cfg should already have defaults applied.
func New(cfg Config, registry *Registry, log *logger.Logger, opts ...Option) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine:   gin.New(),
		config:   cfg,
		registry: registry,
		codecs:   codec.NewRegistry(),
		log:      log.WithComponent("server"),
		service:  "workerbridge",
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(middleware.Recovery(s.log), middleware.RequestID(), middleware.RequestLogger(s.log))
	s.engine.GET("/health", endpoint.Health(s.health))

	workers := s.engine.Group("/workers", middleware.Auth(cfg.Auth))
	workers.GET("", s.listWorkers)
	workers.GET("/:name", s.serveWorker)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          time.Duration(cfg.IdleTimeout) * time.Second,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h2c.NewHandler(s.engine, h2s),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// Handler returns the root handler, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start binds the port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	tlsCfg, err := s.TLSConfig()
	if err != nil {
		return err
	}
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	if tlsCfg != nil {
		listener = tls.NewListener(listener, tlsCfg)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": listener.Addr().String(),
		"tls":  tlsCfg != nil,
	})
	return nil
}

// TLSConfig returns the listener TLS config, or nil for plain HTTP.
func (s *Server) TLSConfig() (*tls.Config, error) {
	return s.config.TLS.BuildServer()
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop releases every session and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server", map[string]interface{}{"active_sessions": s.active.Load()})
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	drained := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		if err == nil {
			err = errors.Timeout("session drain")
		}
	}

	if err != nil {
		s.log.Error("Server shutdown error", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down successfully")
	return nil
}

// ActiveSessions returns the number of live websocket sessions.
func (s *Server) ActiveSessions() int64 {
	return s.active.Load()
}

func (s *Server) health(context.Context) *observability.ServiceHealth {
	report := observability.NewServiceHealth(s.service, s.version)
	h := observability.Health{
		Name:   "workers",
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"registered":      strconv.Itoa(s.registry.Len()),
			"active_sessions": strconv.FormatInt(s.active.Load(), 10),
		},
	}
	if s.registry.Len() == 0 {
		h.Status = observability.HealthStatusDegraded
		h.Message = "no workers registered"
	}
	if s.ctx.Err() != nil {
		h.Status = observability.HealthStatusDown
		h.Message = "shutting down"
	}
	report.AddComponent(h)
	return report
}

func (s *Server) listWorkers(c *gin.Context) {
	RespondOK(c, s.registry.Workers())
}

func (s *Server) serveWorker(c *gin.Context) {
	name := c.Param("name")
	codecName := c.DefaultQuery("codec", s.config.Codec)
	if err := validation.New().
		Pattern("name", name, namePattern).
		Required("codec", codecName).
		Err(); err != nil {
		RespondWithError(c, err)
		return
	}

	e, ok := s.registry.lookup(name)
	if !ok {
		RespondWithError(c, errors.NotFound("worker", name))
		return
	}
	if !websocket.IsWebSocketUpgrade(c.Request) {
		RespondWithError(c, errors.InvalidInput("upgrade", "websocket upgrade required"))
		return
	}
	cdc, err := s.codec(codecName)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if s.ctx.Err() != nil {
		RespondWithError(c, errors.TransportClosed("server"))
		return
	}

	log := s.log.WithFields(map[string]interface{}{
		"worker":                name,
		"codec":                 cdc.ContentType(),
		middleware.KeyRequestID: c.GetString(middleware.KeyRequestID),
	})
	if sub := c.GetString(middleware.KeySubject); sub != "" {
		log = log.WithFields(map[string]interface{}{middleware.KeySubject: sub})
	}

	h, err := e.mount(session{
		ctx:    s.ctx,
		w:      c.Writer,
		r:      c.Request,
		codec:  cdc,
		wsOpts: s.wsOptions(log),
		opts: []bridge.Option{
			bridge.WithLogger(log),
			bridge.WithMetrics(s.metrics),
			bridge.WithName(name),
			bridge.WithTracing(s.tracing),
		},
	})
	if err != nil {
		// The upgrader has already answered the request.
		log.Warn("Session not started", map[string]interface{}{logger.FieldError: err.Error()})
		c.Abort()
		return
	}

	s.track(h, log)
}

func (s *Server) track(h *bridge.Handle, log *logger.Logger) {
	s.active.Add(1)
	s.sessions.Add(1)
	log.Info("Session started", map[string]interface{}{"wiring_id": h.ID().String()})

	go func() {
		defer s.sessions.Done()
		<-h.Done()
		s.active.Add(-1)
		fields := map[string]interface{}{"wiring_id": h.ID().String()}
		if err := h.Err(); err != nil {
			fields[logger.FieldError] = err.Error()
		}
		log.Info("Session ended", fields)
	}()
}

func (s *Server) codec(name string) (codec.Codec, error) {
	cdc, err := s.codecs.ByName(name)
	if err != nil {
		return nil, err
	}
	if s.config.SealKey == "" {
		return cdc, nil
	}
	return codec.Sealed(cdc, s.config.SealKey)
}

func (s *Server) wsOptions(log *logger.Logger) []ws.Option {
	opts := []ws.Option{
		ws.WithBufferSizes(s.config.ReadBuffer, s.config.WriteBuffer),
		ws.WithLogger(log),
	}
	switch {
	case len(s.config.AllowedOrigins) == 0:
	case contains(s.config.AllowedOrigins, "*"):
		opts = append(opts, ws.WithAllowAnyOrigin())
	default:
		allowed := s.config.AllowedOrigins
		opts = append(opts, ws.WithOriginCheck(func(r *http.Request) bool {
			return contains(allowed, r.Header.Get("Origin"))
		}))
	}
	return opts
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
