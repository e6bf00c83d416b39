// Package api provides the Birthday Verse HTTP API server.
package api

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/lookup"
	"github.com/FocuswithJustin/BirthdayVerse/internal/logging"
	"github.com/FocuswithJustin/BirthdayVerse/internal/metrics"
	"github.com/FocuswithJustin/BirthdayVerse/internal/server"
)

// Server serves the verse API.
type Server struct {
	cfg      Config
	service  *lookup.Service
	metrics  *metrics.Metrics
	limiter  *RateLimiter
	hub      *Hub
	upgrader websocket.Upgrader
	started  time.Time
	handler  http.Handler
}

// NewServer builds a server around svc. If m is nil a fresh metrics
// registry is created. Call Close, or let Serve return, to release the
// rate limiter and any open sessions.
func NewServer(cfg Config, svc *lookup.Service, m *metrics.Metrics) *Server {
	cfg = cfg.withDefaults()
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		cfg:     cfg,
		service: svc,
		metrics: m,
		hub:     NewHub(m),
		started: time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}
	s.handler = s.buildHandler()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the WebSocket session hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", s.instrument("/", s.handleRoot))
	mux.Handle("/health", s.instrument("/health", s.handleHealth))
	mux.Handle("/books", s.instrument("/books", s.handleBooks))
	mux.Handle("/verse", s.instrument("/verse", s.handleVerse))
	mux.Handle("/ws", s.instrument("/ws", s.handleWebSocket))
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

func (s *Server) buildHandler() http.Handler {
	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())

	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.cfg.RateLimitRequests,
			"burst_size", s.cfg.RateLimitBurst)
	}

	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*)")
	}

	return logging.CombinedMiddleware(handler)
}

// instrument records request count, duration and in-flight gauge for route.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.HTTPRequestsInFlight.Inc()
		defer s.metrics.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		h(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTPRequest(route, status, time.Since(start))
	})
}

// Start listens on the configured port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		s.Close()
		return errors.NewIO("listen", fmt.Sprintf(":%d", s.cfg.Port), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully: open sessions are closed and in-flight requests get
// Config.ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.ServerStartup("rest_api", "http", s.cfg.Port,
		"addr", ln.Addr().String(),
		"websocket_protocol", "ws",
		"source", s.cfg.SourceKind,
		"version", s.cfg.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("server shutting down", "sessions", s.hub.Count())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.hub.CloseAll()
		err := srv.Shutdown(shutdownCtx)
		if werr := s.hub.Wait(shutdownCtx); err == nil {
			err = werr
		}
		return err
	})

	return g.Wait()
}

// Close stops the rate limiter and closes all WebSocket sessions.
func (s *Server) Close() {
	s.hub.CloseAll()
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
