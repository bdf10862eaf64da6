package http

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/memory"
	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
	"github.com/Respawn-Gate/Respawngate/internal/domain/ratelimit"
	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
	"github.com/Respawn-Gate/Respawngate/internal/port/inbound"
	"github.com/Respawn-Gate/Respawngate/internal/service"
)

// Server is the inbound adapter that exposes the respawn gate over HTTP.
// It serves read-only status and journal endpoints for dashboards and
// overlays, plus health and Prometheus metrics. Signing never happens
// here; the server only reads chain state through the gate service.
type Server struct {
	gate       *service.GateService
	gateConfig gate.Config
	session    *session.Session
	journal    journal.Reader

	sessionStore *memory.SessionStore
	journalSvc   *service.JournalService
	limiter      *memory.RateLimiter
	limitCfg     ratelimit.Config

	cache    *statusCache
	registry *prometheus.Registry
	metrics  *Metrics
	health   *HealthChecker

	server     *http.Server
	addr       string
	certFile   string
	keyFile    string
	version    string
	logger     *slog.Logger
	gaugesOnce sync.Once
}

// Option is a functional option for configuring Server.
type Option func(*Server)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(s *Server) {
		s.certFile = certFile
		s.keyFile = keyFile
	}
}

// WithLogger sets the logger for the HTTP server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSession sets the linked session whose account the status endpoint
// reports on. Without a session, /v1/status answers 503.
func WithSession(sess *session.Session) Option {
	return func(s *Server) {
		s.session = sess
	}
}

// WithJournalReader enables the /v1/journal endpoint, serving recent
// entries from the given reader. Without it the endpoint answers 404.
func WithJournalReader(r journal.Reader) Option {
	return func(s *Server) {
		s.journal = r
	}
}

// WithJournalService wires the async journal writer into health checks
// and the dropped-entries counter.
func WithJournalService(js *service.JournalService) Option {
	return func(s *Server) {
		s.journalSvc = js
	}
}

// WithSessionStore wires the in-memory session store into health checks
// and the session records gauge.
func WithSessionStore(store *memory.SessionStore) Option {
	return func(s *Server) {
		s.sessionStore = store
	}
}

// WithRateLimit enables per-IP rate limiting with the given limiter and
// limits. /healthz and /metrics are always exempt.
func WithRateLimit(limiter *memory.RateLimiter, cfg ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter = limiter
		s.limitCfg = cfg
	}
}

// WithStatusCache enables short-lived caching of status snapshots.
// A ttl of zero or less leaves caching off, which is the default: the
// gate's contract is a fresh chain read per check.
func WithStatusCache(size int, ttl time.Duration) Option {
	return func(s *Server) {
		if ttl <= 0 {
			return
		}
		s.cache = newStatusCache(size, ttl)
	}
}

// WithMetrics uses the caller's registry and collectors instead of
// creating private ones. This lets the serve command share one registry
// between the server and the instrumented RPC client. The caller is
// responsible for baseline collectors (Go runtime, process).
func WithMetrics(reg *prometheus.Registry, m *Metrics) Option {
	return func(s *Server) {
		s.registry = reg
		s.metrics = m
	}
}

// WithHealthChecker sets the health checker for the /healthz endpoint.
// When unset, the server builds one from the components it was given.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(s *Server) {
		s.health = hc
	}
}

// WithVersion sets the version string reported by /healthz.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// NewServer creates an HTTP server adapter around the given gate service.
// The server pins strict read semantics on its copy of the gate config,
// whatever fail mode the CLI and SDK run with: a chain outage answers
// 502, never an optimistic "free" body that a dashboard would repaint.
func NewServer(gateService *service.GateService, gateConfig gate.Config, opts ...Option) *Server {
	gateConfig.FailMode = gate.FailStrict
	s := &Server{
		gate:       gateService,
		gateConfig: gateConfig,
		addr:       "127.0.0.1:8080",
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// setupMetrics creates the registry and collectors unless the caller
// injected them via WithMetrics.
func (s *Server) setupMetrics() {
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(s.registry)
	}
}

// registerGauges publishes live component state on the registry. These
// read through to the components on every scrape, so they cannot go
// stale the way a manually-updated gauge can. Guarded by a sync.Once
// because both Handler and Start compose the chain.
func (s *Server) registerGauges() {
	s.gaugesOnce.Do(s.registerComponentGauges)
}

func (s *Server) registerComponentGauges() {
	if s.sessionStore != nil {
		s.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "respawngate",
				Name:      "session_records",
				Help:      "Session records currently held in memory.",
			},
			func() float64 { return float64(s.sessionStore.Size()) },
		))
	}
	if s.limiter != nil {
		s.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "respawngate",
				Name:      "rate_limit_keys",
				Help:      "Client keys currently tracked by the rate limiter.",
			},
			func() float64 { return float64(s.limiter.Size()) },
		))
	}
	if s.journalSvc != nil {
		s.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "respawngate",
				Name:      "journal_dropped_entries_total",
				Help:      "Journal entries dropped because the writer fell behind.",
			},
			func() float64 { return float64(s.journalSvc.DroppedEntries()) },
		))
	}
}

// routes builds the full handler chain.
//
// Middleware order (outermost first):
//  1. Metrics - record duration and status for the whole request
//  2. RequestID - extract/generate request ID and enrich the logger
//  3. RealIP - resolve the client IP that the rate limiter keys on
//  4. RateLimit - per-IP GCRA check (only when configured)
func (s *Server) routes() http.Handler {
	s.setupMetrics()

	if s.health == nil {
		s.health = NewHealthChecker(s.sessionStore, s.limiter, s.journalSvc, s.version)
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", s.health.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	}))
	// Favicon handler to keep browser tabs from logging 404 noise
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/journal", s.handleJournal)

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = RateLimitMiddleware(s.limiter, s.limitCfg, s.metrics, s.logger)(handler)
	}
	handler = RealIPMiddleware(handler)
	handler = RequestIDMiddleware(s.logger)(handler)
	handler = MetricsMiddleware(s.metrics)(handler)

	return handler
}

// Handler returns the fully composed handler chain without binding a
// listener, for callers that mount the gate inside an existing server.
func (s *Server) Handler() http.Handler {
	handler := s.routes()
	s.registerGauges()
	return handler
}

// Start begins serving HTTP requests.
// It blocks until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	handler := s.routes()
	s.registerGauges()

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	if s.certFile != "" && s.keyFile != "" {
		s.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if s.certFile != "" && s.keyFile != "" {
			s.logger.Info("starting HTTPS server", "addr", s.addr)
			err = s.server.ListenAndServeTLS(s.certFile, s.keyFile)
		} else {
			s.logger.Info("starting HTTP server", "addr", s.addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down HTTP server")
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	return s.shutdown()
}

// Compile-time check that Server implements the inbound port.
var _ inbound.Server = (*Server)(nil)
