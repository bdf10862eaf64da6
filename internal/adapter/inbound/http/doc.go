// Package http provides the HTTP status server for Respawn Gate.
//
// This package implements the inbound HTTP adapter started by the serve
// command. It gives dashboards, stream overlays, and scripts a read-only
// view of the respawn gate without handing them the wallet: the server
// only ever reads chain state through the gate service and never signs.
//
// # Usage
//
// Create and start a server:
//
//	server := http.NewServer(gateService, gateConfig,
//	    http.WithAddr("127.0.0.1:8080"),
//	    http.WithSession(sess),
//	    http.WithJournalReader(reader),
//	    http.WithLogger(logger),
//	)
//	err := server.Start(ctx)
//
// Start blocks until the context is cancelled, then shuts down
// gracefully with a 10 second drain timeout.
//
// # Endpoints
//
//	GET /v1/status   - Cooldown status for the linked session
//	GET /v1/journal  - Recent journal entries (404 when journal disabled)
//	GET /healthz     - Component health, 503 when degraded
//	GET /metrics     - Prometheus metrics
//
// /v1/status answers 503 while no session is linked. Remaining cooldown
// is re-derived from the deadline at response time, so even cached
// snapshots count down between requests.
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. MetricsMiddleware - Records duration and status for the full request
//  2. RequestIDMiddleware - Extracts/generates X-Request-Id, enriches the logger
//  3. RealIPMiddleware - Resolves the client IP from proxy headers
//  4. RateLimitMiddleware - Per-IP GCRA check, 429 with Retry-After when tripped
//
// Rate limiting and the status cache are both opt-in. /healthz and
// /metrics bypass the rate limiter so probes and scrapes keep working
// while clients are throttled.
//
// # Security
//
//   - Binds to localhost by default; exposing it wider is a deliberate choice
//   - TLS 1.2 minimum when certificates are configured via WithTLS
//   - No write endpoints: respawns and payments stay in the CLI
package http
