package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Respawn-Gate/Respawngate/internal/adapter/inbound/http"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/memory"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/rpc"
	"github.com/Respawn-Gate/Respawngate/internal/domain/ratelimit"
)

// statusCacheSize bounds the /v1/status cache; one entry per linked
// account, so a small cache covers everything the daemon will see.
const statusCacheSize = 256

// sessionCleanupInterval is how often the in-memory session mirror
// sweeps for idle-expired records.
const sessionCleanupInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP daemon",
	Long: `Serve runs a local HTTP daemon exposing the gate over JSON:

  GET /v1/status   respawn eligibility for the linked account
  GET /v1/journal  recent journal entries (when journaling is on)
  GET /healthz     component health
  GET /metrics     Prometheus metrics

The daemon is read-only: respawns and payments need the wallet and
stay in the CLI. It serves the session linked via 'respawn-gate
login', and starts without one, answering 503 on /v1/status until a
login exists.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// stop() restores default signal handling so a second Ctrl+C does
	// a hard kill.
	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := http.NewMetrics(reg)

	app, err := newApp(ctx, rpc.WithInstrumentation(metrics.ChainRequestsTotal, metrics.ChainRequestDuration))
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.logger

	// Write the PID file so "respawn-gate stop" can find us.
	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	// Restore the linked session. A missing or failing restore is not
	// fatal for a long-running daemon: it can come up first and serve
	// 503 until a login exists.
	sess, err := app.link.Restore(ctx)
	if err != nil {
		logger.Warn("session restore failed, serving without session", "error", err)
		sess = nil
	}

	// Mirror the session record into the in-memory store that feeds
	// the session gauge and /healthz. The file on disk stays the
	// source of truth; this copy expires on idle like any other.
	idleTTL := parseDuration(logger, "session.idle_ttl", app.cfg.Session.IdleTTL, 720*time.Hour)
	sessions := memory.NewSessionStoreWithConfig(idleTTL, sessionCleanupInterval)
	sessions.StartCleanup(ctx)
	defer sessions.Stop()

	opts := []http.Option{
		http.WithAddr(app.cfg.Serve.HTTPAddr),
		http.WithLogger(logger),
		http.WithVersion(Version),
		http.WithMetrics(reg, metrics),
		http.WithSessionStore(sessions),
	}

	if sess != nil {
		if err := sessions.Save(ctx, sess.Record()); err != nil {
			logger.Warn("failed to mirror session record", "error", err)
		}
		opts = append(opts, http.WithSession(sess))
	} else {
		logger.Warn("no linked session; /v1/status will return 503 until login")
	}

	if app.journalRead != nil {
		opts = append(opts,
			http.WithJournalReader(app.journalRead),
			http.WithJournalService(app.journalSvc),
		)
	}

	var limiter *memory.RateLimiter
	if app.cfg.Serve.RateLimit.Enabled {
		limiter = memory.NewRateLimiter()
		limiter.StartCleanup(ctx)
		defer limiter.Stop()
		opts = append(opts, http.WithRateLimit(limiter, ratelimit.Config{
			Rate:   app.cfg.Serve.RateLimit.PerMinute,
			Burst:  app.cfg.Serve.RateLimit.PerMinute,
			Period: time.Minute,
		}))
	}

	if cacheTTL := parseDuration(logger, "serve.cache_ttl", app.cfg.Serve.CacheTTL, 0); cacheTTL > 0 {
		opts = append(opts, http.WithStatusCache(statusCacheSize, cacheTTL))
	}

	opts = append(opts, http.WithHealthChecker(
		http.NewHealthChecker(sessions, limiter, app.journalSvc, Version),
	))

	account := "not linked"
	if sess != nil {
		account = sess.Account().String()
	}
	printBanner(Version, app.cfg.Serve.HTTPAddr, account, app.cfg.Journal.Output)

	server := http.NewServer(app.gate, app.gateCfg, opts...)
	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("respawn-gate stopped")
	return nil
}

// printBanner prints a formatted startup banner to stderr with version,
// address and session state.
func printBanner(version, httpAddr, account, journalOutput string) {
	const (
		reset = "\033[0m"
		bold  = "\033[1m"
		cyan  = "\033[36m"
		dim   = "\033[2m"
	)

	statusURL := fmt.Sprintf("http://localhost%s/v1/status", httpAddr)
	if !strings.HasPrefix(httpAddr, ":") {
		statusURL = fmt.Sprintf("http://%s/v1/status", httpAddr)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  %s%sRespawn Gate %s%s\n", bold, cyan, version, reset)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "  %-10s %s\n", "Status:", statusURL)
	fmt.Fprintf(os.Stderr, "  %-10s %s\n", "Account:", account)
	fmt.Fprintf(os.Stderr, "  %-10s %s\n", "Journal:", journalOutput)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "\n")
}
