package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/memory"
	"github.com/Respawn-Gate/Respawngate/internal/service"
)

// journalDegradedPercent is the channel fill level past which the
// journal writer is considered to have fallen behind.
const journalDegradedPercent = 90

// HealthResponse is the JSON body served by /healthz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker reports liveness of the daemon's moving parts. Any of
// the components may be nil; "not configured" is not a failure.
type HealthChecker struct {
	sessionStore   *memory.SessionStore
	rateLimiter    *memory.RateLimiter
	journalService *service.JournalService
	version        string
}

// NewHealthChecker creates a HealthChecker over whichever components
// the serve wiring actually built.
func NewHealthChecker(
	sessionStore *memory.SessionStore,
	rateLimiter *memory.RateLimiter,
	journalService *service.JournalService,
	version string,
) *HealthChecker {
	return &HealthChecker{
		sessionStore:   sessionStore,
		rateLimiter:    rateLimiter,
		journalService: journalService,
		version:        version,
	}
}

// Check runs every component probe and folds the results into one
// response. Only a backed-up journal channel flips the overall status
// to unhealthy; the in-memory stores can at worst hang, which a probe
// timeout upstream would catch.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)

	// Size() takes each store's lock, so a wedged store wedges the probe.
	if h.sessionStore != nil {
		_ = h.sessionStore.Size()
		checks["session_store"] = "ok"
	} else {
		checks["session_store"] = "not configured"
	}
	if h.rateLimiter != nil {
		_ = h.rateLimiter.Size()
		checks["rate_limiter"] = "ok"
	} else {
		checks["rate_limiter"] = "not configured"
	}

	healthy := h.checkJournal(checks)
	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{Status: status, Checks: checks, Version: h.version}
}

// checkJournal inspects the async journal's channel depth and drop
// counter. Returns false when the writer is not keeping up.
func (h *HealthChecker) checkJournal(checks map[string]string) bool {
	if h.journalService == nil {
		checks["journal"] = "not configured"
		return true
	}

	depth := h.journalService.ChannelDepth()
	capacity := h.journalService.ChannelCapacity()
	percent := 0
	if capacity > 0 {
		percent = depth * 100 / capacity
	}

	if drops := h.journalService.DroppedEntries(); drops > 0 {
		checks["journal_drops"] = fmt.Sprintf("%d dropped", drops)
	}

	if percent > journalDegradedPercent {
		checks["journal"] = fmt.Sprintf("degraded: %d/%d (%d%%)", depth, capacity, percent)
		return false
	}
	checks["journal"] = fmt.Sprintf("ok: %d/%d (%d%%)", depth, capacity, percent)
	return true
}

// Handler serves the health report: 200 when healthy, 503 otherwise.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
}
