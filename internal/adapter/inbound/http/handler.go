package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
)

// Journal query limits. The default keeps responses small; the cap keeps
// a hostile ?limit from dragging the whole journal into one response.
const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// statusResponse is the JSON body of GET /v1/status.
type statusResponse struct {
	Account        string     `json:"account"`
	Permission     string     `json:"permission"`
	ChainID        string     `json:"chain_id"`
	Wallet         string     `json:"wallet"`
	CheckedAt      time.Time  `json:"checked_at"`
	CanRespawnFree bool       `json:"can_respawn_free"`
	CooldownEnds   *time.Time `json:"cooldown_ends,omitempty"`
	// RemainingMS is re-derived from CooldownEnds at response time, so
	// cached snapshots still count down.
	RemainingMS  int64  `json:"remaining_ms"`
	Countdown    string `json:"countdown"`
	HasEnoughXPR bool   `json:"has_enough_xpr"`
	XPRBalance   string `json:"xpr_balance,omitempty"`
	Cached       bool   `json:"cached,omitempty"`
}

// journalResponse is the JSON body of GET /v1/journal.
type journalResponse struct {
	Entries []journal.Entry `json:"entries"`
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// handleStatus serves GET /v1/status: the cooldown snapshot for the
// server's session. 503 when no session is linked, 502 when the chain
// query fails.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.session == nil {
		writeError(w, http.StatusServiceUnavailable, "no linked session")
		return
	}

	logger := LoggerFromContext(r.Context())

	var (
		status *gate.Status
		cached bool
	)
	if s.cache != nil {
		key := statusCacheKey(string(s.session.Account()), s.session.ChainID())
		if hit, ok := s.cache.get(key); ok {
			status = hit
			cached = true
			s.metrics.StatusCacheTotal.WithLabelValues("hit").Inc()
		} else {
			s.metrics.StatusCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	if status == nil {
		var err error
		status, err = s.gate.Status(r.Context(), s.session, s.gateConfig)
		if err != nil {
			s.metrics.GateChecksTotal.WithLabelValues("error").Inc()
			logger.Error("status check failed", "account", s.session.Account(), "error", err)
			writeError(w, http.StatusBadGateway, "chain query failed")
			return
		}
		if s.cache != nil {
			s.cache.put(statusCacheKey(string(s.session.Account()), s.session.ChainID()), status)
		}
	}

	// Label the check from the rendered response, not the raw snapshot:
	// renderStatus flips a cached snapshot to free once its cooldown
	// lapses, and the metric must agree with the body.
	resp := s.renderStatus(status, cached)
	if resp.CanRespawnFree {
		s.metrics.GateChecksTotal.WithLabelValues("free").Inc()
	} else {
		s.metrics.GateChecksTotal.WithLabelValues("cooldown").Inc()
	}

	writeJSON(w, http.StatusOK, resp)
}

// renderStatus builds the response DTO, re-deriving the countdown from
// CooldownEnds so a snapshot served from cache does not freeze time.
func (s *Server) renderStatus(status *gate.Status, cached bool) statusResponse {
	resp := statusResponse{
		Account:        string(s.session.Account()),
		Permission:     string(s.session.Permission()),
		ChainID:        s.session.ChainID(),
		Wallet:         s.session.Wallet(),
		CheckedAt:      status.CheckedAt,
		CanRespawnFree: status.CanRespawnFree,
		CooldownEnds:   status.CooldownEnds,
		HasEnoughXPR:   status.HasEnoughXPR,
		Cached:         cached,
	}

	var remaining time.Duration
	if status.CooldownEnds != nil {
		if left := time.Until(*status.CooldownEnds); left > 0 {
			remaining = left
		} else {
			// The cooldown lapsed while the snapshot sat in cache.
			resp.CanRespawnFree = true
		}
	}
	resp.RemainingMS = remaining.Milliseconds()
	resp.Countdown = gate.FormatRemaining(remaining)

	if status.XPRBalance != nil {
		resp.XPRBalance = status.XPRBalance.Amount + " " + status.XPRBalance.Symbol
	}
	return resp
}

// handleJournal serves GET /v1/journal?limit=n: recent journal entries,
// newest first. 404 when no journal is configured.
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.journal == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxJournalLimit {
			n = maxJournalLimit
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		LoggerFromContext(r.Context()).Error("journal read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "journal read failed")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, journalResponse{Entries: entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
