package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	gatehttp "github.com/Respawn-Gate/Respawngate/internal/adapter/inbound/http"
	journalstore "github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/journal"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/memory"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/rpc"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/state"
	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
	"github.com/Respawn-Gate/Respawngate/internal/domain/link"
	"github.com/Respawn-Gate/Respawngate/internal/domain/ratelimit"
	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
	"github.com/Respawn-Gate/Respawngate/internal/domain/token"
	"github.com/Respawn-Gate/Respawngate/internal/service"
)

// serveGateConfig mirrors a production gate configuration. FailStrict
// so chain failures surface as 502 instead of being absorbed into an
// optimistic snapshot.
func serveGateConfig() gate.Config {
	return gate.Config{
		AccessContract:  "respawndemo",
		AccessTable:     "accounts",
		AccessAction:    "setaccess",
		PaymentContract: "respawnpay",
		PaymentAction:   "unlock",
		PaymentAmount:   "1.0000 XPR",
		CooldownHours:   24,
		FailMode:        gate.FailStrict,
	}
}

// serveEnv assembles the serve command's wiring: instrumented rpc
// client against a fake node, keystore-backed login, journal service,
// gate service, and the base option set the HTTP server starts from.
type serveEnv struct {
	sess    *session.Session
	gateSvc *service.GateService
	base    []gatehttp.Option
}

func newServeEnv(t *testing.T, node *chainNode) *serveEnv {
	t.Helper()
	logger := testLogger()
	ctx := t.Context()

	srv := node.server(t)
	reg := prometheus.NewRegistry()
	metrics := gatehttp.NewMetrics(reg)
	client := rpc.NewClient(srv.URL,
		rpc.WithLogger(logger),
		rpc.WithInstrumentation(metrics.ChainRequestsTotal, metrics.ChainRequestDuration),
	)

	dir := t.TempDir()
	wallet := openKeystore(createKeystore(t, dir), testPassphrase)
	store := state.NewFileStore(filepath.Join(dir, "sessions.json"), logger)

	// Tight batching so journal entries become readable within one poll
	// interval instead of one second.
	jstore := journalstore.NewWriterStore(io.Discard)
	journalSvc := service.NewJournalService(jstore, logger,
		service.WithBatchSize(1),
		service.WithFlushInterval(10*time.Millisecond),
	)
	journalSvc.Start(ctx)
	t.Cleanup(journalSvc.Stop)

	linkSvc := service.NewLinkService(link.New(client, wallet, store, logger), journalSvc, logger)
	sess, err := linkSvc.Login(ctx)
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}

	sessions := memory.NewSessionStore()
	if err := sessions.Save(ctx, sess.Record()); err != nil {
		t.Fatalf("mirror session record: %v", err)
	}

	checker := gate.NewChecker(token.NewReader(logger), logger)
	gateSvc := service.NewGateService(checker, journalSvc, logger)

	return &serveEnv{
		sess:    sess,
		gateSvc: gateSvc,
		base: []gatehttp.Option{
			gatehttp.WithLogger(logger),
			gatehttp.WithVersion("test"),
			gatehttp.WithMetrics(reg, metrics),
			gatehttp.WithSession(sess),
			gatehttp.WithSessionStore(sessions),
			gatehttp.WithJournalReader(jstore),
			gatehttp.WithJournalService(journalSvc),
		},
	}
}

// mount builds the server with the base options plus extras and serves
// its composed handler chain.
func (e *serveEnv) mount(t *testing.T, extra ...gatehttp.Option) *httptest.Server {
	t.Helper()
	opts := append(append([]gatehttp.Option{}, e.base...), extra...)
	srv := gatehttp.NewServer(e.gateSvc, serveGateConfig(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// statusDTO mirrors the /v1/status response body.
type statusDTO struct {
	Account        string     `json:"account"`
	Permission     string     `json:"permission"`
	ChainID        string     `json:"chain_id"`
	Wallet         string     `json:"wallet"`
	CanRespawnFree bool       `json:"can_respawn_free"`
	CooldownEnds   *time.Time `json:"cooldown_ends"`
	RemainingMS    int64      `json:"remaining_ms"`
	Countdown      string     `json:"countdown"`
	HasEnoughXPR   bool       `json:"has_enough_xpr"`
	XPRBalance     string     `json:"xpr_balance"`
}

// healthDTO mirrors the /healthz response body.
type healthDTO struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// getJSON fetches url and decodes the body into out. The response is
// returned for status and header assertions.
func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

// pollJournal reads /v1/journal until an entry with the given event
// shows up. The journal writer is asynchronous, so readers see entries
// a flush interval after the fact.
func pollJournal(t *testing.T, baseURL, event string) journal.Entry {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		var out struct {
			Entries []journal.Entry `json:"entries"`
		}
		getJSON(t, baseURL+"/v1/journal", &out)
		for _, e := range out.Entries {
			if e.Event == event {
				return e
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("journal entry %q never appeared", event)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// TestServeStatusFullPath drives the daemon wiring end to end for an
// eligible account: login through the keystore, status over HTTP backed
// by real chain reads, health, metrics, and the journaled login.
func TestServeStatusFullPath(t *testing.T) {
	node := &chainNode{balance: "5.0000 XPR"}
	env := newServeEnv(t, node)
	ts := env.mount(t)

	var st statusDTO
	resp := getJSON(t, ts.URL+"/v1/status", &st)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /v1/status = %d, want 200", resp.StatusCode)
	}
	if st.Account != testAccount {
		t.Errorf("account = %q, want %q", st.Account, testAccount)
	}
	if st.Permission != "active" {
		t.Errorf("permission = %q, want %q", st.Permission, "active")
	}
	if st.ChainID != testChainID {
		t.Errorf("chain_id = %q, want %q", st.ChainID, testChainID)
	}
	if st.Wallet != "keystore" {
		t.Errorf("wallet = %q, want %q", st.Wallet, "keystore")
	}
	if !st.CanRespawnFree {
		t.Error("can_respawn_free = false, want true for fresh account")
	}
	if st.RemainingMS != 0 {
		t.Errorf("remaining_ms = %d, want 0", st.RemainingMS)
	}
	if st.Countdown != "00:00:00" {
		t.Errorf("countdown = %q, want %q", st.Countdown, "00:00:00")
	}
	if !st.HasEnoughXPR {
		t.Error("has_enough_xpr = false, want true with 5 XPR against a 1 XPR price")
	}
	if st.XPRBalance != "5.0000 XPR" {
		t.Errorf("xpr_balance = %q, want %q", st.XPRBalance, "5.0000 XPR")
	}

	var hz healthDTO
	resp = getJSON(t, ts.URL+"/healthz", &hz)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", resp.StatusCode)
	}
	if hz.Status != "healthy" {
		t.Errorf("health status = %q, want %q", hz.Status, "healthy")
	}
	if hz.Version != "test" {
		t.Errorf("health version = %q, want %q", hz.Version, "test")
	}
	if hz.Checks["session_store"] != "ok" {
		t.Errorf("session_store check = %q, want %q", hz.Checks["session_store"], "ok")
	}
	if !strings.HasPrefix(hz.Checks["journal"], "ok") {
		t.Errorf("journal check = %q, want ok prefix", hz.Checks["journal"])
	}
	if hz.Checks["rate_limiter"] != "not configured" {
		t.Errorf("rate_limiter check = %q, want %q", hz.Checks["rate_limiter"], "not configured")
	}

	mresp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, err := io.ReadAll(mresp.Body)
	mresp.Body.Close()
	if err != nil {
		t.Fatalf("read /metrics: %v", err)
	}
	exposition := string(body)
	for _, metric := range []string{
		"respawngate_requests_total",
		"respawngate_chain_requests_total",
		"respawngate_gate_checks_total",
		"respawngate_session_records 1",
	} {
		if !strings.Contains(exposition, metric) {
			t.Errorf("/metrics missing %q", metric)
		}
	}

	entry := pollJournal(t, ts.URL, journal.EventLogin)
	if entry.Account.String() != testAccount {
		t.Errorf("journal login account = %q, want %q", entry.Account, testAccount)
	}
	if entry.Wallet != "keystore" {
		t.Errorf("journal login wallet = %q, want %q", entry.Wallet, "keystore")
	}
	if entry.ChainID != testChainID {
		t.Errorf("journal login chain_id = %q, want %q", entry.ChainID, testChainID)
	}
}

// TestServeStatusCooldown verifies the countdown view for an account
// inside its cooldown window.
func TestServeStatusCooldown(t *testing.T) {
	last := time.Now().Add(-time.Hour).Unix()
	node := &chainNode{lastAccess: last}
	env := newServeEnv(t, node)
	ts := env.mount(t)

	var st statusDTO
	resp := getJSON(t, ts.URL+"/v1/status", &st)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /v1/status = %d, want 200", resp.StatusCode)
	}
	if st.CanRespawnFree {
		t.Error("can_respawn_free = true, want false inside cooldown")
	}
	if st.CooldownEnds == nil {
		t.Fatal("cooldown_ends missing")
	}
	if got, want := st.CooldownEnds.Unix(), last+24*3600; got != want {
		t.Errorf("cooldown_ends = %d, want %d", got, want)
	}
	if st.RemainingMS <= 0 || st.RemainingMS > (23*time.Hour).Milliseconds() {
		t.Errorf("remaining_ms = %d, want within (0, 23h]", st.RemainingMS)
	}
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`).MatchString(st.Countdown) {
		t.Errorf("countdown = %q, want HH:MM:SS", st.Countdown)
	}
	if st.Countdown == "00:00:00" {
		t.Error("countdown = 00:00:00, want live remainder")
	}
	if st.HasEnoughXPR {
		t.Error("has_enough_xpr = true, want false with no holdings")
	}
	if st.XPRBalance != "" {
		t.Errorf("xpr_balance = %q, want empty", st.XPRBalance)
	}
}

// TestServeRespawnJournaled submits a free respawn through the domain
// (keystore signs, rpc broadcasts) and reads the outcome back through
// the daemon's journal endpoint.
func TestServeRespawnJournaled(t *testing.T) {
	node := &chainNode{}
	env := newServeEnv(t, node)
	ts := env.mount(t)

	res := env.gateSvc.Respawn(t.Context(), env.sess, serveGateConfig())
	if !res.Success {
		t.Fatalf("Respawn() failed: %s", res.Err)
	}
	if res.Transaction == nil || res.Transaction.TransactionID != "deadbeef01" {
		t.Fatalf("Respawn() transaction = %+v, want id deadbeef01", res.Transaction)
	}
	if got := node.pushCount(); got != 1 {
		t.Errorf("pushed transactions = %d, want 1", got)
	}

	entry := pollJournal(t, ts.URL, journal.EventRespawn)
	if entry.TxID != "deadbeef01" {
		t.Errorf("journal respawn tx_id = %q, want %q", entry.TxID, "deadbeef01")
	}
	if entry.Account.String() != testAccount {
		t.Errorf("journal respawn account = %q, want %q", entry.Account, testAccount)
	}
	if entry.Error != "" {
		t.Errorf("journal respawn error = %q, want empty", entry.Error)
	}

	// Newest first: the respawn outranks the login that preceded it.
	var out struct {
		Entries []journal.Entry `json:"entries"`
	}
	getJSON(t, ts.URL+"/v1/journal?limit=1", &out)
	if len(out.Entries) != 1 {
		t.Fatalf("journal limit=1 returned %d entries", len(out.Entries))
	}
	if out.Entries[0].Event != journal.EventRespawn {
		t.Errorf("newest journal event = %q, want %q", out.Entries[0].Event, journal.EventRespawn)
	}
}

// TestServeRateLimit verifies the per-IP limit end to end: a burst of
// status requests trips 429 with Retry-After while health stays exempt.
func TestServeRateLimit(t *testing.T) {
	node := &chainNode{}
	env := newServeEnv(t, node)
	limiter := memory.NewRateLimiter()
	ts := env.mount(t, gatehttp.WithRateLimit(limiter, ratelimit.Config{
		Rate:   2,
		Burst:  2,
		Period: time.Minute,
	}))

	codes := make(map[int]int)
	var retryAfter string
	var throttledBody string
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/v1/status")
		if err != nil {
			t.Fatalf("GET /v1/status #%d: %v", i, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		codes[resp.StatusCode]++
		if resp.StatusCode == http.StatusTooManyRequests && retryAfter == "" {
			retryAfter = resp.Header.Get("Retry-After")
			throttledBody = string(body)
		}
	}

	if codes[http.StatusOK] == 0 {
		t.Error("no request passed the limiter")
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Fatalf("no request was throttled: status codes = %v", codes)
	}
	if secs, err := strconv.Atoi(retryAfter); err != nil || secs < 1 {
		t.Errorf("Retry-After = %q, want integer >= 1", retryAfter)
	}
	if !strings.Contains(throttledBody, "rate limit exceeded") {
		t.Errorf("429 body = %q, want rate limit message", throttledBody)
	}

	// Probes keep working while clients are throttled.
	var hz healthDTO
	resp := getJSON(t, ts.URL+"/healthz", &hz)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz while throttled = %d, want 200", resp.StatusCode)
	}
	if hz.Checks["rate_limiter"] != "ok" {
		t.Errorf("rate_limiter check = %q, want %q", hz.Checks["rate_limiter"], "ok")
	}
}

// TestServeWithoutSession covers the daemon's pre-login state: it comes
// up, reports healthy, and answers 503 on status until a login exists.
func TestServeWithoutSession(t *testing.T) {
	logger := testLogger()
	checker := gate.NewChecker(token.NewReader(logger), logger)
	gateSvc := service.NewGateService(checker, nil, logger)
	srv := gatehttp.NewServer(gateSvc, serveGateConfig(),
		gatehttp.WithLogger(logger),
		gatehttp.WithVersion("test"),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	var errBody struct {
		Error string `json:"error"`
	}
	resp := getJSON(t, ts.URL+"/v1/status", &errBody)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("GET /v1/status without session = %d, want 503", resp.StatusCode)
	}
	if errBody.Error != "no linked session" {
		t.Errorf("error = %q, want %q", errBody.Error, "no linked session")
	}

	var hz healthDTO
	resp = getJSON(t, ts.URL+"/healthz", &hz)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", resp.StatusCode)
	}
	if hz.Status != "healthy" {
		t.Errorf("health status = %q, want %q", hz.Status, "healthy")
	}
	if hz.Checks["session_store"] != "not configured" {
		t.Errorf("session_store check = %q, want %q", hz.Checks["session_store"], "not configured")
	}
}

// TestServeLifecycle runs the daemon stack with every background
// component started, shuts it down the way a signal would, and verifies
// nothing leaks.
func TestServeLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger := testLogger()
	node := &chainNode{balance: "5.0000 XPR"}
	chainSrv := httptest.NewServer(node.handler())
	defer chainSrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	metrics := gatehttp.NewMetrics(reg)
	client := rpc.NewClient(chainSrv.URL,
		rpc.WithLogger(logger),
		rpc.WithInstrumentation(metrics.ChainRequestsTotal, metrics.ChainRequestDuration),
	)

	dir := t.TempDir()
	wallet := openKeystore(createKeystore(t, dir), testPassphrase)
	store := state.NewFileStore(filepath.Join(dir, "sessions.json"), logger)

	jstore := journalstore.NewWriterStore(io.Discard)
	journalSvc := service.NewJournalService(jstore, logger)
	journalSvc.Start(ctx)
	defer journalSvc.Stop()

	linkSvc := service.NewLinkService(link.New(client, wallet, store, logger), journalSvc, logger)
	sess, err := linkSvc.Login(ctx)
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}

	sessions := memory.NewSessionStoreWithConfig(time.Hour, time.Minute)
	sessions.StartCleanup(ctx)
	defer sessions.Stop()
	if err := sessions.Save(ctx, sess.Record()); err != nil {
		t.Fatalf("mirror session record: %v", err)
	}

	limiter := memory.NewRateLimiter()
	limiter.StartCleanup(ctx)
	defer limiter.Stop()

	checker := gate.NewChecker(token.NewReader(logger), logger)
	gateSvc := service.NewGateService(checker, journalSvc, logger)

	server := gatehttp.NewServer(gateSvc, serveGateConfig(),
		gatehttp.WithAddr("127.0.0.1:0"),
		gatehttp.WithLogger(logger),
		gatehttp.WithVersion("test"),
		gatehttp.WithMetrics(reg, metrics),
		gatehttp.WithSession(sess),
		gatehttp.WithSessionStore(sessions),
		gatehttp.WithRateLimit(limiter, ratelimit.Config{Rate: 60, Burst: 60, Period: time.Minute}),
		gatehttp.WithJournalReader(jstore),
		gatehttp.WithJournalService(journalSvc),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	// Let the listener come up, then take it down the way a signal would.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down within 5s")
	}
}
