// Package integration provides end-to-end tests that verify the boot
// and serve paths across real components: rpc client against a fake
// chain node, keystore wallet, file-backed session store, journal, and
// the HTTP status server.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/keystore"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/rpc"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/state"
	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
	"github.com/Respawn-Gate/Respawngate/internal/domain/link"
	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
	"github.com/Respawn-Gate/Respawngate/internal/service"
)

const (
	testAccount    = "alice"
	testChainID    = "testchain"
	testPassphrase = "correct horse battery"
)

// testLogger returns a logger that discards output (quiet tests).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chainNode fakes the three chain endpoints the stack touches. Table
// queries dispatch on the code field: the token contract answers with
// balance rows, everything else with access records. Safe for the
// concurrent requests an httptest server delivers.
type chainNode struct {
	mu         sync.Mutex
	lastAccess int64  // unix seconds; 0 means no access row
	balance    string // e.g. "5.0000 XPR"; "" means no holdings
	pushed     int
}

func (n *chainNode) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chain/get_info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"chain_id":        testChainID,
			"head_block_num":  100,
			"head_block_time": "2026-01-02T03:04:05.500",
		})
	})

	mux.HandleFunc("/v1/chain/get_table_rows", func(w http.ResponseWriter, r *http.Request) {
		var q struct {
			Code string `json:"code"`
		}
		json.NewDecoder(r.Body).Decode(&q)

		n.mu.Lock()
		lastAccess, balance := n.lastAccess, n.balance
		n.mu.Unlock()

		rows := []any{}
		switch q.Code {
		case "eosio.token":
			if balance != "" {
				rows = append(rows, map[string]string{"balance": balance})
			}
		default:
			if lastAccess != 0 {
				rows = append(rows, map[string]any{
					"account":     testAccount,
					"last_access": lastAccess,
				})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"rows": rows, "more": false})
	})

	mux.HandleFunc("/v1/chain/push_transaction", func(w http.ResponseWriter, r *http.Request) {
		n.mu.Lock()
		n.pushed++
		n.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"transaction_id": "deadbeef01"})
	})

	return mux
}

// server starts an httptest server over the node, closed with the test.
func (n *chainNode) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(n.handler())
	t.Cleanup(srv.Close)
	return srv
}

func (n *chainNode) pushCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pushed
}

// createKeystore writes a sealed keystore for the test account and
// returns its path.
func createKeystore(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "keystore.json")
	if _, err := keystore.Create(path, testAccount, "active", testPassphrase); err != nil {
		t.Fatalf("create keystore: %v", err)
	}
	return path
}

// openKeystore opens a wallet over an existing keystore file.
func openKeystore(path, passphrase string) *keystore.Keystore {
	return keystore.New(path, func(ctx context.Context) (string, error) {
		return passphrase, nil
	}, keystore.WithLogger(testLogger()))
}

// captureJournal is an EntryRecorder that remembers entries in order.
type captureJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (c *captureJournal) Record(entry journal.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureJournal) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]string, len(c.entries))
	for i, e := range c.entries {
		events[i] = e.Event
	}
	return events
}

// TestBootFirstRun verifies that a fresh install restores to "logged
// out" rather than an error: no session file means (nil, nil).
func TestBootFirstRun(t *testing.T) {
	logger := testLogger()
	node := &chainNode{}
	srv := node.server(t)

	client := rpc.NewClient(srv.URL, rpc.WithLogger(logger))
	store := state.NewFileStore(filepath.Join(t.TempDir(), "sessions.json"), logger)
	wallet := openKeystore(createKeystore(t, t.TempDir()), testPassphrase)
	lnk := link.New(client, wallet, store, logger)

	sess, err := lnk.Restore(t.Context())
	if err != nil {
		t.Fatalf("Restore() on fresh install: unexpected error: %v", err)
	}
	if sess != nil {
		t.Fatalf("Restore() on fresh install = %v, want nil session", sess)
	}
}

// TestBootLoginRestore verifies the full session round trip: login
// persists a record, and a second "process" with fresh components
// revives the same session without user interaction.
func TestBootLoginRestore(t *testing.T) {
	logger := testLogger()
	node := &chainNode{}
	srv := node.server(t)

	dir := t.TempDir()
	ksPath := createKeystore(t, dir)
	sessionsPath := filepath.Join(dir, "sessions.json")
	capture := &captureJournal{}

	client := rpc.NewClient(srv.URL, rpc.WithLogger(logger))
	ctx := t.Context()

	// First process: interactive login.
	linkSvc := service.NewLinkService(
		link.New(client, openKeystore(ksPath, testPassphrase), state.NewFileStore(sessionsPath, logger), logger),
		capture, logger)

	sess, err := linkSvc.Login(ctx)
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if got := sess.Account().String(); got != testAccount {
		t.Errorf("Account() = %q, want %q", got, testAccount)
	}
	if got := string(sess.Permission()); got != "active" {
		t.Errorf("Permission() = %q, want %q", got, "active")
	}
	if sess.ChainID() != testChainID {
		t.Errorf("ChainID() = %q, want %q", sess.ChainID(), testChainID)
	}
	if sess.Wallet() != "keystore" {
		t.Errorf("Wallet() = %q, want %q", sess.Wallet(), "keystore")
	}

	// The record is on disk, locked down to the owner.
	info, err := os.Stat(sessionsPath)
	if err != nil {
		t.Fatalf("sessions file not created: %v", err)
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("sessions file permissions = %o, want 0600", perm)
		}
	}

	// Second process: fresh store, fresh wallet, silent restore.
	linkSvc2 := service.NewLinkService(
		link.New(client, openKeystore(ksPath, testPassphrase), state.NewFileStore(sessionsPath, logger), logger),
		capture, logger)

	restored, err := linkSvc2.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() unexpected error: %v", err)
	}
	if restored == nil {
		t.Fatal("Restore() = nil, want revived session")
	}
	if got := restored.Account().String(); got != testAccount {
		t.Errorf("restored Account() = %q, want %q", got, testAccount)
	}
	if restored.Record().ID != sess.Record().ID {
		t.Errorf("restored record ID = %q, want %q", restored.Record().ID, sess.Record().ID)
	}
	if restored.Record().LastUsed.Before(sess.Record().CreatedAt) {
		t.Error("restore did not bump LastUsed")
	}

	want := []string{journal.EventLogin, journal.EventRestore}
	got := capture.events()
	if len(got) != len(want) {
		t.Fatalf("journal events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("journal event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestBootLogout verifies that logout deletes the persisted record, so
// the next restore comes up logged out.
func TestBootLogout(t *testing.T) {
	logger := testLogger()
	node := &chainNode{}
	srv := node.server(t)

	dir := t.TempDir()
	wallet := openKeystore(createKeystore(t, dir), testPassphrase)
	store := state.NewFileStore(filepath.Join(dir, "sessions.json"), logger)
	capture := &captureJournal{}

	client := rpc.NewClient(srv.URL, rpc.WithLogger(logger))
	linkSvc := service.NewLinkService(link.New(client, wallet, store, logger), capture, logger)
	ctx := t.Context()

	sess, err := linkSvc.Login(ctx)
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if err := linkSvc.Logout(ctx, sess); err != nil {
		t.Fatalf("Logout() unexpected error: %v", err)
	}

	restored, err := linkSvc.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() after logout: unexpected error: %v", err)
	}
	if restored != nil {
		t.Fatalf("Restore() after logout = %v, want nil", restored)
	}

	want := []string{journal.EventLogin, journal.EventLogout}
	got := capture.events()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("journal events = %v, want %v", got, want)
	}
}

// TestBootStaleRecordDropped verifies that a persisted record for an
// account the wallet no longer holds is deleted during restore instead
// of producing a broken session.
func TestBootStaleRecordDropped(t *testing.T) {
	logger := testLogger()
	node := &chainNode{}
	srv := node.server(t)

	dir := t.TempDir()
	sessionsPath := filepath.Join(dir, "sessions.json")
	client := rpc.NewClient(srv.URL, rpc.WithLogger(logger))
	ctx := t.Context()

	// Login as the test account.
	aliceWallet := openKeystore(createKeystore(t, dir), testPassphrase)
	if _, err := link.New(client, aliceWallet, state.NewFileStore(sessionsPath, logger), logger).Login(ctx); err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}

	// The user re-initializes the keystore for a different account; the
	// persisted record now names an identity the wallet cannot sign for.
	bobPath := filepath.Join(dir, "keystore-bob.json")
	if _, err := keystore.Create(bobPath, "bob", "active", testPassphrase); err != nil {
		t.Fatalf("create second keystore: %v", err)
	}
	bobWallet := openKeystore(bobPath, testPassphrase)

	store := state.NewFileStore(sessionsPath, logger)
	restored, err := link.New(client, bobWallet, store, logger).Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() unexpected error: %v", err)
	}
	if restored != nil {
		t.Fatalf("Restore() with swapped keystore = %v, want nil", restored)
	}

	// The stale record is gone, not just skipped.
	if _, err := store.Newest(ctx, testChainID); !errors.Is(err, session.ErrRecordNotFound) {
		t.Errorf("Newest() after stale drop: error = %v, want ErrRecordNotFound", err)
	}
}

// TestBootWrongPassphrase verifies that a bad passphrase surfaces as an
// authorization denial, the error class callers branch on.
func TestBootWrongPassphrase(t *testing.T) {
	logger := testLogger()
	node := &chainNode{}
	srv := node.server(t)

	dir := t.TempDir()
	wallet := openKeystore(createKeystore(t, dir), "not the passphrase")
	store := state.NewFileStore(filepath.Join(dir, "sessions.json"), logger)
	client := rpc.NewClient(srv.URL, rpc.WithLogger(logger))

	_, err := link.New(client, wallet, store, logger).Login(t.Context())
	if err == nil {
		t.Fatal("Login() with wrong passphrase: expected error")
	}
	if !errors.Is(err, outbound.ErrAuthorizationDenied) {
		t.Errorf("Login() error = %v, want ErrAuthorizationDenied", err)
	}
}

// TestBootChainUnreachable verifies that an unreachable node keeps
// "offline" distinguishable from "logged out": restore errors instead
// of quietly reporting no session.
func TestBootChainUnreachable(t *testing.T) {
	logger := testLogger()
	srv := httptest.NewServer((&chainNode{}).handler())
	srv.Close() // gone before the first request

	dir := t.TempDir()
	wallet := openKeystore(createKeystore(t, dir), testPassphrase)
	store := state.NewFileStore(filepath.Join(dir, "sessions.json"), logger)
	client := rpc.NewClient(srv.URL, rpc.WithLogger(logger))

	if _, err := link.New(client, wallet, store, logger).Restore(t.Context()); err == nil {
		t.Fatal("Restore() against dead node: expected error, got nil")
	}
}
