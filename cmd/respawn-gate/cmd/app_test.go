package cmd

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/config"
	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	logger := testLogger()

	if got := parseDuration(logger, "k", "30s", time.Minute); got != 30*time.Second {
		t.Errorf("parseDuration(30s) = %v, want 30s", got)
	}
	if got := parseDuration(logger, "k", "not-a-duration", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(garbage) = %v, want fallback 1m", got)
	}
	if got := parseDuration(logger, "k", "", 10*time.Second); got != 10*time.Second {
		t.Errorf("parseDuration(empty) = %v, want fallback 10s", got)
	}
}

func TestGateConfigFrom(t *testing.T) {
	cfg := &config.Config{}
	cfg.Gate.AccessContract = "gatekeeper"
	cfg.Gate.AccessTable = "accounts"
	cfg.Gate.AccessAction = "setaccess"
	cfg.Gate.PaymentContract = "paymaster"
	cfg.Gate.PaymentAction = "unlock"
	cfg.Gate.PaymentAmount = "1.0000 XPR"
	cfg.Gate.PaymentMemo = "respawn"
	cfg.Gate.TokenContract = "eosio.token"
	cfg.Gate.CooldownHours = 12
	cfg.Gate.FailMode = "strict"

	got := gateConfigFrom(cfg)

	if got.AccessContract != "gatekeeper" {
		t.Errorf("AccessContract = %q", got.AccessContract)
	}
	if got.AccessTable != "accounts" {
		t.Errorf("AccessTable = %q", got.AccessTable)
	}
	if got.AccessAction != "setaccess" {
		t.Errorf("AccessAction = %q", got.AccessAction)
	}
	if got.PaymentContract != "paymaster" {
		t.Errorf("PaymentContract = %q", got.PaymentContract)
	}
	if got.PaymentAction != "unlock" {
		t.Errorf("PaymentAction = %q", got.PaymentAction)
	}
	if got.PaymentAmount != "1.0000 XPR" {
		t.Errorf("PaymentAmount = %q", got.PaymentAmount)
	}
	if got.PaymentMemo != "respawn" {
		t.Errorf("PaymentMemo = %q", got.PaymentMemo)
	}
	if got.TokenContract != "eosio.token" {
		t.Errorf("TokenContract = %q", got.TokenContract)
	}
	if got.CooldownHours != 12 {
		t.Errorf("CooldownHours = %d", got.CooldownHours)
	}
	if got.FailMode != gate.FailStrict {
		t.Errorf("FailMode = %q, want strict", got.FailMode)
	}
}

func TestNewJournal_Off(t *testing.T) {
	cfg := &config.Config{}
	cfg.Journal.Output = "off"

	store, svc, reader, err := newJournal(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("newJournal(off) error: %v", err)
	}
	if store != nil || svc != nil || reader != nil {
		t.Error("newJournal(off) should return all nils")
	}
}

func TestNewJournal_InvalidOutput(t *testing.T) {
	cfg := &config.Config{}
	cfg.Journal.Output = "syslog"

	_, _, _, err := newJournal(context.Background(), cfg, testLogger())
	if err == nil {
		t.Error("newJournal(syslog) should return error")
	}
}

func TestNewWallet_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Wallet.Backend = "ledger"

	if _, err := newWallet(cfg, testLogger()); err == nil {
		t.Error("newWallet(ledger) should return error")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"login", "logout", "status", "balances", "respawn", "pay",
		"serve", "stop", "wallet-init", "config", "version",
	}

	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered with rootCmd", name)
		}
	}
}

func TestStatusCmd_FlagDefaults(t *testing.T) {
	watch, err := statusCmd.Flags().GetBool("watch")
	if err != nil {
		t.Fatalf("failed to get watch flag: %v", err)
	}
	if watch {
		t.Error("watch default should be false")
	}
}

func TestWalletInitCmd_FlagDefaults(t *testing.T) {
	perm, err := walletInitCmd.Flags().GetString("permission")
	if err != nil {
		t.Fatalf("failed to get permission flag: %v", err)
	}
	if perm != "active" {
		t.Errorf("permission default = %q, want %q", perm, "active")
	}
}
