package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	journalstore "github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/journal"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/keystore"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/rpc"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/state"
	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/walletd"
	"github.com/Respawn-Gate/Respawngate/internal/config"
	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
	"github.com/Respawn-Gate/Respawngate/internal/domain/journal"
	"github.com/Respawn-Gate/Respawngate/internal/domain/link"
	"github.com/Respawn-Gate/Respawngate/internal/domain/session"
	"github.com/Respawn-Gate/Respawngate/internal/domain/token"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
	"github.com/Respawn-Gate/Respawngate/internal/service"
)

// app bundles the long-lived pieces every command wires up before
// doing its work: effective config, logger, the two services, and the
// optional journal.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	gateCfg gate.Config

	link *service.LinkService
	gate *service.GateService

	journalSvc   *service.JournalService
	journalRead  journal.Reader
	journalStore journal.Store
}

// newApp loads and validates the configuration and wires the client
// stack. Extra rpc options let serve attach instrumentation. The
// journal worker, if enabled, is already started; callers must defer
// Close so pending entries flush.
func newApp(ctx context.Context, rpcOpts ...rpc.ClientOption) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Chain.LogLevel)
	if file := config.ConfigFileUsed(); file != "" {
		logger.Debug("loaded config", "file", file)
	}

	timeout := parseDuration(logger, "chain.request_timeout", cfg.Chain.RequestTimeout, 10*time.Second)
	opts := append([]rpc.ClientOption{
		rpc.WithTimeout(timeout),
		rpc.WithLogger(logger),
	}, rpcOpts...)
	chainClient := rpc.NewClient(cfg.Chain.API, opts...)

	wallet, err := newWallet(cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions := state.NewFileStore(cfg.Session.StorePath, logger)

	store, svc, reader, err := newJournal(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	var recorder service.EntryRecorder
	if svc != nil {
		recorder = svc
	}

	checker := gate.NewChecker(token.NewReader(logger), logger)

	return &app{
		cfg:          cfg,
		logger:       logger,
		gateCfg:      gateConfigFrom(cfg),
		link:         service.NewLinkService(link.New(chainClient, wallet, sessions, logger), recorder, logger),
		gate:         service.NewGateService(checker, recorder, logger),
		journalSvc:   svc,
		journalRead:  reader,
		journalStore: store,
	}, nil
}

// Close flushes and releases the journal. Safe on a partially built app.
func (a *app) Close() {
	if a.journalSvc != nil {
		a.journalSvc.Stop()
	}
	if a.journalStore != nil {
		_ = a.journalStore.Close()
	}
}

// restoreSession revives the persisted session or explains how to get one.
func (a *app) restoreSession(ctx context.Context) (*session.Session, error) {
	sess, err := a.link.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("no linked session: run 'respawn-gate login' first")
	}
	return sess, nil
}

// gateConfigFrom maps the gate section onto the domain configuration.
func gateConfigFrom(cfg *config.Config) gate.Config {
	return gate.Config{
		AccessContract:  chain.AccountName(cfg.Gate.AccessContract),
		AccessTable:     cfg.Gate.AccessTable,
		AccessAction:    cfg.Gate.AccessAction,
		PaymentContract: chain.AccountName(cfg.Gate.PaymentContract),
		PaymentAction:   cfg.Gate.PaymentAction,
		PaymentAmount:   cfg.Gate.PaymentAmount,
		PaymentMemo:     cfg.Gate.PaymentMemo,
		TokenContract:   chain.AccountName(cfg.Gate.TokenContract),
		CooldownHours:   cfg.Gate.CooldownHours,
		FailMode:        gate.FailMode(cfg.Gate.FailMode),
	}
}

// newWallet builds the configured signing backend.
func newWallet(cfg *config.Config, logger *slog.Logger) (outbound.Wallet, error) {
	switch cfg.Wallet.Backend {
	case "walletd":
		return walletd.NewClient(cfg.Wallet.WalletdAddr, walletd.WithLogger(logger)), nil
	case "keystore":
		return keystore.New(cfg.Wallet.KeystorePath, promptPassphrase, keystore.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown wallet backend: %s", cfg.Wallet.Backend)
	}
}

// newJournal builds the journal pieces for the configured output and
// starts the async writer. All returns are nil when the journal is off.
func newJournal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (journal.Store, *service.JournalService, journal.Reader, error) {
	var store interface {
		journal.Store
		journal.Reader
	}

	switch {
	case cfg.Journal.Output == "off":
		return nil, nil, nil, nil
	case cfg.Journal.Output == "stdout":
		store = journalstore.NewWriterStore(os.Stdout)
	case strings.HasPrefix(cfg.Journal.Output, "file://"):
		dir := strings.TrimPrefix(cfg.Journal.Output, "file://")
		fs, err := journalstore.NewFileStore(journalstore.FileConfig{Dir: dir}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open journal: %w", err)
		}
		store = fs
	default:
		return nil, nil, nil, fmt.Errorf("invalid journal output: %s", cfg.Journal.Output)
	}

	svc := service.NewJournalService(store, logger)
	svc.Start(ctx)
	return store, svc, store, nil
}

// newLogger builds the stderr text logger every command shares.
// The --debug flag wins over the configured level.
func newLogger(level string) *slog.Logger {
	logLevel := parseLogLevel(level)
	if debugMode {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseDuration parses a config duration string, falling back with a
// warning so a typo degrades rather than aborts.
func parseDuration(logger *slog.Logger, key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

// promptPassphrase supplies the keystore passphrase: the
// RESPAWN_GATE_PASSPHRASE environment variable when set (scripting),
// otherwise an interactive no-echo prompt.
func promptPassphrase(_ context.Context) (string, error) {
	if pass := os.Getenv("RESPAWN_GATE_PASSPHRASE"); pass != "" {
		return pass, nil
	}
	return readSecret("Keystore passphrase: ")
}

// readSecret prompts on stderr and reads without echo when stdin is a
// terminal. Piped stdin falls back to a plain line read.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
