package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/domain/token"
)

// Checker derives respawn status snapshots. Read-only; it holds no
// state besides its collaborators and is safe for concurrent use.
type Checker struct {
	reader *token.Reader
	logger *slog.Logger
	now    func() time.Time
}

// CheckerOption adjusts a Checker.
type CheckerOption func(*Checker)

// WithClock replaces the wall clock. Tests pin time with it.
func WithClock(now func() time.Time) CheckerOption {
	return func(c *Checker) { c.now = now }
}

// NewChecker creates a Checker over the given balance reader.
// A nil logger falls back to slog.Default.
func NewChecker(reader *token.Reader, logger *slog.Logger, opts ...CheckerOption) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Checker{reader: reader, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// accessRow is the on-chain shape of the access table: at most one row
// per account, keyed by account.
type accessRow struct {
	Account    chain.AccountName `json:"account"`
	LastAccess uint32            `json:"last_access"`
}

// Check builds a status snapshot for the session's account. In FailOpen
// mode every read failure is absorbed: no balances reads as zero, no
// reachable access row reads as "fresh user". In FailStrict mode the
// first read failure returns instead. The absorption happens here and
// only here; collaborators below always report errors honestly.
func (c *Checker) Check(ctx context.Context, sess Session, cfg Config) (*Status, error) {
	account := sess.Account()
	cooldown := cfg.Cooldown()

	threshold, thresholdOK := paymentThreshold(cfg.PaymentAmount)
	if !thresholdOK {
		c.logger.Warn("unparseable payment amount, affordability disabled", "amount", cfg.PaymentAmount)
	}

	balances, err := c.reader.Balances(ctx, sess, cfg.Token())
	if err != nil {
		if cfg.Mode() == FailStrict {
			return nil, err
		}
		c.logger.Debug("balance read absorbed into empty", "account", account, "error", err)
		balances = nil
	}

	var xpr *chain.TokenBalance
	for i := range balances {
		if balances[i].Symbol == chain.NativeSymbol {
			b := balances[i]
			xpr = &b
			break
		}
	}
	var held float64
	if xpr != nil {
		held = xpr.Value
	}

	status := &Status{
		CanRespawnFree: true,
		Tokens:         balances,
		XPRBalance:     xpr,
		HasEnoughXPR:   thresholdOK && held >= threshold,
		CheckedAt:      c.now().UTC(),
	}

	row, ok, err := c.accessRecord(ctx, sess, cfg, account)
	if err != nil {
		if cfg.Mode() == FailStrict {
			return nil, err
		}
		c.logger.Debug("access read absorbed into no-record", "account", account, "error", err)
		ok = false
	}
	if !ok {
		return status, nil
	}

	lastAccess := time.Unix(int64(row.LastAccess), 0).UTC()
	cooldownEnds := lastAccess.Add(cooldown)
	status.LastAccess = &lastAccess
	status.CooldownEnds = &cooldownEnds
	status.CanRespawnFree = !status.CheckedAt.Before(cooldownEnds)
	if !status.CanRespawnFree {
		status.Remaining = cooldownEnds.Sub(status.CheckedAt)
	}
	return status, nil
}

// accessRecord runs the single-row range query on the access table.
// ok is false when no row matches the account, including the case of a
// node answering a bounded query with a neighboring row.
func (c *Checker) accessRecord(ctx context.Context, sess Session, cfg Config, account chain.AccountName) (accessRow, bool, error) {
	rows, err := sess.TableRows(ctx, chain.TableQuery{
		Code:       cfg.AccessContract,
		Scope:      string(cfg.AccessContract),
		Table:      cfg.AccessTable,
		LowerBound: string(account),
		UpperBound: string(account),
		Limit:      1,
	})
	if err != nil {
		return accessRow{}, false, err
	}
	if len(rows.Rows) == 0 {
		return accessRow{}, false, nil
	}

	var row accessRow
	if err := json.Unmarshal(rows.Rows[0], &row); err != nil {
		return accessRow{}, false, fmt.Errorf("decode access row: %w", err)
	}
	if row.Account != account {
		return accessRow{}, false, nil
	}
	return row, true, nil
}

// paymentThreshold extracts the numeric portion of the configured
// payment amount. ok is false when the amount does not parse, in which
// case affordability must read false rather than trivially true.
func paymentThreshold(amount string) (float64, bool) {
	asset, err := chain.ParseAsset(amount)
	if err != nil {
		return 0, false
	}
	return asset.Value, true
}
