// Package token reads fungible token balances from a token contract's
// per-account balance table.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
)

// Querier is the slice of a session this package consumes: a resolvable
// account and a table-read capability.
type Querier interface {
	Account() chain.AccountName
	TableRows(ctx context.Context, q chain.TableQuery) (*chain.TableRows, error)
}

// Reader fetches and parses balances. One-shot reads, never cached;
// a balance is only as fresh as the call that produced it.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader. A nil logger falls back to slog.Default.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// balanceRow is the fixed shape of token balance tables:
// one asset string per row, scope = holder account.
type balanceRow struct {
	Balance string `json:"balance"`
}

// Balances returns the session account's holdings under contract, in
// table order, capped at 100 rows. An empty contract falls back to the
// native token contract. Query failures return an error; whether that
// is absorbed into "holds nothing" is the caller's policy, not ours.
// Individual malformed rows are skipped so one bad entry cannot hide
// the rest.
func (r *Reader) Balances(ctx context.Context, q Querier, contract chain.AccountName) ([]chain.TokenBalance, error) {
	if contract == "" {
		contract = chain.NativeTokenContract
	}

	rows, err := q.TableRows(ctx, chain.TableQuery{
		Code:  contract,
		Scope: string(q.Account()),
		Table: "accounts",
		Limit: chain.DefaultTableLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("balances for %s under %s: %w", q.Account(), contract, err)
	}

	balances := make([]chain.TokenBalance, 0, len(rows.Rows))
	for _, raw := range rows.Rows {
		var row balanceRow
		if err := json.Unmarshal(raw, &row); err != nil {
			r.logger.Debug("skipping undecodable balance row", "contract", contract, "error", err)
			continue
		}
		asset, err := chain.ParseAsset(row.Balance)
		if err != nil {
			r.logger.Debug("skipping malformed balance", "contract", contract, "balance", row.Balance, "error", err)
			continue
		}
		balances = append(balances, chain.BalanceFromAsset(contract, asset))
	}
	return balances, nil
}
