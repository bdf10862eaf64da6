// Package respawn provides a Go client for chain-gated respawn flows.
//
// A respawn gate is an on-chain cooldown: an access table records when an
// account last entered, and entry is free once per cooldown window. The
// client links an account through a wallet backend, reads eligibility,
// and submits either the free claim or a payment that skips the wait.
//
// Quick start:
//
//	client, err := respawn.New(
//	    respawn.WithChainAPI("https://api.testnet.example"),
//	    respawn.WithKeystore("~/.respawn-gate/keystore.json"),
//	    respawn.WithGate(respawn.GateConfig{
//	        AccessContract:  "respawndemo",
//	        AccessAction:    "setaccess",
//	        PaymentContract: "respawnpay",
//	        PaymentAction:   "unlock",
//	        PaymentAmount:   "1.0000 XPR",
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.Login(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = client.Respawn(ctx)
//	if err != nil {
//	    var cooldown *respawn.CooldownActiveError
//	    if errors.As(err, &cooldown) {
//	        fmt.Printf("wait %s or call client.Pay\n", cooldown.Remaining)
//	    }
//	}
package respawn

import (
	"fmt"

	"github.com/Respawn-Gate/Respawngate/internal/adapter/outbound/rpc"
	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/domain/gate"
)

// Result and snapshot types, shared with the underlying domain packages.
type (
	// Status is a point-in-time eligibility snapshot.
	Status = gate.Status

	// TokenBalance is one holding under a token contract.
	TokenBalance = chain.TokenBalance

	// TransactResult is the chain's receipt for an accepted transaction.
	TransactResult = chain.TransactResult

	// APIError is a structured chain API error, for use with errors.As.
	APIError = rpc.APIError
)

// GateConfig names the contracts and parameters of one respawn gate.
// The zero value is not usable: the four contract/action fields and the
// payment amount are required. Everything else has a default.
type GateConfig struct {
	// AccessContract hosts the access table and the free-claim action.
	AccessContract string

	// AccessTable is the table holding access records. Default "accounts".
	AccessTable string

	// AccessAction is the free-claim action name.
	AccessAction string

	// PaymentContract receives cooldown-skipping payments.
	PaymentContract string

	// PaymentAction is the payment action name.
	PaymentAction string

	// PaymentAmount is the asset to transfer, e.g. "1.0000 XPR".
	PaymentAmount string

	// PaymentMemo rides along with the payment. Default "respawn".
	PaymentMemo string

	// TokenContract is where balances are read. Default "eosio.token".
	TokenContract string

	// CooldownHours is the free-entry window. Default 24.
	CooldownHours int

	// FailMode is the read-path error policy: "open" treats an
	// unreadable table as a fresh account, "strict" propagates the
	// error. Default "open".
	FailMode string
}

func (g GateConfig) withDefaults() GateConfig {
	if g.AccessTable == "" {
		g.AccessTable = "accounts"
	}
	if g.PaymentMemo == "" {
		g.PaymentMemo = "respawn"
	}
	if g.TokenContract == "" {
		g.TokenContract = string(chain.NativeTokenContract)
	}
	if g.CooldownHours == 0 {
		g.CooldownHours = 24
	}
	if g.FailMode == "" {
		g.FailMode = string(gate.FailOpen)
	}
	return g
}

func (g GateConfig) validate() error {
	accounts := map[string]string{
		"AccessContract":  g.AccessContract,
		"PaymentContract": g.PaymentContract,
	}
	for field, value := range accounts {
		if value == "" {
			return fmt.Errorf("respawn: GateConfig.%s is required", field)
		}
		if !chain.AccountName(value).Valid() {
			return fmt.Errorf("respawn: GateConfig.%s: invalid account name %q", field, value)
		}
	}
	if g.AccessAction == "" {
		return fmt.Errorf("respawn: GateConfig.AccessAction is required")
	}
	if g.PaymentAction == "" {
		return fmt.Errorf("respawn: GateConfig.PaymentAction is required")
	}
	if _, err := chain.ParseAsset(g.PaymentAmount); err != nil {
		return fmt.Errorf("respawn: GateConfig.PaymentAmount: %w", err)
	}
	if !chain.AccountName(g.TokenContract).Valid() {
		return fmt.Errorf("respawn: GateConfig.TokenContract: invalid account name %q", g.TokenContract)
	}
	if g.CooldownHours < 0 {
		return fmt.Errorf("respawn: GateConfig.CooldownHours must not be negative")
	}
	if m := gate.FailMode(g.FailMode); m != gate.FailOpen && m != gate.FailStrict {
		return fmt.Errorf("respawn: GateConfig.FailMode must be %q or %q", gate.FailOpen, gate.FailStrict)
	}
	return nil
}

func (g GateConfig) domain() gate.Config {
	return gate.Config{
		AccessContract:  chain.AccountName(g.AccessContract),
		AccessTable:     g.AccessTable,
		AccessAction:    g.AccessAction,
		PaymentContract: chain.AccountName(g.PaymentContract),
		PaymentAction:   g.PaymentAction,
		PaymentAmount:   g.PaymentAmount,
		PaymentMemo:     g.PaymentMemo,
		TokenContract:   chain.AccountName(g.TokenContract),
		CooldownHours:   g.CooldownHours,
		FailMode:        gate.FailMode(g.FailMode),
	}
}
