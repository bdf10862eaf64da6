// Package chain defines the value types shared by every component that
// talks to the chain API: account names, permission levels, assets,
// actions, and table queries. Types here are plain data; all I/O lives
// behind the outbound ports.
package chain

// NativeSymbol is the network's default fungible currency symbol.
const NativeSymbol = "XPR"

// NativeTokenContract is the conventional contract holding native token
// balances. Used as the default scope for balance reads.
const NativeTokenContract AccountName = "eosio.token"

// AccountName is an on-chain account identifier: 1-12 characters drawn
// from a-z, 1-5 and '.', never starting or ending with '.'.
type AccountName string

// Valid reports whether n is a well-formed account name.
func (n AccountName) Valid() bool {
	if len(n) == 0 || len(n) > 12 {
		return false
	}
	if n[0] == '.' || n[len(n)-1] == '.' {
		return false
	}
	for i := 0; i < len(n); i++ {
		c := n[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '1' && c <= '5':
		case c == '.':
		default:
			return false
		}
	}
	return true
}

func (n AccountName) String() string { return string(n) }

// PermissionName is a permission level under an account ("active", "owner").
type PermissionName string

// Authorization names the account+permission pair an action is signed with.
type Authorization struct {
	// Actor is the account granting the authorization.
	Actor AccountName `json:"actor"`
	// Permission is the permission level used ("active" unless stated).
	Permission PermissionName `json:"permission"`
}

// String renders the authorization in the conventional actor@permission form.
func (a Authorization) String() string {
	return string(a.Actor) + "@" + string(a.Permission)
}

// Info is the subset of /v1/chain/get_info consumed by this client.
type Info struct {
	// ChainID uniquely identifies the network sessions are bound to.
	ChainID string `json:"chain_id"`
	// HeadBlockNum is the most recent block known to the queried node.
	HeadBlockNum uint32 `json:"head_block_num"`
	// HeadBlockTime is the node's head block timestamp, verbatim. The API
	// emits it without a zone suffix, so it stays a string here.
	HeadBlockTime string `json:"head_block_time"`
}
