package chain

import "encoding/json"

// Action is one contract call inside a transaction. Data stays a JSON
// object; ABI serialization is the wallet backend's job, not ours.
type Action struct {
	// Account is the contract the action is addressed to.
	Account AccountName `json:"account"`
	// Name is the action name on that contract.
	Name string `json:"name"`
	// Authorization lists the account@permission pairs signing the action.
	Authorization []Authorization `json:"authorization"`
	// Data is the action payload as field name -> value.
	Data map[string]any `json:"data"`
}

// Transaction is the unsigned action list handed to a wallet backend.
// Header fields (expiration, TAPoS) are filled in by the backend, which
// knows the chain head at signing time.
type Transaction struct {
	Actions []Action `json:"actions"`
}

// SignedTransaction is what a wallet backend returns: the fully formed
// transaction it built plus the signatures over it. Payload is opaque to
// this client and forwarded to the chain API verbatim.
type SignedTransaction struct {
	// Payload is the complete transaction as serialized by the backend.
	Payload json.RawMessage `json:"transaction"`
	// Signatures are the backend's signatures in wire encoding.
	Signatures []string `json:"signatures"`
}

// TransactResult is the broadcast outcome returned by the chain API.
type TransactResult struct {
	// TransactionID is the chain-assigned id of the accepted transaction.
	TransactionID string `json:"transaction_id"`
	// Processed carries the node's execution receipt, uninterpreted.
	Processed json.RawMessage `json:"processed,omitempty"`
}
