package chain

import "encoding/json"

const (
	// DefaultTableLimit caps table reads that did not ask for a limit.
	DefaultTableLimit = 100
)

// TableQuery describes one get_table_rows request. Rows are schema-less;
// the caller decodes them into whatever shape the table holds.
type TableQuery struct {
	// Code is the contract whose table is read.
	Code AccountName `json:"code"`
	// Scope partitions the table; for balance tables it is the holder
	// account, for the access table the contract itself.
	Scope string `json:"scope"`
	// Table is the table name within the contract's ABI.
	Table string `json:"table"`
	// LowerBound and UpperBound bracket the primary key range. Setting
	// both to the same key selects at most that single row.
	LowerBound string `json:"lower_bound,omitempty"`
	UpperBound string `json:"upper_bound,omitempty"`
	// Limit caps returned rows; zero means DefaultTableLimit.
	Limit int `json:"limit,omitempty"`
}

// TableRows is the result of a table query.
type TableRows struct {
	// Rows holds each row as raw JSON, in table order. Table order is an
	// artifact of the primary key and carries no meaning here.
	Rows []json.RawMessage `json:"rows"`
	// More is true when the range had rows beyond Limit.
	More bool `json:"more"`
}
