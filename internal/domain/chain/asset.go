package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedAsset is returned when an asset string does not follow the
// "<decimal-amount> <SYMBOL>" convention.
var ErrMalformedAsset = errors.New("malformed asset string")

const maxSymbolLen = 7

// Asset is a fixed-precision quantity tagged with a currency symbol,
// parsed from its canonical string form, e.g. "1.0000 XPR".
type Asset struct {
	// Amount is the decimal portion exactly as received ("1.0000").
	Amount string `json:"amount"`
	// Symbol is the currency code ("XPR").
	Symbol string `json:"symbol"`
	// Precision is the number of fractional digits in Amount.
	Precision int `json:"precision"`
	// Value is Amount parsed as a float, for threshold comparisons only.
	// Never feed it back onto the chain; quantities on the wire stay
	// strings to preserve precision.
	Value float64 `json:"value"`
}

// String renders the asset back in its canonical wire form.
func (a Asset) String() string {
	return a.Amount + " " + a.Symbol
}

// ParseAsset parses the canonical "<decimal-amount> <SYMBOL>" form.
// Precision is inferred from the count of digits after the decimal point,
// so "1.0000 XPR" has precision 4 and "5 SEEDS" precision 0.
func ParseAsset(s string) (Asset, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Asset{}, fmt.Errorf("%w: %q", ErrMalformedAsset, s)
	}
	amount, symbol := fields[0], fields[1]

	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: bad amount %q", ErrMalformedAsset, amount)
	}
	if !validSymbol(symbol) {
		return Asset{}, fmt.Errorf("%w: bad symbol %q", ErrMalformedAsset, symbol)
	}

	precision := 0
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		precision = len(amount) - i - 1
	}
	return Asset{
		Amount:    amount,
		Symbol:    symbol,
		Precision: precision,
		Value:     value,
	}, nil
}

// validSymbol accepts 1-7 uppercase letters, the on-chain symbol charset.
func validSymbol(s string) bool {
	if len(s) == 0 || len(s) > maxSymbolLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// TokenBalance is one holding of an account under a token contract.
// Derived from a fresh table read on every fetch; never cached.
type TokenBalance struct {
	// Contract is the token contract the balance row lives under.
	Contract AccountName `json:"contract"`
	// Symbol is the currency code of the holding.
	Symbol string `json:"symbol"`
	// Precision is the fractional-digit count from the raw balance string.
	Precision int `json:"precision"`
	// Amount is the decimal portion of the raw balance string.
	Amount string `json:"amount"`
	// Value is Amount as a float, for display and threshold checks.
	Value float64 `json:"value"`
}

// BalanceFromAsset builds a TokenBalance for a parsed asset row.
func BalanceFromAsset(contract AccountName, a Asset) TokenBalance {
	return TokenBalance{
		Contract:  contract,
		Symbol:    a.Symbol,
		Precision: a.Precision,
		Amount:    a.Amount,
		Value:     a.Value,
	}
}
