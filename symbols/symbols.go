// Package symbols maps portfolio coin identifiers to the ticker symbols the
// price provider expects.
package symbols

import "strings"

// Entry is one row of the static id to symbol table
type Entry struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// table is ordered by market cap at the time it was compiled
var table = []Entry{
	{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"},
	{ID: "ethereum", Symbol: "ETH", Name: "Ethereum"},
	{ID: "tether", Symbol: "USDT", Name: "Tether"},
	{ID: "xrp", Symbol: "XRP", Name: "XRP"},
	{ID: "binance-coin", Symbol: "BNB", Name: "BNB"},
	{ID: "solana", Symbol: "SOL", Name: "Solana"},
	{ID: "usd-coin", Symbol: "USDC", Name: "USD Coin"},
	{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin"},
	{ID: "cardano", Symbol: "ADA", Name: "Cardano"},
	{ID: "tron", Symbol: "TRX", Name: "TRON"},
	{ID: "staked-ether", Symbol: "STETH", Name: "Lido Staked Ether"},
	{ID: "wrapped-bitcoin", Symbol: "WBTC", Name: "Wrapped Bitcoin"},
	{ID: "the-open-network", Symbol: "TON", Name: "Toncoin"},
	{ID: "unus-sed-leo", Symbol: "LEO", Name: "UNUS SED LEO"},
	{ID: "chainlink", Symbol: "LINK", Name: "Chainlink"},
	{ID: "wrapped-steth", Symbol: "WSTETH", Name: "Wrapped stETH"},
	{ID: "stellar", Symbol: "XLM", Name: "Stellar"},
	{ID: "avalanche", Symbol: "AVAX", Name: "Avalanche"},
	{ID: "usds", Symbol: "USDS", Name: "USDS"},
	{ID: "sui", Symbol: "SUI", Name: "Sui"},
	{ID: "litecoin", Symbol: "LTC", Name: "Litecoin"},
	{ID: "polkadot", Symbol: "DOT", Name: "Polkadot"},
}

var byID = func() map[string]string {
	m := make(map[string]string, len(table))
	for _, e := range table {
		m[e.ID] = e.Symbol
	}
	return m
}()

// MapIDToSymbol returns the uppercase ticker for id. The lookup is
// case-insensitive; empty and unknown ids report false.
func MapIDToSymbol(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	sym, ok := byID[strings.ToLower(id)]
	return sym, ok
}

// MapIDsToSymbols maps every id to its symbol, keyed by the id exactly as
// given. Ids without a symbol map to nil so callers can skip them.
func MapIDsToSymbols(ids []string) map[string]*string {
	out := make(map[string]*string, len(ids))
	for _, id := range ids {
		if sym, ok := MapIDToSymbol(id); ok {
			out[id] = &sym
		} else {
			out[id] = nil
		}
	}
	return out
}

// Known returns a copy of the supported coins in table order
func Known() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}

// Lookup returns the table entry for id, case-insensitively
func Lookup(id string) (Entry, bool) {
	id = strings.ToLower(id)
	for _, e := range table {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
