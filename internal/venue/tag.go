// Package venue defines the venue abstraction shared by every driver:
// the Cex/Dex tagged identity and the Driver capability set.
package venue

// Kind distinguishes a centralized exchange from a DEX aggregator.
type Kind int

const (
	Cex Kind = iota
	Dex
)

func (k Kind) String() string {
	if k == Dex {
		return "dex"
	}
	return "cex"
}

// Tag is the tagged variant {Cex(v), Dex(v)} from the data model: a
// venue identity carried alongside every Quote.
type Tag struct {
	Kind Kind
	Name string
}

func NewCex(name string) Tag { return Tag{Kind: Cex, Name: name} }
func NewDex(name string) Tag { return Tag{Kind: Dex, Name: name} }

// String is the display name used for the arbitrage matcher's
// "different venues" check; identity is by this string, not by Kind.
func (t Tag) String() string { return t.Name }

// Key pairs a venue tag with a canonical symbol, the matcher's cache key.
type Key struct {
	Venue  Tag
	Symbol string
}

const (
	Binance   = "Binance"
	Bybit     = "Bybit"
	OKX       = "OKX"
	MEXC      = "MEXC"
	Gateio    = "Gateio"
	Kucoin    = "Kucoin"
	Bitget    = "Bitget"
	Btcturk   = "Btcturk"
	Htx       = "HTX"
	Coinbase  = "Coinbase"
	Kraken    = "Kraken"
	Bitfinex  = "Bitfinex"
	Upbit     = "Upbit"
	Cryptocom = "Crypto.com"
	KyberSwap = "KyberSwap"
)
