// Package quote defines the canonical Quote record produced by every
// venue driver, CEX or DEX alike.
package quote

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/venue"
)

// Quote is the unit of exchange across the system.
type Quote struct {
	Symbol      string
	Bid         decimal.Decimal
	Ask         decimal.Decimal
	BidQty      decimal.Decimal
	AskQty      decimal.Decimal
	Mid         decimal.Decimal
	TimestampMs int64
	Venue       venue.Tag
	DexRoute    *DexRoute // non-nil iff Venue.Kind == venue.Dex
}

// DexRoute carries both legs' route summaries and raw responses for a
// synthesized DEX quote.
type DexRoute struct {
	BidSummary RouteSummary
	AskSummary RouteSummary
	BidRaw     json.RawMessage
	AskRaw     json.RawMessage
}

// RouteSummary is the decimal-safe shape of a single aggregator route leg.
type RouteSummary struct {
	TokenIn      string
	TokenOut     string
	AmountIn     decimal.Decimal
	AmountOut    decimal.Decimal
	AmountInWei  decimal.Decimal
	AmountOutWei decimal.Decimal
}

// New builds a Quote, deriving Mid from Bid/Ask.
func New(symbol string, bid, ask, bidQty, askQty decimal.Decimal, timestampMs int64, v venue.Tag) Quote {
	return Quote{
		Symbol:      symbol,
		Bid:         bid,
		Ask:         ask,
		BidQty:      bidQty,
		AskQty:      askQty,
		Mid:         bid.Add(ask).Div(decimal.NewFromInt(2)),
		TimestampMs: timestampMs,
		Venue:       v,
	}
}

// Valid reports whether bid, ask, and mid are all strictly positive.
func (q Quote) Valid() bool {
	return q.Bid.IsPositive() && q.Ask.IsPositive() && q.Mid.IsPositive()
}

// Key returns the matcher's cache key for this quote.
func (q Quote) Key() venue.Key {
	return venue.Key{Venue: q.Venue, Symbol: q.Symbol}
}
