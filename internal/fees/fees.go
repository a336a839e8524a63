// Package fees implements the per-venue taker-fee table and the
// side-aware effective-price calculation the arbitrage matcher uses
// for comparison and commission reporting.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/venue"
)

// Side is which direction a leg of an opportunity trades.
type Side int

const (
	Buy Side = iota
	Sell
)

// defaultTaker is the spot, default-tier taker fee rate per CEX venue,
// decimal (0.001 = 0.10%). VIP/volume discounts are not modeled. DEX
// venues default to zero.
var defaultTaker = map[string]decimal.Decimal{
	venue.Binance:   decimal.NewFromFloat(0.0010), // 0.10%
	venue.Bybit:     decimal.NewFromFloat(0.0010), // 0.10%
	venue.MEXC:      decimal.NewFromFloat(0.0005), // 0.05%
	venue.OKX:       decimal.NewFromFloat(0.0010), // 0.10%
	venue.Gateio:    decimal.NewFromFloat(0.0010), // 0.10%
	venue.Kucoin:    decimal.NewFromFloat(0.0010), // 0.10%
	venue.Bitget:    decimal.NewFromFloat(0.0010), // 0.10%
	venue.Btcturk:   decimal.NewFromFloat(0.0012), // 0.12% base tier
	venue.Htx:       decimal.NewFromFloat(0.0020), // 0.20%
	venue.Coinbase:  decimal.NewFromFloat(0.0050), // 0.50% (between adv/simple)
	venue.Kraken:    decimal.NewFromFloat(0.0026), // 0.26%
	venue.Bitfinex:  decimal.NewFromFloat(0.0020), // 0.20%
	venue.Upbit:     decimal.NewFromFloat(0.0025), // 0.25%
	venue.Cryptocom: decimal.NewFromFloat(0.0004), // 0.04%
	venue.KyberSwap: decimal.Zero,                 // no platform fee on Swap
}

// Overrides is a user-supplied venue -> fee-rate map, builder-style.
type Overrides struct {
	rates map[string]decimal.Decimal
}

func NewOverrides() Overrides {
	return Overrides{rates: make(map[string]decimal.Decimal)}
}

// With returns a copy of o with venue's rate set to rate.
func (o Overrides) With(v string, rate decimal.Decimal) Overrides {
	next := make(map[string]decimal.Decimal, len(o.rates)+1)
	for k, v := range o.rates {
		next[k] = v
	}
	next[v] = rate
	return Overrides{rates: next}
}

func (o Overrides) get(v string) (decimal.Decimal, bool) {
	if o.rates == nil {
		return decimal.Zero, false
	}
	r, ok := o.rates[v]
	return r, ok
}

// Rate returns the effective fee rate for a venue: the override if
// present, else the default table entry, else zero for an unlisted
// (e.g. unrecognized DEX) venue.
func Rate(v venue.Tag, overrides Overrides) decimal.Decimal {
	if r, ok := overrides.get(v.Name); ok {
		return r
	}
	if r, ok := defaultTaker[v.Name]; ok {
		return r
	}
	return decimal.Zero
}

// EffectivePrice applies the side-aware fee adjustment: Buy pays
// raw*(1+fee), Sell receives raw*(1-fee).
func EffectivePrice(raw decimal.Decimal, v venue.Tag, side Side, overrides Overrides) decimal.Decimal {
	rate := Rate(v, overrides)
	one := decimal.NewFromInt(1)
	switch side {
	case Buy:
		return raw.Mul(one.Add(rate))
	default:
		return raw.Mul(one.Sub(rate))
	}
}
