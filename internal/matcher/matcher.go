// Package matcher computes cross-venue arbitrage opportunities from a
// set of live quotes, holding a last-valid-quote cache.
package matcher

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/fees"
	"github.com/ihsan215/aeon-market-scanner/internal/quote"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
)

const minSpreadPct = 0.01

// Opportunity is one matched cross-venue arbitrage candidate.
type Opportunity struct {
	SourceVenue, DestinationVenue           string
	Symbol                                  string
	EffectiveAsk, EffectiveBid              decimal.Decimal
	Spread, SpreadPct                       decimal.Decimal
	ExecutableQty                           decimal.Decimal
	SourceFeePct, DestinationFeePct         decimal.Decimal
	TotalCommissionQuote                    decimal.Decimal
	SourceLeg, DestinationLeg               quote.Quote
}

type candidate struct {
	effective decimal.Decimal
	q         quote.Quote
}

// Compute returns the ranked opportunity list for a single symbol's
// set of latest quotes, one entry per venue.
func Compute(prices []quote.Quote, overrides fees.Overrides) []Opportunity {
	buys := make([]candidate, 0, len(prices))
	sells := make([]candidate, 0, len(prices))

	for _, q := range prices {
		buys = append(buys, candidate{
			effective: fees.EffectivePrice(q.Ask, q.Venue, fees.Buy, overrides),
			q:         q,
		})
		sells = append(sells, candidate{
			effective: fees.EffectivePrice(q.Bid, q.Venue, fees.Sell, overrides),
			q:         q,
		})
	}

	sort.Slice(buys, func(i, j int) bool { return buys[i].effective.LessThan(buys[j].effective) })
	sort.Slice(sells, func(i, j int) bool { return sells[i].effective.GreaterThan(sells[j].effective) })

	hundred := decimal.NewFromInt(100)
	var out []Opportunity

	for _, buy := range buys {
		for _, sell := range sells {
			if buy.q.Venue.String() == sell.q.Venue.String() {
				continue
			}
			if !sell.effective.GreaterThan(buy.effective) {
				continue
			}

			spread := sell.effective.Sub(buy.effective)
			spreadPct := spread.Div(buy.effective).Mul(hundred)
			if spreadPct.LessThan(decimal.NewFromFloat(minSpreadPct)) {
				continue
			}

			execQty := decimal.Min(buy.q.AskQty, sell.q.BidQty)
			sourceFee := fees.Rate(buy.q.Venue, overrides).Mul(hundred)
			destFee := fees.Rate(sell.q.Venue, overrides).Mul(hundred)
			commission := buy.effective.Mul(execQty).Mul(sourceFee).Div(hundred).
				Add(sell.effective.Mul(execQty).Mul(destFee).Div(hundred))

			out = append(out, Opportunity{
				SourceVenue:           buy.q.Venue.String(),
				DestinationVenue:      sell.q.Venue.String(),
				Symbol:                buy.q.Symbol,
				EffectiveAsk:          buy.effective,
				EffectiveBid:          sell.effective,
				Spread:                spread,
				SpreadPct:             spreadPct,
				ExecutableQty:         execQty,
				SourceFeePct:          sourceFee,
				DestinationFeePct:     destFee,
				TotalCommissionQuote:  commission,
				SourceLeg:             buy.q,
				DestinationLeg:        sell.q,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SpreadPct.GreaterThan(out[j].SpreadPct) })
	return out
}

// Matcher holds the last-valid-quote cache and is exclusively owned by
// the streaming task that drains the fan-in channel — no concurrent
// access is required.
type Matcher struct {
	latest    map[venue.Key]quote.Quote
	overrides fees.Overrides
	log       zerolog.Logger
}

func New(overrides fees.Overrides, log zerolog.Logger) *Matcher {
	return &Matcher{
		latest:    make(map[venue.Key]quote.Quote),
		overrides: overrides,
		log:       log,
	}
}

// Ingest upserts a quote into the cache (discarding invalid ones and
// never overwriting a valid quote with an invalid one) and returns the
// ranked opportunity list across every symbol currently cached.
func (m *Matcher) Ingest(q quote.Quote) []Opportunity {
	if !q.Valid() {
		m.log.Debug().Str("venue", q.Venue.String()).Str("symbol", q.Symbol).Msg("dropping invalid quote")
		return m.snapshot()
	}
	m.latest[q.Key()] = q
	return m.snapshot()
}

func (m *Matcher) snapshot() []Opportunity {
	bySymbol := make(map[string][]quote.Quote)
	for k, q := range m.latest {
		bySymbol[k.Symbol] = append(bySymbol[k.Symbol], q)
	}

	var merged []Opportunity
	for _, prices := range bySymbol {
		if len(prices) < 2 {
			continue
		}
		merged = append(merged, Compute(prices, m.overrides)...)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].SpreadPct.GreaterThan(merged[j].SpreadPct) })
	return merged
}
