package matcher

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/fees"
	"github.com/ihsan215/aeon-market-scanner/internal/quote"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
)

func mustQuote(venueName, symbol, bid, ask, bidQty, askQty string) quote.Quote {
	return quote.New(
		symbol,
		decimal.RequireFromString(bid), decimal.RequireFromString(ask),
		decimal.RequireFromString(bidQty), decimal.RequireFromString(askQty),
		0, venue.NewCex(venueName),
	)
}

func feeOverrides(venues []string, rate string) fees.Overrides {
	o := fees.NewOverrides()
	for _, v := range venues {
		o = o.With(v, decimal.RequireFromString(rate))
	}
	return o
}

func TestCompute_BasicCrossVenueArbitrage(t *testing.T) {
	a := mustQuote("A", "BTCUSDT", "99", "100", "1", "1")
	b := mustQuote("B", "BTCUSDT", "110", "111", "1", "1")
	overrides := feeOverrides([]string{"A", "B"}, "0.001")

	out := Compute([]quote.Quote{a, b}, overrides)
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(out))
	}

	opp := out[0]
	if opp.SourceVenue != "A" || opp.DestinationVenue != "B" {
		t.Errorf("source/destination = %s/%s, want A/B", opp.SourceVenue, opp.DestinationVenue)
	}
	if !closeTo(opp.EffectiveAsk, "100.1") {
		t.Errorf("effective ask = %s, want 100.1", opp.EffectiveAsk)
	}
	if !closeTo(opp.EffectiveBid, "109.89") {
		t.Errorf("effective bid = %s, want 109.89", opp.EffectiveBid)
	}
	if !opp.ExecutableQty.Equal(decimal.NewFromInt(1)) {
		t.Errorf("executable qty = %s, want 1", opp.ExecutableQty)
	}
}

func TestCompute_SymmetricSymbols_OnlyProfitableDirection(t *testing.T) {
	a := mustQuote("A", "BTCUSDT", "110", "111", "1", "1")
	b := mustQuote("B", "BTCUSDT", "99", "100", "1", "1")
	overrides := feeOverrides([]string{"A", "B"}, "0.001")

	out := Compute([]quote.Quote{a, b}, overrides)
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(out))
	}
	if out[0].SourceVenue != "B" || out[0].DestinationVenue != "A" {
		t.Errorf("source/destination = %s/%s, want B/A", out[0].SourceVenue, out[0].DestinationVenue)
	}
}

func TestCompute_BelowThresholdSpreadFiltered(t *testing.T) {
	a := mustQuote("A", "BTCUSDT", "99", "100", "1", "1")
	b := mustQuote("B", "BTCUSDT", "100.009", "100.01", "1", "1")

	out := Compute([]quote.Quote{a, b}, fees.NewOverrides())
	if len(out) != 0 {
		t.Fatalf("expected no opportunities below the 0.01%% spread threshold, got %d", len(out))
	}
}

func TestCompute_FeeOverrideFlipsProfitability(t *testing.T) {
	a := mustQuote("A", "BTCUSDT", "99", "100", "1", "1")
	b := mustQuote("B", "BTCUSDT", "100.5", "101", "1", "1")
	defaultOverrides := feeOverrides([]string{"A", "B"}, "0.001")

	out := Compute([]quote.Quote{a, b}, defaultOverrides)
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity at default fees, got %d", len(out))
	}

	raised := defaultOverrides.With("A", decimal.RequireFromString("0.006"))
	out = Compute([]quote.Quote{a, b}, raised)
	if len(out) != 0 {
		t.Fatalf("expected 0 opportunities once A's fee is raised to 0.006, got %d", len(out))
	}
}

func TestCompute_DifferentSymbols_Unfiltered(t *testing.T) {
	// Compute operates on whatever quotes it's given; grouping by symbol
	// is the caller's responsibility (see Matcher.snapshot). A mixed-symbol
	// call still only requires distinct venues, not matching symbols.
	a := mustQuote("A", "BTCUSDT", "99", "100", "1", "1")
	b := mustQuote("B", "ETHUSDT", "110", "111", "1", "1")

	out := Compute([]quote.Quote{a, b}, fees.NewOverrides())
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(out))
	}
}

func TestMatcher_SingleVenueSingleSymbol_EmptyList(t *testing.T) {
	m := New(fees.NewOverrides(), zerolog.Nop())
	out := m.Ingest(mustQuote("A", "BTCUSDT", "99", "100", "1", "1"))
	if len(out) != 0 {
		t.Fatalf("expected empty opportunity list with only one venue, got %d", len(out))
	}
}

func TestMatcher_IdenticalEffectivePrices_NoOpportunity(t *testing.T) {
	m := New(fees.NewOverrides(), zerolog.Nop())
	m.Ingest(mustQuote("A", "BTCUSDT", "100", "100", "1", "1"))
	out := m.Ingest(mustQuote("B", "BTCUSDT", "100", "100", "1", "1"))
	if len(out) != 0 {
		t.Fatalf("expected no opportunity with identical effective prices (strict >), got %d", len(out))
	}
}

func TestMatcher_InvalidQuoteDropped(t *testing.T) {
	m := New(fees.NewOverrides(), zerolog.Nop())
	m.Ingest(mustQuote("A", "BTCUSDT", "99", "100", "1", "1"))
	invalid := mustQuote("B", "BTCUSDT", "0", "0", "1", "1")
	out := m.Ingest(invalid)
	if len(out) != 0 {
		t.Fatalf("expected invalid quote to be dropped, leaving only 1 venue cached, got %d opportunities", len(out))
	}
}

func closeTo(d decimal.Decimal, expected string) bool {
	return d.Sub(decimal.RequireFromString(expected)).Abs().LessThan(decimal.RequireFromString("0.0001"))
}
