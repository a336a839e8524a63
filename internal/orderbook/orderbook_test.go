package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
)

func level(price, size string) Level {
	return Level{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func TestBook_ReplaceAndBest(t *testing.T) {
	b := New()
	b.Replace(
		[]Level{level("100", "1"), level("99", "2"), level("101", "3")},
		[]Level{level("102", "1"), level("103", "2")},
	)

	bid, ask, bidQty, askQty, ok := b.Best()
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !bid.Equal(decimal.RequireFromString("101")) {
		t.Errorf("bid = %s, want 101 (highest bid)", bid)
	}
	if !ask.Equal(decimal.RequireFromString("102")) {
		t.Errorf("ask = %s, want 102 (lowest ask)", ask)
	}
	if !bidQty.Equal(decimal.RequireFromString("3")) {
		t.Errorf("bidQty = %s, want 3", bidQty)
	}
	if !askQty.Equal(decimal.RequireFromString("1")) {
		t.Errorf("askQty = %s, want 1", askQty)
	}
}

func TestBook_Best_EmptySideNotOK(t *testing.T) {
	b := New()
	b.ApplyBidLevels([]Level{level("100", "1")})
	if _, _, _, _, ok := b.Best(); ok {
		t.Fatal("expected ok=false with no asks")
	}
}

func TestBook_ApplyLevels_ZeroSizeRemoves(t *testing.T) {
	b := New()
	b.ApplyBidLevels([]Level{level("100", "1"), level("99", "2")})
	b.ApplyAskLevels([]Level{level("101", "1")})

	b.ApplyBidLevels([]Level{level("100", "0")})

	bid, _, _, _, ok := b.Best()
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !bid.Equal(decimal.RequireFromString("99")) {
		t.Errorf("bid = %s, want 99 after removing 100", bid)
	}
}

func TestBook_Best_NonPositivePriceRejected(t *testing.T) {
	b := New()
	b.ApplyBidLevels([]Level{level("0", "1")})
	b.ApplyAskLevels([]Level{level("101", "1")})
	if _, _, _, _, ok := b.Best(); ok {
		t.Fatal("expected ok=false with a non-positive top bid")
	}
}

func TestBook_Replace_ClearsPriorState(t *testing.T) {
	b := New()
	b.Replace([]Level{level("100", "1")}, []Level{level("101", "1")})
	b.Replace([]Level{level("50", "1")}, []Level{level("51", "1")})

	bid, ask, _, _, ok := b.Best()
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !bid.Equal(decimal.RequireFromString("50")) || !ask.Equal(decimal.RequireFromString("51")) {
		t.Errorf("bid/ask = %s/%s, want 50/51 after replace", bid, ask)
	}
}
