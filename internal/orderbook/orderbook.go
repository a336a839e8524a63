// Package orderbook maintains a local best-bid/best-ask view per
// (venue, symbol) from venue-published snapshot and delta frames.
package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Side is one side of a book: an exact-decimal price -> exact-decimal
// size mapping. Keys are decimal.Decimal.String() computed immediately
// after parsing, so prices that differ only in string formatting
// ("100" vs "100.0") still collide.
type Side struct {
	levels map[string]decimal.Decimal
}

func newSide() Side {
	return Side{levels: make(map[string]decimal.Decimal)}
}

// Level is a single (price, size) pair.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Apply upserts or removes levels: size=0 removes the price, nonzero
// size upserts.
func (s *Side) Apply(levels []Level) {
	for _, l := range levels {
		key := l.Price.String()
		if l.Size.IsZero() {
			delete(s.levels, key)
			continue
		}
		s.levels[key] = l.Price
	}
}

// Clear empties the side in place, used by a full-replace snapshot.
func (s *Side) Clear() {
	s.levels = make(map[string]decimal.Decimal)
}

func (s Side) sortedPrices(descending bool) []decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(s.levels))
	for _, p := range s.levels {
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool {
		if descending {
			return prices[i].GreaterThan(prices[j])
		}
		return prices[i].LessThan(prices[j])
	})
	return prices
}

// Book is the reconstructed (bids, asks) pair for one (venue, symbol).
type Book struct {
	Bids    Side // highest-first
	Asks    Side // lowest-first
	bidSize map[string]decimal.Decimal
	askSize map[string]decimal.Decimal
}

func New() *Book {
	return &Book{
		Bids:    newSide(),
		Asks:    newSide(),
		bidSize: make(map[string]decimal.Decimal),
		askSize: make(map[string]decimal.Decimal),
	}
}

// ApplyBidLevels applies bid-side levels, tracking size alongside price
// so Best() can return quantity too.
func (b *Book) ApplyBidLevels(levels []Level) {
	b.Bids.Apply(levels)
	applySize(b.bidSize, levels)
}

func (b *Book) ApplyAskLevels(levels []Level) {
	b.Asks.Apply(levels)
	applySize(b.askSize, levels)
}

func applySize(sizes map[string]decimal.Decimal, levels []Level) {
	for _, l := range levels {
		key := l.Price.String()
		if l.Size.IsZero() {
			delete(sizes, key)
			continue
		}
		sizes[key] = l.Size
	}
}

// Replace clears both sides and applies the given full snapshot.
func (b *Book) Replace(bids, asks []Level) {
	b.Bids.Clear()
	b.Asks.Clear()
	b.bidSize = make(map[string]decimal.Decimal)
	b.askSize = make(map[string]decimal.Decimal)
	b.ApplyBidLevels(bids)
	b.ApplyAskLevels(asks)
}

// Best returns the top of each side. ok is false if either side is
// empty or either top price is non-positive.
func (b *Book) Best() (bid, ask, bidQty, askQty decimal.Decimal, ok bool) {
	bidPrices := b.Bids.sortedPrices(true)
	askPrices := b.Asks.sortedPrices(false)
	if len(bidPrices) == 0 || len(askPrices) == 0 {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, false
	}
	bid = bidPrices[0]
	ask = askPrices[0]
	if !bid.IsPositive() || !ask.IsPositive() {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, false
	}
	bidQty = b.bidSize[bid.String()]
	askQty = b.askSize[ask.String()]
	return bid, ask, bidQty, askQty, true
}
