// Package scanner is the top-level facade: fan out FetchQuote/StreamQuotes
// across a set of venue drivers, fan the results into a single matcher,
// and emit ranked cross-venue opportunities either once or continuously.
package scanner

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ihsan215/aeon-market-scanner/internal/driver"
	"github.com/ihsan215/aeon-market-scanner/internal/fees"
	"github.com/ihsan215/aeon-market-scanner/internal/matcher"
	"github.com/ihsan215/aeon-market-scanner/internal/quote"
)

// FetchQuote is a thin pass-through kept at package level so callers
// depend on package scanner rather than reaching into a specific
// driver directly.
func FetchQuote(ctx context.Context, d driver.Driver, symbol string) (quote.Quote, error) {
	return d.FetchQuote(ctx, symbol)
}

// StreamQuotes is the streaming analogue of FetchQuote.
func StreamQuotes(ctx context.Context, d driver.Driver, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return d.StreamQuotes(ctx, symbols, reconnect, maxAttempts)
}

// ScanRequest configures a single one-shot scan across venues.
type ScanRequest struct {
	Drivers   []driver.Driver
	Symbols   []string
	Overrides fees.Overrides
	Log       zerolog.Logger
}

// ScanOnce fetches one quote per (driver, symbol) pair concurrently,
// then computes ranked opportunities per symbol across whichever
// drivers returned a valid quote for it.
func ScanOnce(ctx context.Context, req ScanRequest) ([]matcher.Opportunity, error) {
	type result struct {
		q   quote.Quote
		err error
	}

	total := len(req.Drivers) * len(req.Symbols)
	results := make(chan result, total)
	var wg sync.WaitGroup

	for _, d := range req.Drivers {
		for _, sym := range req.Symbols {
			d, sym := d, sym
			wg.Add(1)
			go func() {
				defer wg.Done()
				q, err := d.FetchQuote(ctx, sym)
				if err != nil {
					req.Log.Warn().Err(err).Str("venue", d.Name()).Str("symbol", sym).Msg("fetch quote failed")
					results <- result{err: err}
					return
				}
				results <- result{q: q}
			}()
		}
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	bySymbol := make(map[string][]quote.Quote)
	for r := range results {
		if r.err != nil || !r.q.Valid() {
			continue
		}
		bySymbol[r.q.Symbol] = append(bySymbol[r.q.Symbol], r.q)
	}

	var out []matcher.Opportunity
	for _, prices := range bySymbol {
		if len(prices) < 2 {
			continue
		}
		out = append(out, matcher.Compute(prices, req.Overrides)...)
	}
	return out, nil
}

// StreamRequest configures a continuous multi-venue scan.
type StreamRequest struct {
	Drivers     []driver.Driver
	Symbols     []string
	Overrides   fees.Overrides
	Reconnect   bool
	MaxAttempts int
	Log         zerolog.Logger
}

// ScanStreaming fans every streaming-capable driver's quote channel
// into a single matcher and emits a fresh ranked opportunity snapshot
// on every ingested quote. Drivers that don't support streaming are
// skipped with a warning rather than failing the whole scan.
func ScanStreaming(ctx context.Context, req StreamRequest) (<-chan []matcher.Opportunity, error) {
	fanIn := make(chan quote.Quote, 64)
	var wg sync.WaitGroup

	for _, d := range req.Drivers {
		if !d.SupportsStreaming() {
			req.Log.Warn().Str("venue", d.Name()).Msg("skipping venue: streaming unsupported")
			continue
		}
		ch, err := d.StreamQuotes(ctx, req.Symbols, req.Reconnect, req.MaxAttempts)
		if err != nil {
			req.Log.Warn().Err(err).Str("venue", d.Name()).Msg("stream quotes failed")
			continue
		}

		wg.Add(1)
		go func(ch <-chan quote.Quote) {
			defer wg.Done()
			for {
				select {
				case q, ok := <-ch:
					if !ok {
						return
					}
					select {
					case fanIn <- q:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(fanIn)
	}()

	out := make(chan []matcher.Opportunity, 64)
	m := matcher.New(req.Overrides, req.Log)

	go func() {
		defer close(out)
		for {
			select {
			case q, ok := <-fanIn:
				if !ok {
					return
				}
				opportunities := m.Ingest(q)
				select {
				case out <- opportunities:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
