// Package upbit implements the Upbit venue driver: REST order book,
// REST-only (spec.md Variant A). Bid/ask arrive as raw JSON numbers and
// are defensively bid/ask-swapped, matching the original's own
// defensive swap.
//
// Grounded in original_source/src/cex/upbit/mod.rs and types.rs.
package upbit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/driver"
	"github.com/ihsan215/aeon-market-scanner/internal/httpx"
	"github.com/ihsan215/aeon-market-scanner/internal/quote"
	"github.com/ihsan215/aeon-market-scanner/internal/scanerr"
	"github.com/ihsan215/aeon-market-scanner/internal/symbol"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/restutil"
)

const restBase = "https://api.upbit.com/v1"

type orderBookUnit struct {
	BidPrice float64 `json:"bid_price"`
	BidSize  float64 `json:"bid_size"`
	AskPrice float64 `json:"ask_price"`
	AskSize  float64 `json:"ask_size"`
}

type orderBookResponse struct {
	OrderbookUnits []orderBookUnit `json:"orderbook_units"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Upbit), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Upbit }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var markets []json.RawMessage
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&markets).
			SetQueryParam("isDetails", "false").
			Get("/market/all")
		if err != nil {
			return scanerr.Wrap(venue.Upbit, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Upbit, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if len(markets) == 0 {
			return scanerr.Wrap(venue.Upbit, scanerr.ErrHealthCheckFailed, fmt.Errorf("empty market list"))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Upbit)
	if err != nil {
		return quote.Quote{}, err
	}

	var books []orderBookResponse
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&books).
			SetQueryParam("markets", venueSymbol).
			Get("/orderbook")
		if rerr != nil {
			return scanerr.Wrap(venue.Upbit, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Upbit, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(books) == 0 || len(books[0].OrderbookUnits) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Upbit, "0", fmt.Sprintf("no orderbook units for symbol: %s", sym))
	}

	unit := books[0].OrderbookUnits[0]
	bid, ask := unit.BidPrice, unit.AskPrice
	bidQty, askQty := unit.BidSize, unit.AskSize
	if bid > ask {
		bid, ask = ask, bid
		bidQty, askQty = askQty, bidQty
	}

	canonical := symbol.Decode(venueSymbol, venue.Upbit)
	return restutil.BuildQuote(
		canonical,
		decimal.NewFromFloat(bid), decimal.NewFromFloat(ask),
		decimal.NewFromFloat(bidQty), decimal.NewFromFloat(askQty),
		venue.NewCex(venue.Upbit),
	), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
