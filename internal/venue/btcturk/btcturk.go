// Package btcturk implements the BtcTurk venue driver: REST order book
// (limit=1), REST-only (spec.md Variant A). Success is signalled by a
// boolean success field rather than HTTP status or a numeric code.
//
// Grounded in original_source/src/cex/btcturk/mod.rs and types.rs.
package btcturk

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/ihsan215/aeon-market-scanner/internal/driver"
	"github.com/ihsan215/aeon-market-scanner/internal/httpx"
	"github.com/ihsan215/aeon-market-scanner/internal/quote"
	"github.com/ihsan215/aeon-market-scanner/internal/scanerr"
	"github.com/ihsan215/aeon-market-scanner/internal/symbol"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/restutil"
)

const restBase = "https://api.btcturk.com/api/v2"

type envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    orderBookData `json:"data"`
}

type orderBookData struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Btcturk), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Btcturk }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var env envelope
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"pairSymbol": "BTCUSDT", "limit": "1"}).
			Get("/orderbook")
		if err != nil {
			return scanerr.Wrap(venue.Btcturk, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Btcturk, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if !env.Success {
			return scanerr.Wrap(venue.Btcturk, scanerr.ErrHealthCheckFailed, fmt.Errorf("success=false"))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Btcturk)
	if err != nil {
		return quote.Quote{}, err
	}

	var env envelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"pairSymbol": venueSymbol, "limit": "1"}).
			Get("/orderbook")
		if rerr != nil {
			return scanerr.Wrap(venue.Btcturk, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Btcturk, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if !env.Success {
		return quote.Quote{}, scanerr.NewApiError(venue.Btcturk, "0", env.Message)
	}
	if len(env.Data.Bids) == 0 || len(env.Data.Asks) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Btcturk, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}

	bid, err := restutil.ParseDecimal(env.Data.Bids[0][0], "bid price", venue.Btcturk)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(env.Data.Asks[0][0], "ask price", venue.Btcturk)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(env.Data.Bids[0][1], "bid quantity", venue.Btcturk)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(env.Data.Asks[0][1], "ask quantity", venue.Btcturk)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(sym, venue.Btcturk)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Btcturk)), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
