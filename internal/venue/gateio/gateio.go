// Package gateio implements the Gate.io venue driver: REST order book
// depth (limit=1) for best bid/ask, REST-only (spec.md Variant A).
//
// Grounded in original_source/src/cex/gateio/mod.rs and types.rs.
package gateio

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

const restBase = "https://api.gateio.ws/api/v4"

type orderBook struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Gateio), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Gateio }

func (d *Driver) HealthCheck(ctx context.Context) error {
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).Get("/spot/time")
		if err != nil {
			return scanerr.Wrap(venue.Gateio, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Gateio, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Gateio)
	if err != nil {
		return quote.Quote{}, err
	}

	var book orderBook
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&book).
			SetQueryParams(map[string]string{"currency_pair": venueSymbol, "limit": "1"}).
			Get("/spot/order_book")
		if rerr != nil {
			return scanerr.Wrap(venue.Gateio, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Gateio, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Gateio, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}

	bid, err := restutil.ParseDecimal(book.Bids[0][0], "bid price", venue.Gateio)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(book.Asks[0][0], "ask price", venue.Gateio)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(book.Bids[0][1], "bid quantity", venue.Gateio)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(book.Asks[0][1], "ask quantity", venue.Gateio)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(venueSymbol, venue.Gateio)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Gateio)), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
