// Package bitget implements the Bitget venue driver: REST v2 order book
// (limit=1), REST-only (spec.md Variant A). Success is signalled by
// code=="00000" rather than HTTP status.
//
// Grounded in original_source/src/cex/bitget/mod.rs and types.rs.
package bitget

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

const restBase = "https://api.bitget.com/api/v2"

type envelope struct {
	Code string         `json:"code"`
	Msg  string         `json:"msg"`
	Data *orderBookData `json:"data"`
}

type orderBookData struct {
	Asks [][2]string `json:"asks"`
	Bids [][2]string `json:"bids"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Bitget), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Bitget }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var env envelope
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&env).Get("/public/time")
		if err != nil {
			return scanerr.Wrap(venue.Bitget, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Bitget, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if env.Code != "00000" {
			return scanerr.Wrap(venue.Bitget, scanerr.ErrHealthCheckFailed, fmt.Errorf("code %s", env.Code))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Bitget)
	if err != nil {
		return quote.Quote{}, err
	}

	var env envelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"symbol": venueSymbol, "limit": "1"}).
			Get("/spot/market/orderbook")
		if rerr != nil {
			return scanerr.Wrap(venue.Bitget, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Bitget, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if env.Code != "00000" {
		return quote.Quote{}, scanerr.NewApiError(venue.Bitget, env.Code, env.Msg)
	}
	if env.Data == nil || len(env.Data.Bids) == 0 || len(env.Data.Asks) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Bitget, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}

	bid, err := restutil.ParseDecimal(env.Data.Bids[0][0], "bid price", venue.Bitget)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(env.Data.Asks[0][0], "ask price", venue.Bitget)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(env.Data.Bids[0][1], "bid quantity", venue.Bitget)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(env.Data.Asks[0][1], "ask quantity", venue.Bitget)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(sym, venue.Bitget)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Bitget)), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
