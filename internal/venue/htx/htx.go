// Package htx implements the HTX venue driver (spec.md Variant F): the
// only CEX in this scanner whose depth response carries bid/ask as raw
// JSON numbers instead of strings. REST-only.
//
// Grounded in original_source/src/cex/htx/mod.rs and types.rs.
package htx

import (
	"context"
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

const restBase = "https://api.htx.com"

type envelope struct {
	Status string  `json:"status"`
	ErrMsg string  `json:"err-msg"`
	Tick   tick    `json:"tick"`
}

type tick struct {
	Bids [][2]float64 `json:"bids"`
	Asks [][2]float64 `json:"asks"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Htx), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Htx }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var env envelope
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"symbol": "btcusdt", "type": "step0"}).
			Get("/market/depth")
		if err != nil {
			return scanerr.Wrap(venue.Htx, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Htx, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if env.Status != "ok" {
			return scanerr.Wrap(venue.Htx, scanerr.ErrHealthCheckFailed, fmt.Errorf("status field %q", env.Status))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Htx)
	if err != nil {
		return quote.Quote{}, err
	}

	var env envelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"symbol": venueSymbol, "type": "step0"}).
			Get("/market/depth")
		if rerr != nil {
			return scanerr.Wrap(venue.Htx, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Htx, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if env.Status != "ok" {
		return quote.Quote{}, scanerr.NewApiError(venue.Htx, env.Status, env.ErrMsg)
	}
	if len(env.Tick.Bids) == 0 || len(env.Tick.Asks) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Htx, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}

	bid := env.Tick.Bids[0][0]
	bidQty := env.Tick.Bids[0][1]
	ask := env.Tick.Asks[0][0]
	askQty := env.Tick.Asks[0][1]

	canonical := symbol.Decode(sym, venue.Htx)
	return restutil.BuildQuote(
		canonical,
		decimal.NewFromFloat(bid), decimal.NewFromFloat(ask),
		decimal.NewFromFloat(bidQty), decimal.NewFromFloat(askQty),
		venue.NewCex(venue.Htx),
	), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
