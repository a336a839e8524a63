// Package kucoin implements the KuCoin venue driver: REST level-1 order
// book for best bid/ask, REST-only (spec.md Variant A). Success is
// signalled by code=="200000" rather than HTTP status.
//
// Grounded in original_source/src/cex/kucoin/mod.rs and types.rs.
package kucoin

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

const restBase = "https://api.kucoin.com/api/v1"

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data level1OrderBook `json:"data"`
}

type level1OrderBook struct {
	BestBid     string `json:"bestBid"`
	BestBidSize string `json:"bestBidSize"`
	BestAsk     string `json:"bestAsk"`
	BestAskSize string `json:"bestAskSize"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Kucoin), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Kucoin }

func (d *Driver) HealthCheck(ctx context.Context) error {
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).Get("/timestamp")
		if err != nil {
			return scanerr.Wrap(venue.Kucoin, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Kucoin, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Kucoin)
	if err != nil {
		return quote.Quote{}, err
	}

	var env envelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParam("symbol", venueSymbol).
			Get("/market/orderbook/level1")
		if rerr != nil {
			return scanerr.Wrap(venue.Kucoin, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Kucoin, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if env.Code != "200000" {
		return quote.Quote{}, scanerr.NewApiError(venue.Kucoin, env.Code, env.Msg)
	}

	bid, err := restutil.ParseDecimal(env.Data.BestBid, "bid price", venue.Kucoin)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(env.Data.BestAsk, "ask price", venue.Kucoin)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(env.Data.BestBidSize, "bid quantity", venue.Kucoin)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(env.Data.BestAskSize, "ask quantity", venue.Kucoin)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(venueSymbol, venue.Kucoin)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Kucoin)), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
