// Package mexc implements the MEXC venue driver. MEXC's real-time feed
// is a protobuf push channel; this scanner treats MEXC as a REST-only
// venue (spec.md Variant A) rather than carry a protobuf dependency for
// one venue's book ticker.
//
// Grounded in original_source/src/cex/mexc/mod.rs and types.rs.
package mexc

import (
	"context"
	"fmt"
	"strings"

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

const restBase = "https://api.mexc.com/api/v3"

type bookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.MEXC), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.MEXC }

func (d *Driver) HealthCheck(ctx context.Context) error {
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).Get("/ping")
		if err != nil {
			return scanerr.Wrap(venue.MEXC, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.MEXC, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.MEXC)
	if err != nil {
		return quote.Quote{}, err
	}

	var ticker bookTicker
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&ticker).
			SetQueryParam("symbol", strings.ToUpper(venueSymbol)).
			Get("/ticker/bookTicker")
		if rerr != nil {
			return scanerr.Wrap(venue.MEXC, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.MEXC, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}

	bid, err := restutil.ParseDecimal(ticker.BidPrice, "bid price", venue.MEXC)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(ticker.AskPrice, "ask price", venue.MEXC)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(ticker.BidQty, "bid quantity", venue.MEXC)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(ticker.AskQty, "ask quantity", venue.MEXC)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(ticker.Symbol, venue.MEXC)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.MEXC)), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
