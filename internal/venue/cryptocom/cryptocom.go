// Package cryptocom implements the Crypto.com Exchange venue driver:
// REST order book (depth=1), REST-only (spec.md Variant A). Success is
// signalled by a numeric code==0 envelope.
//
// Grounded in original_source/src/cex/cryptocom/mod.rs and types.rs.
package cryptocom

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

const restBase = "https://api.crypto.com/v2/public"

type envelope struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Result  result `json:"result"`
}

type result struct {
	Data []bookData `json:"data"`
}

type bookData struct {
	Bids [][3]string `json:"bids"`
	Asks [][3]string `json:"asks"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Cryptocom), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Cryptocom }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var env envelope
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"instrument_name": "BTC_USDT", "depth": "1"}).
			Get("/get-book")
		if err != nil {
			return scanerr.Wrap(venue.Cryptocom, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Cryptocom, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if env.Code != 0 {
			return scanerr.Wrap(venue.Cryptocom, scanerr.ErrHealthCheckFailed, fmt.Errorf("code %d", env.Code))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Cryptocom)
	if err != nil {
		return quote.Quote{}, err
	}

	var env envelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"instrument_name": venueSymbol, "depth": "1"}).
			Get("/get-book")
		if rerr != nil {
			return scanerr.Wrap(venue.Cryptocom, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Cryptocom, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if env.Code != 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Cryptocom, fmt.Sprintf("%d", env.Code), env.Message)
	}
	if len(env.Result.Data) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Cryptocom, "0", "empty orderbook data")
	}
	book := env.Result.Data[0]
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Cryptocom, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}

	bid, err := restutil.ParseDecimal(book.Bids[0][0], "bid price", venue.Cryptocom)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(book.Asks[0][0], "ask price", venue.Cryptocom)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(book.Bids[0][1], "bid quantity", venue.Cryptocom)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(book.Asks[0][1], "ask quantity", venue.Cryptocom)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(venueSymbol, venue.Cryptocom)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Cryptocom)), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
