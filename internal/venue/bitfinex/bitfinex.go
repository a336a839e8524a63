// Package bitfinex implements the Bitfinex venue driver: REST P0
// precision order book, REST-only (spec.md Variant A here — Bitfinex's
// "t"-prefixed symbol and channel-ID WS vocabulary differs enough from
// the other correlation-style venues that this scanner only carries
// its REST leg).
//
// Grounded in original_source/src/cex/bitfinex/mod.rs and types.rs.
package bitfinex

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

const restBase = "https://api-pub.bitfinex.com/v2"

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Bitfinex), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Bitfinex }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var status []int64
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&status).Get("/platform/status")
		if err != nil {
			return scanerr.Wrap(venue.Bitfinex, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Bitfinex, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if len(status) == 0 || status[0] != 1 {
			return scanerr.Wrap(venue.Bitfinex, scanerr.ErrHealthCheckFailed, fmt.Errorf("platform not operational"))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Bitfinex)
	if err != nil {
		return quote.Quote{}, err
	}

	var levels [][3]float64
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).
			SetQueryParam("len", "1").
			Get(fmt.Sprintf("/book/%s/P0", venueSymbol))
		if rerr != nil {
			return scanerr.Wrap(venue.Bitfinex, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Bitfinex, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		var errPair [2]json.RawMessage
		if err := json.Unmarshal(resp.Body(), &errPair); err == nil {
			var code int64
			var msg string
			if json.Unmarshal(errPair[0], &code) == nil && json.Unmarshal(errPair[1], &msg) == nil && code != 0 {
				return scanerr.NewApiError(venue.Bitfinex, fmt.Sprintf("%d", code), msg)
			}
		}
		return json.Unmarshal(resp.Body(), &levels)
	})
	if err != nil {
		return quote.Quote{}, err
	}

	var bid, ask, bidQty, askQty float64
	haveBid, haveAsk := false, false
	for _, entry := range levels {
		price, amount := entry[0], entry[2]
		if amount < 0 {
			if !haveBid || price > bid {
				bid, bidQty, haveBid = price, -amount, true
			}
		} else if amount > 0 {
			if !haveAsk || price < ask {
				ask, askQty, haveAsk = price, amount, true
			}
		}
	}
	if !haveBid || !haveAsk {
		return quote.Quote{}, scanerr.NewApiError(venue.Bitfinex, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}
	if bid > ask {
		bid, ask = ask, bid
		bidQty, askQty = askQty, bidQty
	}

	canonical := symbol.Decode(venueSymbol, venue.Bitfinex)
	return restutil.BuildQuote(
		canonical,
		decimal.NewFromFloat(bid), decimal.NewFromFloat(ask),
		decimal.NewFromFloat(bidQty), decimal.NewFromFloat(askQty),
		venue.NewCex(venue.Bitfinex),
	), nil
}

func (d *Driver) SupportsStreaming() bool { return false }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	return nil, driver.ErrStreamingUnsupported
}

var _ driver.Driver = (*Driver)(nil)
