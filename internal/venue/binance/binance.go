// Package binance implements the Binance venue driver: REST
// bookTicker for one-shot quotes and a combined-stream WebSocket
// subscription (spec.md Variant B) for continuous quotes.
//
// Grounded in original_source/src/cex/binance/mod.rs for the REST
// shape and in sawpanic-cryptorun's
// internal/infrastructure/websocket/normalizers.go for the combined
// stream envelope parsing idiom.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ihsan215/aeon-market-scanner/internal/driver"
	"github.com/ihsan215/aeon-market-scanner/internal/httpx"
	"github.com/ihsan215/aeon-market-scanner/internal/quote"
	"github.com/ihsan215/aeon-market-scanner/internal/scanerr"
	"github.com/ihsan215/aeon-market-scanner/internal/supervisor"
	"github.com/ihsan215/aeon-market-scanner/internal/symbol"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
	"github.com/ihsan215/aeon-market-scanner/internal/venue/restutil"
)

const (
	restBase = "https://api.binance.com/api/v3"
	wsBase   = "wss://stream.binance.com:9443/stream?streams="
)

type bookTicker struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

type streamEnvelope struct {
	Stream string          `json:"stream"`
	Data   streamBookEvent `json:"data"`
}

type streamBookEvent struct {
	Symbol string `json:"s"`
	BidPx  string `json:"b"`
	BidQty string `json:"B"`
	AskPx  string `json:"a"`
	AskQty string `json:"A"`
}

// Driver is the Binance venue driver.
type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{
		http:   httpx.NewBreaker(venue.Binance),
		client: httpx.NewClient(restBase),
		log:    log,
	}
}

func (d *Driver) Name() string { return venue.Binance }

func (d *Driver) HealthCheck(ctx context.Context) error {
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).Get("/ping")
		if err != nil {
			return scanerr.Wrap(venue.Binance, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Binance, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}

	var ticker bookTicker
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&ticker).
			SetQueryParam("symbol", strings.ToUpper(venueSymbol)).
			Get("/ticker/bookTicker")
		if rerr != nil {
			return scanerr.Wrap(venue.Binance, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Binance, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}

	bid, err := restutil.ParseDecimal(ticker.BidPrice, "bid price", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(ticker.AskPrice, "ask price", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(ticker.BidQty, "bid quantity", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(ticker.AskQty, "ask quantity", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(ticker.Symbol, venue.Binance)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Binance)), nil
}

func (d *Driver) SupportsStreaming() bool { return true }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	out := make(chan quote.Quote, 64)

	streamNames := make([]string, 0, len(symbols))
	for _, s := range symbols {
		ws, err := symbol.EncodeWS(s, venue.Binance)
		if err != nil {
			close(out)
			return out, err
		}
		streamNames = append(streamNames, ws+"@bookTicker")
	}
	url := wsBase + strings.Join(streamNames, "/")

	policy := supervisor.Policy{Reconnect: reconnect, MaxAttempts: maxAttempts}
	alive := func() bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	go func() {
		defer close(out)
		supervisor.Run(ctx, d.log, policy, alive, func(ctx context.Context) error {
			return d.runConnection(ctx, url, out, alive)
		})
	}()

	return out, nil
}

func (d *Driver) runConnection(ctx context.Context, url string, out chan<- quote.Quote, alive func() bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return scanerr.Wrap(venue.Binance, scanerr.ErrWsRpcError, err)
	}
	defer conn.Close()

	for {
		if !alive() {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return scanerr.Wrap(venue.Binance, scanerr.ErrWsRpcError, err)
		}

		var env streamEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			continue // single-frame parse errors are dropped, read loop continues
		}
		if env.Data.Symbol == "" {
			continue
		}

		q, err := parseStreamEvent(env.Data)
		if err != nil {
			continue
		}

		select {
		case out <- q:
		case <-ctx.Done():
			return nil
		}
	}
}

func parseStreamEvent(ev streamBookEvent) (quote.Quote, error) {
	bid, err := restutil.ParseDecimal(ev.BidPx, "bid price", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(ev.AskPx, "ask price", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(ev.BidQty, "bid quantity", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(ev.AskQty, "ask quantity", venue.Binance)
	if err != nil {
		return quote.Quote{}, err
	}
	canonical := symbol.Decode(ev.Symbol, venue.Binance)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Binance)), nil
}

var _ driver.Driver = (*Driver)(nil)
