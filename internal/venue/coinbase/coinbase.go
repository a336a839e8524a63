// Package coinbase implements the Coinbase venue driver: REST level-1
// order book for one-shot quotes and a "ticker" channel WebSocket
// subscription (spec.md Variant A) for continuous quotes.
//
// Grounded in original_source/src/cex/coinbase/mod.rs and types.rs.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
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
	restBase = "https://api.exchange.coinbase.com"
	wsFeed   = "wss://ws-feed.exchange.coinbase.com"
	// identifies the caller to Coinbase's public API, as its endpoints
	// reject requests carrying no User-Agent at all.
	userAgent = "aeon-market-scanner/1.0"
)

type orderBookResponse struct {
	Bids [][]json.RawMessage `json:"bids"`
	Asks [][]json.RawMessage `json:"asks"`
}

type errorEnvelope struct {
	Message string `json:"message"`
}

type tickerFrame struct {
	Type         string `json:"type"`
	ProductID    string `json:"product_id"`
	BestBid      string `json:"best_bid"`
	BestBidSize  string `json:"best_bid_size"`
	BestAsk      string `json:"best_ask"`
	BestAskSize  string `json:"best_ask_size"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	client := httpx.NewClient(restBase).SetHeader("User-Agent", userAgent)
	return &Driver{http: httpx.NewBreaker(venue.Coinbase), client: client, log: log}
}

func (d *Driver) Name() string { return venue.Coinbase }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var body struct {
		ISO string `json:"iso"`
	}
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&body).Get("/time")
		if err != nil {
			return scanerr.Wrap(venue.Coinbase, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Coinbase, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if body.ISO == "" {
			return scanerr.Wrap(venue.Coinbase, scanerr.ErrHealthCheckFailed, fmt.Errorf("missing iso timestamp"))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Coinbase)
	if err != nil {
		return quote.Quote{}, err
	}

	var book orderBookResponse
	var errBody errorEnvelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).
			SetQueryParam("level", "1").
			Get(fmt.Sprintf("/products/%s/book", venueSymbol))
		if rerr != nil {
			return scanerr.Wrap(venue.Coinbase, scanerr.ErrHttpTransport, rerr)
		}
		if resp.StatusCode() == 404 {
			_ = json.Unmarshal(resp.Body(), &errBody)
			return scanerr.NewApiError(venue.Coinbase, "404", fmt.Sprintf("symbol %s not found: %s", sym, errBody.Message))
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Coinbase, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		if err := json.Unmarshal(resp.Body(), &errBody); err == nil && errBody.Message == "NotFound" {
			return scanerr.NewApiError(venue.Coinbase, "0", fmt.Sprintf("symbol %s not found", sym))
		}
		return json.Unmarshal(resp.Body(), &book)
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Coinbase, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}

	bid, err := restutil.ParseDecimal(rawString(book.Bids[0][0]), "bid price", venue.Coinbase)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(rawString(book.Asks[0][0]), "ask price", venue.Coinbase)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(rawString(book.Bids[0][1]), "bid quantity", venue.Coinbase)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(rawString(book.Asks[0][1]), "ask quantity", venue.Coinbase)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(venueSymbol, venue.Coinbase)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Coinbase)), nil
}

func rawString(m json.RawMessage) string {
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s
	}
	return string(m)
}

func (d *Driver) SupportsStreaming() bool { return true }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	if len(symbols) == 0 {
		return nil, scanerr.Wrap(venue.Coinbase, scanerr.ErrInvalidSymbol, fmt.Errorf("at least one symbol required"))
	}

	productIDs := make([]string, 0, len(symbols))
	for _, s := range symbols {
		ws, err := symbol.EncodeWS(s, venue.Coinbase)
		if err != nil {
			return nil, err
		}
		productIDs = append(productIDs, ws)
	}

	out := make(chan quote.Quote, 64)
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
			return d.runConnection(ctx, productIDs, out, alive)
		})
	}()

	return out, nil
}

func (d *Driver) runConnection(ctx context.Context, productIDs []string, out chan<- quote.Quote, alive func() bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsFeed, nil)
	if err != nil {
		return scanerr.Wrap(venue.Coinbase, scanerr.ErrWsRpcError, err)
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"type":        "subscribe",
		"product_ids": productIDs,
		"channels":    []string{"ticker"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return scanerr.Wrap(venue.Coinbase, scanerr.ErrWsRpcError, err)
	}

	for {
		if !alive() {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return scanerr.Wrap(venue.Coinbase, scanerr.ErrWsRpcError, err)
		}

		var frame tickerFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Type != "ticker" {
			continue
		}

		q, ok := parseTicker(frame)
		if !ok {
			continue
		}

		select {
		case out <- q:
		case <-ctx.Done():
			return nil
		}
	}
}

func parseTicker(f tickerFrame) (quote.Quote, bool) {
	bid, err := restutil.ParseDecimal(f.BestBid, "bid price", venue.Coinbase)
	if err != nil {
		return quote.Quote{}, false
	}
	ask, err := restutil.ParseDecimal(f.BestAsk, "ask price", venue.Coinbase)
	if err != nil {
		return quote.Quote{}, false
	}
	if !bid.IsPositive() || !ask.IsPositive() {
		return quote.Quote{}, false
	}
	bidQty, _ := restutil.ParseDecimal(f.BestBidSize, "bid size", venue.Coinbase)
	askQty, _ := restutil.ParseDecimal(f.BestAskSize, "ask size", venue.Coinbase)

	canonical := symbol.Decode(f.ProductID, venue.Coinbase)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Coinbase)), true
}

var _ driver.Driver = (*Driver)(nil)
