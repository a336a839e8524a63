// Package bybit implements the Bybit venue driver: REST spot tickers
// (retCode==0 envelope) and an L1-book WebSocket subscription
// (spec.md Variant D, orderbook.1.<symbol> topics).
//
// Grounded in original_source/src/cex/bybit/mod.rs, including its
// manual reconnect-with-backoff loop (now delegated to
// internal/supervisor) and its subscribe message shape.
package bybit

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
	restBase = "https://api.bybit.com/v5"
	wsSpot   = "wss://stream.bybit.com/v5/public/spot"
)

type tickerEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  tickerResultSet `json:"result"`
}

type tickerResultSet struct {
	List []tickerData `json:"list"`
}

type tickerData struct {
	Symbol     string `json:"symbol"`
	Bid1Price  string `json:"bid1Price"`
	Bid1Size   string `json:"bid1Size"`
	Ask1Price  string `json:"ask1Price"`
	Ask1Size   string `json:"ask1Size"`
}

type orderbookWsMessage struct {
	Topic string         `json:"topic"`
	Type  string         `json:"type"`
	Data  orderbookFrame `json:"data"`
}

type orderbookFrame struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Bybit), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Bybit }

func (d *Driver) HealthCheck(ctx context.Context) error {
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).Get("/market/time")
		if err != nil {
			return scanerr.Wrap(venue.Bybit, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Bybit, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Bybit)
	if err != nil {
		return quote.Quote{}, err
	}

	var env tickerEnvelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"category": "spot", "symbol": venueSymbol}).
			Get("/market/tickers")
		if rerr != nil {
			return scanerr.Wrap(venue.Bybit, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Bybit, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if env.RetCode != 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Bybit, fmt.Sprintf("%d", env.RetCode), env.RetMsg)
	}
	if len(env.Result.List) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Bybit, "0", "empty ticker list")
	}
	t := env.Result.List[0]

	bid, err := restutil.ParseDecimal(t.Bid1Price, "bid price", venue.Bybit)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(t.Ask1Price, "ask price", venue.Bybit)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(t.Bid1Size, "bid quantity", venue.Bybit)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(t.Ask1Size, "ask quantity", venue.Bybit)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical := symbol.Decode(t.Symbol, venue.Bybit)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Bybit)), nil
}

func (d *Driver) SupportsStreaming() bool { return true }

func (d *Driver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	if len(symbols) == 0 {
		return nil, scanerr.Wrap(venue.Bybit, scanerr.ErrInvalidSymbol, fmt.Errorf("at least one symbol required"))
	}

	topics := make([]string, 0, len(symbols))
	for _, s := range symbols {
		ws, err := symbol.EncodeWS(s, venue.Bybit)
		if err != nil {
			return nil, err
		}
		topics = append(topics, "orderbook.1."+ws)
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
			return d.runConnection(ctx, topics, out, alive)
		})
	}()

	return out, nil
}

func (d *Driver) runConnection(ctx context.Context, topics []string, out chan<- quote.Quote, alive func() bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsSpot, nil)
	if err != nil {
		return scanerr.Wrap(venue.Bybit, scanerr.ErrWsRpcError, err)
	}
	defer conn.Close()

	sub := map[string]interface{}{"op": "subscribe", "args": topics}
	if err := conn.WriteJSON(sub); err != nil {
		return scanerr.Wrap(venue.Bybit, scanerr.ErrWsRpcError, err)
	}

	for {
		if !alive() {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return scanerr.Wrap(venue.Bybit, scanerr.ErrWsRpcError, err)
		}

		var frame orderbookWsMessage
		if err := json.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Type != "snapshot" {
			continue
		}

		q, ok := parseFrame(frame.Data)
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

func parseFrame(f orderbookFrame) (quote.Quote, bool) {
	if len(f.Bids) == 0 || len(f.Asks) == 0 {
		return quote.Quote{}, false
	}
	bid, err := restutil.ParseDecimal(f.Bids[0][0], "bid price", venue.Bybit)
	if err != nil {
		return quote.Quote{}, false
	}
	ask, err := restutil.ParseDecimal(f.Asks[0][0], "ask price", venue.Bybit)
	if err != nil {
		return quote.Quote{}, false
	}
	if !bid.IsPositive() || !ask.IsPositive() {
		return quote.Quote{}, false
	}
	bidQty, _ := restutil.ParseDecimal(f.Bids[0][1], "bid size", venue.Bybit)
	askQty, _ := restutil.ParseDecimal(f.Asks[0][1], "ask size", venue.Bybit)

	canonical := symbol.Decode(f.Symbol, venue.Bybit)
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Bybit)), true
}

var _ driver.Driver = (*Driver)(nil)
