// Package kraken implements the Kraken venue driver: REST depth for
// one-shot quotes and a channel-ID-correlated WebSocket book
// subscription (spec.md Variant C) for continuous quotes.
//
// REST grounded in original_source/src/cex/kraken/mod.rs and types.rs.
// Streaming grounded in sawpanic-cryptorun's
// internal/providers/kraken/websocket.go subscriptionStatus/channelID
// correlation pattern, generalized onto internal/supervisor.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
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
	restBase = "https://api.kraken.com/0/public"
	wsPublic = "wss://ws.kraken.com"
)

type depthEnvelope struct {
	Error  []string                 `json:"error"`
	Result map[string]depthPairData `json:"result"`
}

type depthPairData struct {
	Bids [][]json.RawMessage `json:"bids"`
	Asks [][]json.RawMessage `json:"asks"`
}

type subscriptionStatus struct {
	Event       string `json:"event"`
	ChannelID   int    `json:"channelID"`
	ChannelName string `json:"channelName"`
	Status      string `json:"status"`
	Pair        string `json:"pair"`
}

type Driver struct {
	http   *httpx.Breaker
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Driver {
	return &Driver{http: httpx.NewBreaker(venue.Kraken), client: httpx.NewClient(restBase), log: log}
}

func (d *Driver) Name() string { return venue.Kraken }

func (d *Driver) HealthCheck(ctx context.Context) error {
	var env struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	return d.http.Call(ctx, func(ctx context.Context) error {
		resp, err := d.client.R().SetContext(ctx).SetResult(&env).Get("/Time")
		if err != nil {
			return scanerr.Wrap(venue.Kraken, scanerr.ErrHttpTransport, err)
		}
		if resp.IsError() {
			return scanerr.Wrap(venue.Kraken, scanerr.ErrHealthCheckFailed, fmt.Errorf("status %d", resp.StatusCode()))
		}
		if len(env.Error) != 0 || len(env.Result) == 0 {
			return scanerr.Wrap(venue.Kraken, scanerr.ErrHealthCheckFailed, fmt.Errorf("error=%v", env.Error))
		}
		return nil
	})
}

func (d *Driver) FetchQuote(ctx context.Context, sym string) (quote.Quote, error) {
	venueSymbol, err := symbol.EncodeRest(sym, venue.Kraken)
	if err != nil {
		return quote.Quote{}, err
	}

	var env depthEnvelope
	err = d.http.Call(ctx, func(ctx context.Context) error {
		resp, rerr := d.client.R().SetContext(ctx).SetResult(&env).
			SetQueryParams(map[string]string{"pair": venueSymbol, "count": "1"}).
			Get("/Depth")
		if rerr != nil {
			return scanerr.Wrap(venue.Kraken, scanerr.ErrHttpTransport, rerr)
		}
		if resp.IsError() {
			return scanerr.NewApiError(venue.Kraken, fmt.Sprintf("%d", resp.StatusCode()), resp.String())
		}
		return nil
	})
	if err != nil {
		return quote.Quote{}, err
	}
	if len(env.Error) != 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Kraken, "0", fmt.Sprintf("%v", env.Error))
	}

	var pair depthPairData
	found := false
	for _, v := range env.Result {
		pair = v
		found = true
		break
	}
	if !found || len(pair.Bids) == 0 || len(pair.Asks) == 0 {
		return quote.Quote{}, scanerr.NewApiError(venue.Kraken, "0", fmt.Sprintf("no bid/ask for symbol: %s", sym))
	}

	bid, err := restutil.ParseDecimal(rawString(pair.Bids[0][0]), "bid price", venue.Kraken)
	if err != nil {
		return quote.Quote{}, err
	}
	ask, err := restutil.ParseDecimal(rawString(pair.Asks[0][0]), "ask price", venue.Kraken)
	if err != nil {
		return quote.Quote{}, err
	}
	bidQty, err := restutil.ParseDecimal(rawString(pair.Bids[0][1]), "bid quantity", venue.Kraken)
	if err != nil {
		return quote.Quote{}, err
	}
	askQty, err := restutil.ParseDecimal(rawString(pair.Asks[0][1]), "ask quantity", venue.Kraken)
	if err != nil {
		return quote.Quote{}, err
	}

	canonical, err := symbol.Normalize(sym)
	if err != nil {
		return quote.Quote{}, err
	}
	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Kraken)), nil
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
		return nil, scanerr.Wrap(venue.Kraken, scanerr.ErrInvalidSymbol, fmt.Errorf("at least one symbol required"))
	}

	pairs := make([]string, 0, len(symbols))
	canonicalByWS := make(map[string]string, len(symbols))
	for _, s := range symbols {
		ws, err := symbol.EncodeWS(s, venue.Kraken)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, ws)
		n, err := symbol.Normalize(s)
		if err != nil {
			return nil, err
		}
		canonicalByWS[ws] = n
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
			return d.runConnection(ctx, pairs, canonicalByWS, out, alive)
		})
	}()

	return out, nil
}

func (d *Driver) runConnection(ctx context.Context, pairs []string, canonicalByWS map[string]string, out chan<- quote.Quote, alive func() bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsPublic, nil)
	if err != nil {
		return scanerr.Wrap(venue.Kraken, scanerr.ErrWsRpcError, err)
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"event": "subscribe",
		"pair":  pairs,
		"subscription": map[string]interface{}{
			"name":  "book",
			"depth": 10,
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return scanerr.Wrap(venue.Kraken, scanerr.ErrWsRpcError, err)
	}

	var mu sync.Mutex
	channelPair := make(map[int]string)

	for {
		if !alive() {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return scanerr.Wrap(venue.Kraken, scanerr.ErrWsRpcError, err)
		}

		if status, ok := tryParseStatus(msg); ok {
			if status.Status == "subscribed" {
				mu.Lock()
				channelPair[status.ChannelID] = status.Pair
				mu.Unlock()
			}
			continue
		}

		var arr []json.RawMessage
		if err := json.Unmarshal(msg, &arr); err != nil || len(arr) < 3 {
			continue
		}
		var channelID int
		if err := json.Unmarshal(arr[0], &channelID); err != nil {
			continue
		}
		mu.Lock()
		pair := channelPair[channelID]
		mu.Unlock()
		canonical, known := canonicalByWS[pair]
		if !known {
			continue
		}

		q, ok := parseBookMessage(arr[1], canonical)
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

func tryParseStatus(msg []byte) (subscriptionStatus, bool) {
	var s subscriptionStatus
	if err := json.Unmarshal(msg, &s); err != nil {
		return subscriptionStatus{}, false
	}
	if s.Event != "subscriptionStatus" {
		return subscriptionStatus{}, false
	}
	return s, true
}

// parseBookMessage extracts top-of-book from a Kraken book payload,
// which carries either a snapshot ("bs"/"as") or an incremental update
// ("b"/"a") of [price, volume, timestamp] triples.
func parseBookMessage(raw json.RawMessage, canonical string) (quote.Quote, bool) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return quote.Quote{}, false
	}

	bidLevels, bidKey := firstPresent(payload, "bs", "b")
	askLevels, askKey := firstPresent(payload, "as", "a")
	if bidKey == "" || askKey == "" {
		return quote.Quote{}, false
	}

	var bids, asks [][]json.RawMessage
	if err := json.Unmarshal(bidLevels, &bids); err != nil || len(bids) == 0 {
		return quote.Quote{}, false
	}
	if err := json.Unmarshal(askLevels, &asks); err != nil || len(asks) == 0 {
		return quote.Quote{}, false
	}

	bid, err := restutil.ParseDecimal(rawString(bids[0][0]), "bid price", venue.Kraken)
	if err != nil {
		return quote.Quote{}, false
	}
	ask, err := restutil.ParseDecimal(rawString(asks[0][0]), "ask price", venue.Kraken)
	if err != nil {
		return quote.Quote{}, false
	}
	bidQty, _ := restutil.ParseDecimal(rawString(bids[0][1]), "bid size", venue.Kraken)
	askQty, _ := restutil.ParseDecimal(rawString(asks[0][1]), "ask size", venue.Kraken)

	return restutil.BuildQuote(canonical, bid, ask, bidQty, askQty, venue.NewCex(venue.Kraken)), true
}

func firstPresent(payload map[string]json.RawMessage, keys ...string) (json.RawMessage, string) {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			return v, k
		}
	}
	return nil, ""
}

var _ driver.Driver = (*Driver)(nil)
