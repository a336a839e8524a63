package kyberswap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/dex/chains"
)

func routeResponseJSON(tokenIn, tokenOut, amountIn, amountOut string) string {
	b, _ := json.Marshal(routesResponse{
		Code: 0,
		Data: &routesData{
			RouteSummary: routeSummaryWire{
				TokenIn:   tokenIn,
				TokenOut:  tokenOut,
				AmountIn:  amountIn,
				AmountOut: amountOut,
			},
		},
	})
	return string(b)
}

// TestFetchQuote_ChainedSynthesis reproduces the worked example: a bid
// leg quoting 1000 USDT -> 0.5 ETH, then an ask leg reusing that 0.5 ETH
// as its own input and quoting 0.5 ETH -> 990 USDT.
func TestFetchQuote_ChainedSynthesis(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		tokenIn := r.URL.Query().Get("tokenIn")
		amountIn := r.URL.Query().Get("amountIn")

		w.Header().Set("Content-Type", "application/json")
		switch {
		case calls == 1:
			if amountIn != "1000000000" {
				t.Errorf("bid leg amountIn = %s, want 1000000000 (1000 USDT wei)", amountIn)
			}
			w.Write([]byte(routeResponseJSON(tokenIn, "eth", "1000000000", "500000000000000000")))
		case calls == 2:
			if amountIn != "500000000000000000" {
				t.Errorf("ask leg amountIn = %s, want bid leg's own amountOutWei", amountIn)
			}
			w.Write([]byte(routeResponseJSON(tokenIn, "usdt", "500000000000000000", "990000000")))
		default:
			t.Fatalf("unexpected third call")
		}
	}))
	defer server.Close()

	registry := chains.NewRegistry(chains.Ethereum,
		chains.Token{Address: "eth", Symbol: "ETH", Decimal: 18, ChainID: chains.Ethereum},
		chains.Token{Address: "usdt", Symbol: "USDT", Decimal: 6, ChainID: chains.Ethereum},
	)
	d, err := New(zerolog.Nop(), registry, "ETH", "USDT")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.client.SetBaseURL(server.URL)

	q, err := d.FetchQuote(context.Background(), "ETHUSDT")
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}

	if !q.Bid.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("bid = %s, want 2000", q.Bid)
	}
	if !q.Ask.Equal(decimal.RequireFromString("1980")) {
		t.Errorf("ask = %s, want 1980", q.Ask)
	}
	if !q.Mid.Equal(decimal.RequireFromString("1990")) {
		t.Errorf("mid = %s, want 1990", q.Mid)
	}
	if !q.BidQty.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("bid qty = %s, want 0.5", q.BidQty)
	}
	if !q.AskQty.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("ask qty = %s, want 0.5", q.AskQty)
	}
	if q.DexRoute == nil {
		t.Fatal("expected DexRoute to be populated")
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 route queries, got %d", calls)
	}
}

func TestNew_RejectsCrossChainPair(t *testing.T) {
	registry := chains.NewRegistry(chains.Ethereum,
		chains.Token{Address: "eth", Symbol: "ETH", Decimal: 18, ChainID: chains.Ethereum},
		chains.Token{Address: "bnb", Symbol: "BNB", Decimal: 18, ChainID: chains.BSC},
	)
	if _, err := New(zerolog.Nop(), registry, "ETH", "BNB"); err == nil {
		t.Fatal("expected error for cross-chain pair, got nil")
	}
}
