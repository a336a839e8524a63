package scanner

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/driver"
	"github.com/ihsan215/aeon-market-scanner/internal/fees"
	"github.com/ihsan215/aeon-market-scanner/internal/quote"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
)

type fakeDriver struct {
	name      string
	bid, ask  string
	streaming bool
	stream    chan quote.Quote
}

func (f *fakeDriver) Name() string                          { return f.name }
func (f *fakeDriver) HealthCheck(ctx context.Context) error  { return nil }
func (f *fakeDriver) SupportsStreaming() bool                { return f.streaming }

func (f *fakeDriver) FetchQuote(ctx context.Context, symbol string) (quote.Quote, error) {
	return quote.New(symbol,
		decimal.RequireFromString(f.bid), decimal.RequireFromString(f.ask),
		decimal.NewFromInt(1), decimal.NewFromInt(1),
		0, venue.NewCex(f.name)), nil
}

func (f *fakeDriver) StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error) {
	if !f.streaming {
		return nil, driver.ErrStreamingUnsupported
	}
	return f.stream, nil
}

func TestScanOnce_ComputesOpportunityAcrossDrivers(t *testing.T) {
	a := &fakeDriver{name: "A", bid: "99", ask: "100"}
	b := &fakeDriver{name: "B", bid: "110", ask: "111"}

	out, err := ScanOnce(context.Background(), ScanRequest{
		Drivers:   []driver.Driver{a, b},
		Symbols:   []string{"BTCUSDT"},
		Overrides: fees.NewOverrides(),
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(out))
	}
	if out[0].SourceVenue != "A" || out[0].DestinationVenue != "B" {
		t.Errorf("source/destination = %s/%s, want A/B", out[0].SourceVenue, out[0].DestinationVenue)
	}
}

func TestScanOnce_SingleDriver_EmptyResult(t *testing.T) {
	a := &fakeDriver{name: "A", bid: "99", ask: "100"}
	out, err := ScanOnce(context.Background(), ScanRequest{
		Drivers:   []driver.Driver{a},
		Symbols:   []string{"BTCUSDT"},
		Overrides: fees.NewOverrides(),
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected 0 opportunities with a single venue, got %d", len(out))
	}
}

func TestScanStreaming_FansInAndEmitsOnEachQuote(t *testing.T) {
	aStream := make(chan quote.Quote, 4)
	bStream := make(chan quote.Quote, 4)
	a := &fakeDriver{name: "A", streaming: true, stream: aStream}
	b := &fakeDriver{name: "B", streaming: true, stream: bStream}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := ScanStreaming(ctx, StreamRequest{
		Drivers:   []driver.Driver{a, b},
		Symbols:   []string{"BTCUSDT"},
		Overrides: fees.NewOverrides(),
		Reconnect: false,
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("ScanStreaming: %v", err)
	}

	aStream <- quote.New("BTCUSDT", decimal.RequireFromString("99"), decimal.RequireFromString("100"), decimal.NewFromInt(1), decimal.NewFromInt(1), 0, venue.NewCex("A"))
	snapshot := <-out
	if len(snapshot) != 0 {
		t.Fatalf("expected no opportunities with only one venue quoted, got %d", len(snapshot))
	}

	bStream <- quote.New("BTCUSDT", decimal.RequireFromString("110"), decimal.RequireFromString("111"), decimal.NewFromInt(1), decimal.NewFromInt(1), 0, venue.NewCex("B"))
	snapshot = <-out
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 opportunity once both venues have quoted, got %d", len(snapshot))
	}
}

func TestScanStreaming_SkipsNonStreamingDriver(t *testing.T) {
	a := &fakeDriver{name: "A", streaming: false}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := ScanStreaming(ctx, StreamRequest{
		Drivers:   []driver.Driver{a},
		Symbols:   []string{"BTCUSDT"},
		Overrides: fees.NewOverrides(),
		Log:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("ScanStreaming: %v", err)
	}
	cancel()
	if _, ok := <-out; ok {
		t.Fatal("expected output channel to close with no streaming-capable drivers")
	}
}
