package fees

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/venue"
)

func TestRate_DefaultTable(t *testing.T) {
	rate := Rate(venue.NewCex(venue.Binance), NewOverrides())
	if !rate.Equal(decimal.NewFromFloat(0.0010)) {
		t.Errorf("Binance default rate = %s, want 0.0010", rate)
	}
}

func TestRate_KyberSwapDefaultsZero(t *testing.T) {
	rate := Rate(venue.NewDex(venue.KyberSwap), NewOverrides())
	if !rate.IsZero() {
		t.Errorf("KyberSwap default rate = %s, want 0", rate)
	}
}

func TestRate_UnlistedVenueDefaultsZero(t *testing.T) {
	rate := Rate(venue.NewCex("Nonexistent"), NewOverrides())
	if !rate.IsZero() {
		t.Errorf("unlisted venue rate = %s, want 0", rate)
	}
}

func TestOverrides_TakesPrecedenceOverDefault(t *testing.T) {
	overrides := NewOverrides().With(venue.Binance, decimal.NewFromFloat(0.02))
	rate := Rate(venue.NewCex(venue.Binance), overrides)
	if !rate.Equal(decimal.NewFromFloat(0.02)) {
		t.Errorf("overridden rate = %s, want 0.02", rate)
	}
}

func TestOverrides_With_DoesNotMutateReceiver(t *testing.T) {
	base := NewOverrides()
	_ = base.With(venue.Binance, decimal.NewFromFloat(0.02))

	rate := Rate(venue.NewCex(venue.Binance), base)
	if !rate.Equal(decimal.NewFromFloat(0.0010)) {
		t.Errorf("base overrides mutated: rate = %s, want unmodified default 0.0010", rate)
	}
}

func TestEffectivePrice_BuyAddsFee(t *testing.T) {
	v := venue.NewCex(venue.Binance)
	price := EffectivePrice(decimal.NewFromInt(100), v, Buy, NewOverrides())
	if !price.Equal(decimal.NewFromFloat(100.1)) {
		t.Errorf("buy effective price = %s, want 100.1", price)
	}
}

func TestEffectivePrice_SellSubtractsFee(t *testing.T) {
	v := venue.NewCex(venue.Binance)
	price := EffectivePrice(decimal.NewFromInt(100), v, Sell, NewOverrides())
	if !price.Equal(decimal.NewFromFloat(99.9)) {
		t.Errorf("sell effective price = %s, want 99.9", price)
	}
}
