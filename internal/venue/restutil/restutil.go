// Package restutil holds the small pieces every REST-only venue driver
// repeats: decimal parsing with the venue name in the error, and Quote
// assembly from a parsed (bid, ask, bidQty, askQty) tuple.
package restutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/quote"
	"github.com/ihsan215/aeon-market-scanner/internal/scanerr"
	"github.com/ihsan215/aeon-market-scanner/internal/venue"
)

// ParseDecimal parses a numeric-or-string JSON field into a Decimal,
// naming the field in the error per the venue.
func ParseDecimal(raw interface{}, field, venueName string) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, scanerr.Wrap(venueName, scanerr.ErrParseError, fmt.Errorf("invalid %s %q", field, v))
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, scanerr.Wrap(venueName, scanerr.ErrParseError, fmt.Errorf("missing %s", field))
	}
}

// BuildQuote assembles a canonical Quote, deriving mid and stamping the
// ingestion wall-clock.
func BuildQuote(symbol string, bid, ask, bidQty, askQty decimal.Decimal, v venue.Tag) quote.Quote {
	return quote.New(symbol, bid, ask, bidQty, askQty, time.Now().UnixMilli(), v)
}
