// Package symbol translates between one canonical ticker symbol
// (uppercase, no separators, e.g. BTCUSDT) and each venue's
// idiosyncratic wire representation.
//
// Every rule here is reproduced from the venue conventions enumerated
// in the specification: dash-split at USDT/USD/generic-3, underscore
// split, the Bitfinex "t" prefix with a one-way USDT->UST rewrite, the
// Kraken BTC<->XBT substitution, Upbit's quote-base reversal with a
// hard-coded USD->KRW mapping, and Binance/HTX/Kraken's streaming-only
// case or separator differences.
package symbol

import (
	"fmt"
	"strings"

	"github.com/ihsan215/aeon-market-scanner/internal/scanerr"
)

// Normalize uppercases and strips '-' and '_'. Idempotent.
func Normalize(s string) (string, error) {
	n := strings.ToUpper(s)
	n = strings.ReplaceAll(n, "-", "")
	n = strings.ReplaceAll(n, "_", "")
	if n == "" {
		return "", fmt.Errorf("%w: empty symbol", scanerr.ErrInvalidSymbol)
	}
	return n, nil
}

// splitQuote finds the split point for a 4-char quote (USDT), 3-char
// quote (USD and other common 3-letter quotes), or a generic last-3
// fallback. Mirrors format_symbol_for_exchange's three-way cascade.
func splitQuote(n string) (base, quoteSep string, err error) {
	switch {
	case len(n) >= 7 && strings.HasSuffix(n, "USDT"):
		p := len(n) - 4
		return n[:p], n[p:], nil
	case len(n) >= 6 && strings.HasSuffix(n, "USD"):
		p := len(n) - 3
		return n[:p], n[p:], nil
	case len(n) >= 6:
		p := len(n) - 3
		return n[:p], n[p:], nil
	default:
		return "", "", fmt.Errorf("%w: symbol too short: %s", scanerr.ErrInvalidSymbol, n)
	}
}

func dashSplit(n string) (string, error) {
	base, q, err := splitQuote(n)
	if err != nil {
		return "", err
	}
	return base + "-" + q, nil
}

func underscoreSplit(n string) (string, error) {
	base, q, err := splitQuote(n)
	if err != nil {
		return "", err
	}
	return base + "_" + q, nil
}

// EncodeRest converts a canonical symbol to the venue-specific REST form.
func EncodeRest(canonical, venueName string) (string, error) {
	n, err := Normalize(canonical)
	if err != nil {
		return "", err
	}

	switch venueName {
	// Standard format: no separators.
	case "Binance", "Bybit", "MEXC", "Bitget", "Btcturk":
		return n, nil

	// Dash separator.
	case "OKX", "Kucoin", "Coinbase":
		return dashSplit(n)

	// Lowercase, no separators.
	case "HTX":
		return strings.ToLower(n), nil

	// BTC -> XBT substitution only.
	case "Kraken":
		if strings.HasPrefix(n, "BTC") {
			return strings.Replace(n, "BTC", "XBT", 1), nil
		}
		return n, nil

	// Underscore separator.
	case "Gateio", "Crypto.com":
		return underscoreSplit(n)

	// "t" prefix, USDT -> UST, one-way.
	case "Bitfinex":
		body := n
		if strings.HasSuffix(n, "USDT") {
			body = strings.Replace(n, "USDT", "UST", 1)
		}
		return "t" + body, nil

	// Quote-base reversal, hard USD->KRW mapping.
	case "Upbit":
		return upbitEncode(n)

	default:
		return "", fmt.Errorf("%w: unknown venue %s", scanerr.ErrInvalidSymbol, venueName)
	}
}

func upbitEncode(n string) (string, error) {
	switch {
	case len(n) >= 7 && strings.HasSuffix(n, "USDT"):
		p := len(n) - 4
		return "USDT-" + n[:p], nil
	case len(n) >= 6 && strings.HasSuffix(n, "KRW"):
		p := len(n) - 3
		return "KRW-" + n[:p], nil
	case len(n) >= 6 && strings.HasSuffix(n, "USD"):
		p := len(n) - 3
		return "KRW-" + n[:p], nil
	case len(n) >= 6 && strings.HasSuffix(n, "BTC"):
		p := len(n) - 3
		return "BTC-" + n[:p], nil
	case strings.HasPrefix(n, "BTC") && len(n) >= 7:
		return n[:3] + "-" + n[3:], nil
	case len(n) >= 6:
		p := len(n) - 3
		if len(n) >= 7 {
			p = len(n) - 4
		}
		return n[p:] + "-" + n[:p], nil
	default:
		return "", fmt.Errorf("%w: symbol too short for Upbit: %s", scanerr.ErrInvalidSymbol, n)
	}
}

// EncodeWS converts a canonical symbol to the venue-specific streaming
// form. Identical to EncodeRest except where a venue's streaming API
// differs in case or separator (Binance lowercases; Kraken's stream
// uses a readable BASE/QUOTE slash pair rather than the XBT rewrite).
func EncodeWS(canonical, venueName string) (string, error) {
	rest, err := EncodeRest(canonical, venueName)
	if err != nil {
		return "", err
	}

	switch venueName {
	case "Binance":
		return strings.ToLower(rest), nil
	case "Kraken":
		n, err := Normalize(canonical)
		if err != nil {
			return "", err
		}
		base, q, err := splitQuote(n)
		if err != nil {
			return rest, nil
		}
		return base + "/" + q, nil
	default:
		return rest, nil
	}
}

// Decode recovers the canonical form from a venue-specific wire string.
// For Bitfinex and Upbit this recovers the *venue* form rather than the
// original canonical input, per the documented lossy USDT->UST and
// USD->KRW rules — decode does not invert those two.
func Decode(venueString, venueName string) string {
	s := venueString

	switch venueName {
	case "Bitfinex":
		s = strings.TrimPrefix(s, "t")
		s = strings.TrimPrefix(s, "T")
		return strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(s, "-", ""), "_", ""))

	case "Kraken":
		s = strings.ReplaceAll(s, "/", "")
		n := strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(s, "-", ""), "_", ""))
		if strings.HasPrefix(n, "XBT") {
			n = strings.Replace(n, "XBT", "BTC", 1)
		}
		return n

	case "Upbit":
		n := strings.ToUpper(s)
		parts := strings.SplitN(n, "-", 2)
		if len(parts) == 2 {
			return parts[1] + parts[0]
		}
		return strings.ReplaceAll(strings.ReplaceAll(n, "-", ""), "_", "")

	default:
		return strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(s, "-", ""), "_", ""))
	}
}
