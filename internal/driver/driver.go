// Package driver defines the capability set every venue exposes,
// CEX or DEX alike. It is kept separate from package venue (which owns
// the Tag/Key identity types) and package quote (which owns the Quote
// record) solely to avoid an import cycle: Quote embeds a venue.Tag, so
// this interface — which must reference quote.Quote — cannot live
// alongside Tag itself.
package driver

import (
	"context"
	"errors"

	"github.com/ihsan215/aeon-market-scanner/internal/quote"
)

// ErrStreamingUnsupported is returned by StreamQuotes on a driver whose
// SupportsStreaming is false.
var ErrStreamingUnsupported = errors.New("venue does not support streaming")

// Driver is implemented once per venue. Wire-format parsing is
// genuinely per-venue and lives in each driver's own package; this
// interface only fixes the shared shape.
type Driver interface {
	Name() string
	HealthCheck(ctx context.Context) error
	FetchQuote(ctx context.Context, symbol string) (quote.Quote, error)
	// StreamQuotes opens a continuous subscription for symbols.
	// maxAttempts == 0 means unlimited reconnect attempts.
	StreamQuotes(ctx context.Context, symbols []string, reconnect bool, maxAttempts int) (<-chan quote.Quote, error)
	SupportsStreaming() bool
}
