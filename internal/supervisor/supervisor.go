// Package supervisor generalizes the reconnect-with-backoff loop every
// streaming venue driver in the teacher tree used to duplicate
// per-driver (see the Kraken WS client's reconnectCh pattern) into one
// combinator: exponential backoff, an attempt cap, and a consumer
// liveness probe checked both after a connect attempt and before the
// retry sleep.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Policy configures one supervised connection loop.
type Policy struct {
	Reconnect   bool
	MaxAttempts int // 0 means unlimited
}

// Run drives connect+run repeatedly per Policy until ctx is cancelled,
// the run function returns without an error worth retrying and
// Reconnect is false, or the attempt cap is exceeded.
//
// run should block for the lifetime of one connection and return when
// it disconnects or the context is cancelled. alive reports whether the
// consumer is still draining the output channel; when it returns false
// the loop exits immediately without sleeping.
func Run(ctx context.Context, log zerolog.Logger, policy Policy, alive func() bool, run func(ctx context.Context) error) {
	backoff := initialBackoff
	attempts := 0

	for {
		if ctx.Err() != nil || !alive() {
			return
		}

		err := run(ctx)

		if ctx.Err() != nil || !alive() {
			return
		}
		if err == nil && !policy.Reconnect {
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("stream disconnected")
		}
		if !policy.Reconnect {
			return
		}

		attempts++
		if policy.MaxAttempts > 0 && attempts > policy.MaxAttempts {
			log.Error().Int("attempts", attempts).Msg("max reconnect attempts exceeded")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
