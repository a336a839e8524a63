// Package httpx provides the shared REST transport used by the
// REST-only venue drivers and the KyberSwap client: a resty client with
// a default 5-second timeout, wrapped per-venue by a gobreaker circuit
// breaker so a failing venue stops being hammered with requests. Every
// call through a Breaker is also throttled by a per-venue token bucket
// and counted against a per-venue daily request budget, since exchange
// REST APIs are the thing actually rate-limiting the driver.
package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/ihsan215/aeon-market-scanner/internal/net/budget"
	"github.com/ihsan215/aeon-market-scanner/internal/net/ratelimit"
)

const defaultTimeout = 5 * time.Second

// defaultRPS/defaultBurst are the fallback per-venue REST throttle
// applied when no venue-specific limit has been set. Individual
// drivers can tighten or loosen this with SetVenueLimit.
const (
	defaultRPS   = 8.0
	defaultBurst = 16

	// defaultDailyBudget is generous on purpose: it exists to catch a
	// runaway polling loop, not to model any single venue's actual
	// published quota.
	defaultDailyBudget = 200_000
)

// rateLimiters and budgets are shared across every Breaker so the
// per-venue limiter/tracker state lives for the process lifetime
// regardless of how many Breaker values a driver constructs.
var (
	rateLimiters = ratelimit.NewManager()
	budgets      = budget.NewManager()
)

// SetVenueLimit overrides the default REST throttle for a venue. Call
// before constructing that venue's Breaker.
func SetVenueLimit(venue string, rps float64, burst int) {
	rateLimiters.AddProvider(venue, rps, burst)
}

// SetVenueDailyBudget overrides the default daily request budget for a
// venue. Call before constructing that venue's Breaker.
func SetVenueDailyBudget(venue string, limit int64) {
	budgets.AddProvider(venue, limit, 0, 0.8)
}

// NewClient builds a resty client pinned to baseURL with the
// specification's default 5-second REST timeout.
func NewClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout)
}

// Breaker wraps a venue's REST calls in a circuit breaker, a per-venue
// rate limiter, and a per-venue daily request budget, so a failing or
// over-quota venue stops being hammered with requests.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(name string) *Breaker {
	if _, ok := rateLimiters.GetLimiter(name); !ok {
		rateLimiters.AddProvider(name, defaultRPS, defaultBurst)
	}
	if _, ok := budgets.GetTracker(name); !ok {
		budgets.AddProvider(name, defaultDailyBudget, 0, 0.8)
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(st)}
}

// Call waits for the venue's rate limiter, checks its daily budget,
// then executes fn through the circuit breaker. A budget warning (as
// opposed to exhaustion) is logged by the caller, not here: Call only
// fails on hard exhaustion.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := rateLimiters.Wait(ctx, b.name, b.name); err != nil {
		return fmt.Errorf("httpx: %s: rate limiter: %w", b.name, err)
	}
	if err := budgets.Consume(b.name); err != nil {
		var exhausted *budget.BudgetExhaustedError
		if isBudgetExhausted(err, &exhausted) {
			return fmt.Errorf("httpx: %s: %w", b.name, err)
		}
		// Warning-threshold errors are non-fatal; the request still goes through.
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

func isBudgetExhausted(err error, target **budget.BudgetExhaustedError) bool {
	e, ok := err.(*budget.BudgetExhaustedError)
	if ok {
		*target = e
	}
	return ok
}
