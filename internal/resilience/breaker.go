// Package resilience provides a circuit breaker for infrastructure-facing
// calls (store, cache, notification sinks), so a struggling Postgres or
// Redis instance does not turn into a retry storm against itself and a
// stuck Slack/push endpoint does not block whatever calls it. No call path
// in this repository is wrapped in a Guard; the package is standalone.
//
// Grounded on the teacher's capability-injection style: rather than
// threading breaker logic into every store method, this package exposes
// a single Guard that any capability caller can wrap a function call in.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	broker_errors "github.com/leadbroker/broker/pkg/errors"
)

// Guard runs calls to a single infrastructure dependency through a named
// circuit breaker.
type Guard struct {
	cb *gobreaker.CircuitBreaker
}

// NewGuard creates a Guard named for the dependency it protects (e.g.
// "postgres", "redis", "slack"), tripping after 5 consecutive failures
// and probing again after 30 seconds half-open.
func NewGuard(name string) *Guard {
	return &Guard{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})}
}

// Run executes fn through the breaker. An open breaker surfaces
// ErrStoreUnavailable rather than gobreaker's own sentinel, so callers
// only need to handle pkg/errors' taxonomy.
func (g *Guard) Run(ctx context.Context, fn func() error) error {
	_, err := g.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return broker_errors.ErrStoreUnavailable
		}
		return err
	}
	return nil
}
