package scraper

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate spaces out scrape attempt sequences so the target site never sees
// bursts. The first waiter passes immediately; each later waiter is held
// until the minimum interval has elapsed since the previous pass. Waiters
// are served in arrival order.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate creates a gate with the given minimum spacing between passes.
func NewGate(minInterval time.Duration) *Gate {
	return &Gate{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the caller may start a scrape sequence, or until ctx
// is done. A successful return consumes the slot regardless of how the
// scrape itself ends.
func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
