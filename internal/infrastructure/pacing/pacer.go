package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces operations at least interval apart. The first Wait returns
// immediately.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a pacer. A non-positive interval disables pacing.
func New(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Noop returns a pacer that never blocks
func Noop() *Pacer {
	return New(0)
}

// Wait blocks until the next operation may start or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
