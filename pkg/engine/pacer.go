package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the mandatory delay between automated UI mutations.
// This is a correctness requirement, not an optimization: sub-threshold
// pacing trips the platform's bot detection, which silently invalidates
// the batch.
type Pacer interface {
	Pace(ctx context.Context) error
}

// Default pacing bounds, tuned to stay on the human-plausible side of
// the platform's detection threshold.
const (
	DefaultMinInterval = 2 * time.Second
	DefaultMaxJitter   = 3 * time.Second
)

// HumanPacer combines a hard rate floor with randomized jitter. The
// limiter serializes the floor across goroutines, so the minimum
// interval holds even when multiple tabs are in play.
type HumanPacer struct {
	limiter   *rate.Limiter
	maxJitter time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewHumanPacer builds a pacer with the given minimum interval between
// mutations and up to maxJitter of extra random delay per mutation.
func NewHumanPacer(minInterval, maxJitter time.Duration) *HumanPacer {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if maxJitter < 0 {
		maxJitter = DefaultMaxJitter
	}
	return &HumanPacer{
		limiter:   rate.NewLimiter(rate.Every(minInterval), 1),
		maxJitter: maxJitter,
		sleep:     sleepCtx,
	}
}

// SetSleepFunc overrides the jitter sleep (for testing).
func (p *HumanPacer) SetSleepFunc(sleep func(ctx context.Context, d time.Duration) error) {
	p.sleep = sleep
}

// Pace blocks until the rate floor admits another mutation, then adds
// random jitter. Returns early with ctx.Err() on cancellation.
func (p *HumanPacer) Pace(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if p.maxJitter > 0 {
		jitter := time.Duration(rand.Int64N(int64(p.maxJitter)))
		return p.sleep(ctx, jitter)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
