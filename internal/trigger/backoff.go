package trigger

import (
	"math/rand"
	"time"
)

// backoff computes reconnect delays: exponential doubling from base up
// to max, with ±20% jitter so clients do not reconnect in lockstep.
type backoff struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max}
}

func (b *backoff) next() time.Duration {
	d := b.max
	if b.attempt < 16 {
		if scaled := b.base << b.attempt; scaled < b.max {
			d = scaled
		}
	}
	b.attempt++
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

func (b *backoff) reset() {
	b.attempt = 0
}
