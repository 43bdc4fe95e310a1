package main

import (
	"math/rand/v2"
	"time"
)

const jitterWindow = 250 * time.Millisecond

// backoff doubles the idle delay after each failed batch, capped at max, and
// snaps back to base after a success.
type backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max, current: base}
}

func (b *backoff) reset() {
	b.current = b.base
}

func (b *backoff) fail() time.Duration {
	b.current = min(b.current*2, b.max)
	return b.current
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
