package scrape

import (
	"context"
	"math/rand"
	"time"
)

// Pacer inserts a polite delay with random jitter between requests.
type Pacer struct {
	// Base is the fixed part of the delay.
	Base time.Duration

	// Jitter is the upper bound of the random part added to Base.
	Jitter time.Duration
}

// Wait sleeps for Base plus a random jitter, or until ctx is done.
func (p Pacer) Wait(ctx context.Context) error {
	delay := p.Base
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Backoff produces an exponentially growing delay capped at Max.
// The zero value is unusable; use NewBackoff.
type Backoff struct {
	next time.Duration
	max  time.Duration
}

// NewBackoff returns a Backoff starting at start and capped at max.
func NewBackoff(start, max time.Duration) *Backoff {
	if start <= 0 {
		start = 5 * time.Second
	}
	if max < start {
		max = start
	}
	return &Backoff{next: start, max: max}
}

// Next returns the current delay and doubles it for the next call.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
