package protocol

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes the delay before a retry attempt. It is not used by
// the multiplexer itself — the spec's timeout/cancel semantics are
// authoritative for in-flight requests — but is offered for reconnect
// logic a real Transport implementation wants to reuse (spec.md
// "Supplemented features"), generalized from the teacher's
// client/backoff.go ExponentialBackoff/ConstantBackoff pair into a single
// strategy.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
	Jitter  float64

	rand *rand.Rand
}

// NewBackoff returns an exponential backoff strategy with a 20% jitter,
// matching the teacher's ExponentialBackoff defaults.
func NewBackoff(initial, max time.Duration) *Backoff {
	return &Backoff{
		Initial: initial,
		Max:     max,
		Factor:  2.0,
		Jitter:  0.2,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextDelay returns the delay before attempt (1-indexed); attempt 0 or
// negative returns no delay.
func (b *Backoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	delay := float64(b.Initial) * math.Pow(b.Factor, float64(attempt-1))
	if b.Jitter > 0 {
		jitterRange := delay * b.Jitter
		delay += (b.rand.Float64() - 0.5) * jitterRange
	}
	if delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
