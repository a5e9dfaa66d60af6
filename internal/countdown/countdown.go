// Package countdown implements the attempt timer.
package countdown

import (
	"context"
	"time"
)

// Countdown holds the remaining seconds of an attempt. It is not safe for
// concurrent use; the attempt loop owns it.
type Countdown struct {
	remaining int
	fired     bool
}

// New returns a countdown starting at seconds. A non-positive start is
// treated as already expired but still fires once on the first tick.
func New(seconds int) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{remaining: seconds}
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int { return c.remaining }

// Expired reports whether the countdown has reached zero.
func (c *Countdown) Expired() bool { return c.remaining == 0 }

// Tick consumes one second. expired is true exactly once, on the tick that
// reaches (or observes) zero; every later tick is a no-op.
func (c *Countdown) Tick() (remaining int, expired bool) {
	if c.fired {
		return c.remaining, false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.fired = true
		return 0, true
	}
	return c.remaining, false
}

// Run emits one tick per interval until ctx is cancelled. It blocks; call it
// in a goroutine. emit must not block for longer than an interval.
func Run(ctx context.Context, interval time.Duration, emit func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}
