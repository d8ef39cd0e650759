package nfc

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Timeout bounds a busy-wait. The wait gives up after Iterations polls or
// once Duration has elapsed, whichever comes first. A zero field disables
// that bound; at least one must be set.
type Timeout struct {
	Iterations int
	Duration   time.Duration
}

// busyWait polls done until it reports true or the timeout expires.
func (c *Controller) busyWait(op string, t Timeout, done func() bool) error {
	// Fast path
	if done() {
		return nil
	}
	if t.Iterations <= 0 && t.Duration <= 0 {
		t.Iterations = defaultIterations
	}

	start := c.cfg.Clock.Now()
	for i := 1; ; i++ {
		if t.Iterations > 0 && i >= t.Iterations {
			break
		}
		if t.Duration > 0 && c.cfg.Clock.Now().Sub(start) >= t.Duration {
			break
		}
		if done() {
			return nil
		}
	}
	return &TimeoutError{Op: op, Timeout: t}
}
