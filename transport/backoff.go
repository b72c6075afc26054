package transport

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// stepBackoff reproduces the engine's reconnect schedule exactly:
// wait 1000×attempt ms, give up after the fifth attempt. It satisfies
// backoff.BackOff so it can drive backoff.Retry directly.
type stepBackoff struct {
	attempt   int
	maxAttempt int
}

func newStepBackoff(maxAttempt int) *stepBackoff {
	return &stepBackoff{maxAttempt: maxAttempt}
}

func (b *stepBackoff) NextBackOff() time.Duration {
	b.attempt++
	if b.attempt > b.maxAttempt {
		return backoff.Stop
	}
	return time.Duration(1000*b.attempt) * time.Millisecond
}

func (b *stepBackoff) Reset() { b.attempt = 0 }
